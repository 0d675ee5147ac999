package cache

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"possync/internal/offline/store"
	"possync/internal/utils/logger"
)

type MockSource struct {
	mock.Mock
}

func (m *MockSource) ListProducts(ctx context.Context) ([]*store.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Product), args.Error(1)
}

func (m *MockSource) ListCustomers(ctx context.Context) ([]*store.Customer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Customer), args.Error(1)
}

func newTestCache(t *testing.T) (*Cache, *store.Store) {
	t.Helper()

	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	c := New(s, logger.Discard())
	c.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	return c, s
}

func products() []*store.Product {
	return []*store.Product{
		{ID: "p1", Name: "Green Tea", SKU: "TEA-GRN", Barcode: "4600000000011", Price: 25000},
		{ID: "p2", Name: "Black Coffee", SKU: "COF-BLK", Barcode: "4600000000028", Price: 32000},
		{ID: "p3", Name: "Oolong", SKU: "TEA-OOL", Barcode: "4600000000035", Price: 41000},
	}
}

func customers() []*store.Customer {
	return []*store.Customer{
		{ID: "c1", Name: "Anna Petrova", Phone: "+79990000001", Email: "anna@example.com"},
		{ID: "c2", Name: "Boris Ivanov", Phone: "+79990000002", Email: "boris@shop.test"},
	}
}

func TestCache_SearchProducts(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	require.NoError(t, c.CacheAll(ctx, products()))

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "by name case insensitive", query: "tea", want: []string{"p1", "p3"}},
		{name: "by sku", query: "cof-", want: []string{"p2"}},
		{name: "by barcode fragment", query: "0035", want: []string{"p3"}},
		{name: "empty returns all", query: "  ", want: []string{"p2", "p1", "p3"}},
		{name: "no match", query: "milk", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := c.SearchProducts(ctx, tt.query)
			require.NoError(t, err)

			var ids []string
			for _, p := range found {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCache_SearchCustomers(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	require.NoError(t, c.CacheAllCustomers(ctx, customers()))

	found, err := c.SearchCustomers(ctx, "EXAMPLE")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "c1", found[0].ID)

	found, err = c.SearchCustomers(ctx, "0002")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "c2", found[0].ID)
}

func TestCache_CacheAllStampsTime(t *testing.T) {
	ctx := context.Background()
	c, s := newTestCache(t)
	require.NoError(t, c.CacheAll(ctx, products()))

	p, err := s.Products().Get(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, c.now().Equal(p.CachedAt))
}

func TestCache_Lookup(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)
	require.NoError(t, c.CacheAll(ctx, products()))
	require.NoError(t, c.CacheAllCustomers(ctx, customers()))

	p, err := c.LookupBarcode(ctx, "4600000000028")
	require.NoError(t, err)
	assert.Equal(t, "Black Coffee", p.Name)

	_, err = c.LookupBarcode(ctx, "0000")
	assert.ErrorIs(t, err, store.ErrNotFound)

	cu, err := c.LookupPhone(ctx, "+79990000001")
	require.NoError(t, err)
	assert.Equal(t, "c1", cu.ID)

	_, err = c.LookupPhone(ctx, "+70000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCache_Refresh(t *testing.T) {
	ctx := context.Background()
	c, s := newTestCache(t)

	last, err := c.LastRefresh(ctx)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	src := new(MockSource)
	src.On("ListProducts", ctx).Return(products(), nil)
	src.On("ListCustomers", ctx).Return(customers(), nil)

	res, err := c.Refresh(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Products)
	assert.Equal(t, 2, res.Customers)
	src.AssertExpectations(t)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Products)
	assert.Equal(t, 2, stats.Customers)

	last, err = c.LastRefresh(ctx)
	require.NoError(t, err)
	assert.True(t, c.now().Equal(last))
}

func TestCache_RefreshSourceError(t *testing.T) {
	ctx := context.Background()
	c, s := newTestCache(t)

	src := new(MockSource)
	src.On("ListProducts", ctx).Return(products(), nil)
	src.On("ListCustomers", ctx).Return(nil, errors.New("503 Service Unavailable"))

	_, err := c.Refresh(ctx, src)
	assert.ErrorContains(t, err, "fetch customers")

	all, err := s.Products().GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "nothing cached on partial fetch")
}

// Очистка офлайн-данных не трогает кэш
func TestCache_ClearOfflineDataKeepsCache(t *testing.T) {
	ctx := context.Background()
	c, s := newTestCache(t)

	require.NoError(t, c.CacheAll(ctx, products()))
	require.NoError(t, c.CacheAllCustomers(ctx, customers()))
	_, err := s.Transactions().Put(ctx, &store.Entry{Payload: json.RawMessage(`{}`), Timestamp: time.Now()})
	require.NoError(t, err)

	require.NoError(t, s.ClearOfflineData(ctx))

	found, err := c.SearchProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, found, 3)

	cs, err := c.SearchCustomers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cs, 2)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalPending())
}
