package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"possync/internal/domain/catalog"
	"possync/internal/domain/sale"
	"possync/internal/utils/logger"
)

// memSales - потокобезопасная реализация sale.Repository в памяти
type memSales struct {
	mu   sync.Mutex
	refs map[string]int64
}

func (m *memSales) Insert(_ context.Context, s *sale.Submission) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(s.Kind) + "/" + s.Ref.String()
	if id, ok := m.refs[key]; ok {
		return id, true, nil
	}
	id := int64(len(m.refs) + 1)
	m.refs[key] = id
	return id, false, nil
}

func (m *memSales) Count(_ context.Context, kind sale.Kind) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for key := range m.refs {
		if strings.HasPrefix(key, string(kind)+"/") {
			n++
		}
	}
	return n, nil
}

type memCatalog struct {
	mu       sync.Mutex
	products []catalog.Product
}

func (m *memCatalog) ListProducts(context.Context) ([]catalog.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Product(nil), m.products...), nil
}

func (m *memCatalog) ListCustomers(context.Context) ([]catalog.Customer, error) {
	return nil, nil
}

func (m *memCatalog) ApplyStockDelta(_ context.Context, sku string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.products {
		if m.products[i].SKU == sku {
			m.products[i].Stock += delta
			return nil
		}
	}
	return catalog.ErrNotFound
}

func (m *memCatalog) Upsert(_ context.Context, products []catalog.Product, _ []catalog.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, products...)
	return nil
}

func newTestServer(t *testing.T, token string) (*httptest.Server, *memCatalog) {
	t.Helper()

	log := logger.Discard()
	cat := &memCatalog{products: []catalog.Product{{ID: "p1", Name: "Green Tea", SKU: "TEA-GRN", Stock: 10}}}
	services := Services{
		Sale:    sale.NewService(&memSales{refs: map[string]int64{}}, log),
		Catalog: catalog.NewService(cat, log),
	}

	srv := httptest.NewServer(New(services, nil, token, log))
	t.Cleanup(srv.Close)

	return srv, cat
}

func do(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var rd *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = strings.NewReader(string(raw))
	} else {
		rd = strings.NewReader("")
	}

	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func TestAPI_HealthIsPublic(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_PushRequiresToken(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	body := map[string]any{
		"ref":         uuid.NewString(),
		"payload":     map[string]any{"total": 100},
		"recorded_at": "2026-03-01T09:00:00Z",
	}

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/transactions", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/transactions", "s3cret", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPI_InventoryUpdateIsIdempotent(t *testing.T) {
	srv, cat := newTestServer(t, "")

	body := map[string]any{
		"ref":         uuid.NewString(),
		"payload":     map[string]any{"sku": "TEA-GRN", "delta": -3},
		"recorded_at": "2026-03-01T09:00:00Z",
	}

	resp := do(t, http.MethodPost, srv.URL+"/api/v1/inventory-updates", "", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/v1/inventory-updates", "", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got sale.PushResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.Duplicate)

	products, err := cat.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), products[0].Stock, "delta applied once")

	resp = do(t, http.MethodGet, srv.URL+"/api/v1/submissions/stats", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats struct {
		Transactions     int64 `json:"transactions"`
		InventoryUpdates int64 `json:"inventory_updates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.InventoryUpdates)
	assert.Zero(t, stats.Transactions)
}

func TestAPI_Products(t *testing.T) {
	srv, _ := newTestServer(t, "s3cret")

	resp := do(t, http.MethodGet, srv.URL+"/api/v1/products", "s3cret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got catalog.ProductsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.Total)
}
