package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListProducts(ctx context.Context) ([]Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Product), args.Error(1)
}

func (m *MockRepository) ListCustomers(ctx context.Context) ([]Customer, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Customer), args.Error(1)
}

func (m *MockRepository) ApplyStockDelta(ctx context.Context, sku string, delta int64) error {
	args := m.Called(ctx, sku, delta)
	return args.Error(0)
}

func (m *MockRepository) Upsert(ctx context.Context, products []Product, customers []Customer) error {
	args := m.Called(ctx, products, customers)
	return args.Error(0)
}

func TestService_Products(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setupMock func(*MockRepository)
		wantTotal int
		wantErr   bool
	}{
		{
			name: "two products",
			setupMock: func(r *MockRepository) {
				r.On("ListProducts", ctx).Return([]Product{{ID: "p1"}, {ID: "p2"}}, nil)
			},
			wantTotal: 2,
		},
		{
			name: "empty catalog",
			setupMock: func(r *MockRepository) {
				r.On("ListProducts", ctx).Return(nil, nil)
			},
			wantTotal: 0,
		},
		{
			name: "repository error",
			setupMock: func(r *MockRepository) {
				r.On("ListProducts", ctx).Return(nil, errors.New("db down"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)
			svc := NewService(repo, slog.Default())

			resp, err := svc.Products(ctx)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, resp.Total)
			assert.NotNil(t, resp.Products)
		})
	}
}

func TestService_Customers(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("ListCustomers", ctx).Return([]Customer{{ID: "c1", Name: "Anna"}}, nil)

	svc := NewService(repo, slog.Default())

	resp, err := svc.Customers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Equal(t, "Anna", resp.Customers[0].Name)
}

func TestService_ApplyInventoryUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("applies delta", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ApplyStockDelta", ctx, "TEA-1", int64(-2)).Return(nil)

		svc := NewService(repo, slog.Default())
		require.NoError(t, svc.ApplyInventoryUpdate(ctx, json.RawMessage(`{"sku":"TEA-1","delta":-2}`)))
		repo.AssertExpectations(t)
	})

	t.Run("no sku", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, slog.Default())

		err := svc.ApplyInventoryUpdate(ctx, json.RawMessage(`{"delta":3}`))
		assert.ErrorIs(t, err, ErrInvalidDelta)
		repo.AssertNotCalled(t, "ApplyStockDelta", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown sku", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ApplyStockDelta", ctx, "NOPE", int64(1)).Return(ErrNotFound)

		svc := NewService(repo, slog.Default())
		err := svc.ApplyInventoryUpdate(ctx, json.RawMessage(`{"sku":"NOPE","delta":1}`))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		seed    Seed
		repoErr error
		wantErr error
		calls   bool
	}{
		{
			name:  "ok",
			seed:  Seed{Products: []Product{{ID: "p1", SKU: "TEA"}}, Customers: []Customer{{ID: "c1"}}},
			calls: true,
		},
		{
			name:    "product without sku",
			seed:    Seed{Products: []Product{{ID: "p1"}}},
			wantErr: ErrInvalidSeed,
		},
		{
			name:    "customer without id",
			seed:    Seed{Customers: []Customer{{Name: "Anna"}}},
			wantErr: ErrInvalidSeed,
		},
		{
			name:    "repository error",
			seed:    Seed{Products: []Product{{ID: "p1", SKU: "TEA"}}},
			repoErr: errors.New("conn refused"),
			calls:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			if tt.calls {
				repo.On("Upsert", ctx, tt.seed.Products, tt.seed.Customers).Return(tt.repoErr)
			}

			err := NewService(repo, slog.Default()).Seed(ctx, tt.seed)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.repoErr != nil:
				assert.ErrorContains(t, err, "seed catalog")
			default:
				require.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}
