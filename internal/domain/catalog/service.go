package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/slog"
)

var (
	ErrNotFound     = errors.New("catalog item not found")
	ErrInvalidDelta = errors.New("stock delta must name a sku")
	ErrInvalidSeed  = errors.New("invalid catalog seed")
)

type Servicer interface {
	Products(ctx context.Context) (ProductsResponse, error)
	Customers(ctx context.Context) (CustomersResponse, error)
	ApplyInventoryUpdate(ctx context.Context, payload json.RawMessage) error
	Seed(ctx context.Context, seed Seed) error
}

type Service struct {
	repo Repository
	log  *slog.Logger
}

func NewService(repo Repository, log *slog.Logger) Servicer {
	return &Service{
		repo: repo,
		log:  log.With("component", "catalog_service"),
	}
}

func (s *Service) Products(ctx context.Context) (ProductsResponse, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		s.log.Error("failed to list products", "error", err)
		return ProductsResponse{}, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}
	return ProductsResponse{Products: products, Total: len(products)}, nil
}

func (s *Service) Customers(ctx context.Context) (CustomersResponse, error) {
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		s.log.Error("failed to list customers", "error", err)
		return CustomersResponse{}, fmt.Errorf("list customers: %w", err)
	}
	if customers == nil {
		customers = []Customer{}
	}
	return CustomersResponse{Customers: customers, Total: len(customers)}, nil
}

// stockDelta - ожидаемая форма корректировки остатков
type stockDelta struct {
	SKU   string `json:"sku"`
	Delta int64  `json:"delta"`
}

// ApplyInventoryUpdate применяет корректировку {"sku": ..., "delta": ...} к остатку.
// Другие формы корректировок сохраняются сервером, но остаток не меняют.
func (s *Service) ApplyInventoryUpdate(ctx context.Context, payload json.RawMessage) error {
	var d stockDelta
	if err := json.Unmarshal(payload, &d); err != nil || d.SKU == "" {
		return ErrInvalidDelta
	}

	if err := s.repo.ApplyStockDelta(ctx, d.SKU, d.Delta); err != nil {
		return fmt.Errorf("apply stock delta %s: %w", d.SKU, err)
	}

	s.log.Debug("stock adjusted", "sku", d.SKU, "delta", d.Delta)
	return nil
}

// Seed загружает справочники. Существующие записи с теми же id перезаписываются.
func (s *Service) Seed(ctx context.Context, seed Seed) error {
	for i, p := range seed.Products {
		if p.ID == "" || p.SKU == "" {
			return fmt.Errorf("%w: product #%d needs id and sku", ErrInvalidSeed, i)
		}
	}
	for i, c := range seed.Customers {
		if c.ID == "" {
			return fmt.Errorf("%w: customer #%d needs id", ErrInvalidSeed, i)
		}
	}

	if err := s.repo.Upsert(ctx, seed.Products, seed.Customers); err != nil {
		s.log.Error("failed to seed catalog", "error", err)
		return fmt.Errorf("seed catalog: %w", err)
	}

	s.log.Info("catalog seeded", "products", len(seed.Products), "customers", len(seed.Customers))
	return nil
}
