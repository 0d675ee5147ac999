package catalog

import "context"

type Repository interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	// ApplyStockDelta меняет остаток товара по SKU
	ApplyStockDelta(ctx context.Context, sku string, delta int64) error
	// Upsert записывает справочники одной транзакцией
	Upsert(ctx context.Context, products []Product, customers []Customer) error
}
