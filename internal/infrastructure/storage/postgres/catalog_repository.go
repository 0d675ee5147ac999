package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"possync/internal/domain/catalog"
)

type CatalogRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewCatalogRepository(pool *pgxpool.Pool, log *slog.Logger) *CatalogRepository {
	return &CatalogRepository{
		pool: pool,
		log:  log.With("component", "catalog_repository"),
	}
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	const query = `
		SELECT id, name, sku, barcode, price, stock
		FROM products
		ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Product, error) {
		var p catalog.Product
		err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Barcode, &p.Price, &p.Stock)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return products, nil
}

func (r *CatalogRepository) ListCustomers(ctx context.Context) ([]catalog.Customer, error) {
	const query = `
		SELECT id, name, phone, email
		FROM customers
		ORDER BY name, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	customers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Customer, error) {
		var c catalog.Customer
		err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan customers: %w", err)
	}
	return customers, nil
}

func (r *CatalogRepository) ApplyStockDelta(ctx context.Context, sku string, delta int64) error {
	const query = `UPDATE products SET stock = stock + $1 WHERE sku = $2`

	tag, err := r.pool.Exec(ctx, query, delta, sku)
	if err != nil {
		r.log.Error("failed to apply stock delta", "sku", sku, "delta", delta, "error", err)
		return fmt.Errorf("apply stock delta: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: sku %s", catalog.ErrNotFound, sku)
	}
	return nil
}

func (r *CatalogRepository) Upsert(ctx context.Context, products []catalog.Product, customers []catalog.Customer) error {
	const upsertProduct = `
		INSERT INTO products (id, name, sku, barcode, price, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, sku = EXCLUDED.sku, barcode = EXCLUDED.barcode,
			price = EXCLUDED.price, stock = EXCLUDED.stock`

	const upsertCustomer = `
		INSERT INTO customers (id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, phone = EXCLUDED.phone, email = EXCLUDED.email`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range products {
			batch.Queue(upsertProduct, p.ID, p.Name, p.SKU, p.Barcode, p.Price, p.Stock)
		}
		for _, c := range customers {
			batch.Queue(upsertCustomer, c.ID, c.Name, c.Phone, c.Email)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert catalog: %w", err)
		}
		return nil
	})
}
