package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	productColumns  = `id, name, sku, barcode, price, stock, raw, cached_at`
	customerColumns = `id, name, phone, email, raw, cached_at`

	upsertProduct = `
		INSERT INTO products (` + productColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, sku = excluded.sku, barcode = excluded.barcode,
			price = excluded.price, stock = excluded.stock, raw = excluded.raw,
			cached_at = excluded.cached_at`

	upsertCustomer = `
		INSERT INTO customers (` + customerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, phone = excluded.phone, email = excluded.email,
			raw = excluded.raw, cached_at = excluded.cached_at`
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ProductRepository - кэш товаров
type ProductRepository struct {
	db *sql.DB
}

func (r *ProductRepository) Put(ctx context.Context, p *Product) error {
	return putProduct(ctx, r.db, p)
}

func putProduct(ctx context.Context, ex execer, p *Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}

	_, err := ex.ExecContext(ctx, upsertProduct,
		p.ID, p.Name, p.SKU, p.Barcode, p.Price, p.Stock, p.Raw, p.CachedAt.UTC())
	if err != nil {
		return fmt.Errorf("put product %s: %w", p.ID, err)
	}
	return nil
}

// ReplaceAll записывает товары одной транзакцией: существующие по id
// перезаписываются, новые добавляются, остальные не трогаются.
func (r *ProductRepository) ReplaceAll(ctx context.Context, products []*Product) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, p := range products {
			if err := putProduct(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)

	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	return p, nil
}

func (r *ProductRepository) GetAll(ctx context.Context) ([]*Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
}

// Query выбирает товары по индексу sku или barcode
func (r *ProductRepository) Query(ctx context.Context, index string, value any) ([]*Product, error) {
	col, err := indexColumn(Products, index)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s", err, Products, index)
	}

	return r.list(ctx, `SELECT `+productColumns+` FROM products WHERE `+col+` = ? ORDER BY name, id`, value)
}

func (r *ProductRepository) list(ctx context.Context, query string, args ...any) ([]*Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func scanProduct(s scanner) (*Product, error) {
	var p Product
	if err := s.Scan(&p.ID, &p.Name, &p.SKU, &p.Barcode, &p.Price, &p.Stock, &p.Raw, &p.CachedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CustomerRepository - кэш покупателей
type CustomerRepository struct {
	db *sql.DB
}

func (r *CustomerRepository) Put(ctx context.Context, c *Customer) error {
	return putCustomer(ctx, r.db, c)
}

func putCustomer(ctx context.Context, ex execer, c *Customer) error {
	if c.ID == "" {
		return errors.New("customer id is required")
	}

	_, err := ex.ExecContext(ctx, upsertCustomer,
		c.ID, c.Name, c.Phone, c.Email, c.Raw, c.CachedAt.UTC())
	if err != nil {
		return fmt.Errorf("put customer %s: %w", c.ID, err)
	}
	return nil
}

func (r *CustomerRepository) ReplaceAll(ctx context.Context, customers []*Customer) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, c := range customers {
			if err := putCustomer(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CustomerRepository) Get(ctx context.Context, id string) (*Customer, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)

	c, err := scanCustomer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: customer %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get customer %s: %w", id, err)
	}

	return c, nil
}

func (r *CustomerRepository) GetAll(ctx context.Context) ([]*Customer, error) {
	return r.list(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY name, id`)
}

// Query выбирает покупателей по индексу phone или email
func (r *CustomerRepository) Query(ctx context.Context, index string, value any) ([]*Customer, error) {
	col, err := indexColumn(Customers, index)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s", err, Customers, index)
	}

	return r.list(ctx, `SELECT `+customerColumns+` FROM customers WHERE `+col+` = ? ORDER BY name, id`, value)
}

func (r *CustomerRepository) list(ctx context.Context, query string, args ...any) ([]*Customer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []*Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}

	return customers, rows.Err()
}

func scanCustomer(s scanner) (*Customer, error) {
	var c Customer
	if err := s.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Raw, &c.CachedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}
