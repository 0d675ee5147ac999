package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"possync/internal/offline/store"
)

// MetaLastRefresh - ключ meta со временем последнего обновления кэша
const MetaLastRefresh = "cache_last_refresh"

// Source - откуда берутся товары и покупатели (HTTP клиент сервера)
type Source interface {
	ListProducts(ctx context.Context) ([]*store.Product, error)
	ListCustomers(ctx context.Context) ([]*store.Customer, error)
}

// Cache - локальная копия справочников для работы без сети
type Cache struct {
	store *store.Store
	log   *slog.Logger
	now   func() time.Time
}

func New(s *store.Store, log *slog.Logger) *Cache {
	return &Cache{
		store: s,
		log:   log.With("component", "cache"),
		now:   time.Now,
	}
}

// CacheAll записывает товары целиком: совпавшие по id заменяются, новые добавляются
func (c *Cache) CacheAll(ctx context.Context, products []*store.Product) error {
	now := c.now().UTC()
	for _, p := range products {
		p.CachedAt = now
	}
	return c.store.Products().ReplaceAll(ctx, products)
}

// CacheAllCustomers - то же для покупателей
func (c *Cache) CacheAllCustomers(ctx context.Context, customers []*store.Customer) error {
	now := c.now().UTC()
	for _, cu := range customers {
		cu.CachedAt = now
	}
	return c.store.Customers().ReplaceAll(ctx, customers)
}

// RefreshResult - сколько записей получено с сервера
type RefreshResult struct {
	Products  int       `json:"products"`
	Customers int       `json:"customers"`
	At        time.Time `json:"at"`
}

// Refresh забирает справочники с сервера и кладет их в кэш
func (c *Cache) Refresh(ctx context.Context, src Source) (*RefreshResult, error) {
	products, err := src.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	customers, err := src.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}

	if err := c.CacheAll(ctx, products); err != nil {
		return nil, err
	}
	if err := c.CacheAllCustomers(ctx, customers); err != nil {
		return nil, err
	}

	res := &RefreshResult{Products: len(products), Customers: len(customers), At: c.now().UTC()}

	if err := c.store.SetMeta(ctx, MetaLastRefresh, res.At.Format(time.RFC3339Nano)); err != nil {
		return nil, err
	}

	c.log.Info("cache refreshed", "products", res.Products, "customers", res.Customers)

	return res, nil
}

// LastRefresh возвращает время последнего Refresh, нулевое если его не было
func (c *Cache) LastRefresh(ctx context.Context) (time.Time, error) {
	v, ok, err := c.store.GetMeta(ctx, MetaLastRefresh)
	if err != nil || !ok {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, v)
}

// SearchProducts ищет подстроку в имени, SKU и штрихкоде без учета регистра.
// Перебирает весь кэш.
func (c *Cache) SearchProducts(ctx context.Context, query string) ([]*store.Product, error) {
	all, err := c.store.Products().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	var found []*store.Product
	for _, p := range all {
		if contains(q, p.Name, p.SKU, p.Barcode) {
			found = append(found, p)
		}
	}
	return found, nil
}

// SearchCustomers ищет подстроку в имени, телефоне и email
func (c *Cache) SearchCustomers(ctx context.Context, query string) ([]*store.Customer, error) {
	all, err := c.store.Customers().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}

	var found []*store.Customer
	for _, cu := range all {
		if contains(q, cu.Name, cu.Phone, cu.Email) {
			found = append(found, cu)
		}
	}
	return found, nil
}

// LookupBarcode находит товар по штрихкоду через индекс
func (c *Cache) LookupBarcode(ctx context.Context, barcode string) (*store.Product, error) {
	found, err := c.store.Products().Query(ctx, store.IndexBarcode, barcode)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: barcode %s", store.ErrNotFound, barcode)
	}
	return found[0], nil
}

// LookupPhone находит покупателя по телефону через индекс
func (c *Cache) LookupPhone(ctx context.Context, phone string) (*store.Customer, error) {
	found, err := c.store.Customers().Query(ctx, store.IndexPhone, phone)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: phone %s", store.ErrNotFound, phone)
	}
	return found[0], nil
}

func contains(q string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
