package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"possync/internal/infrastructure/migration"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaVersion - версия схемы, до которой Open доводит базу
const SchemaVersion = 4

// Store - локальное хранилище клиента поверх SQLite.
// Один экземпляр на файл базы, передается зависимостям явно.
type Store struct {
	db   *sql.DB
	path string
}

// Open открывает (или создает) базу и применяет миграции.
// Любая ошибка оборачивается в ErrStorageUnavailable и не повторяется.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrStorageUnavailable)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	if err := newMigration(path).Up(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return &Store{db: db, path: path}, nil
}

func newMigration(path string) *migration.Migration {
	return migration.NewMigration("", "sqlite3://"+path, migration.EmbeddedEngine(migrationsFS, "migrations"))
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path возвращает путь к файлу базы
func (s *Store) Path() string {
	return s.path
}

// Entries возвращает репозиторий очереди для коллекции transactions или inventory_updates
func (s *Store) Entries(c Collection) (*EntryRepository, error) {
	switch c {
	case Transactions, InventoryUpdates:
		return &EntryRepository{db: s.db, collection: c}, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a queue collection", ErrUnknownCollection, c)
	}
}

func (s *Store) Transactions() *EntryRepository {
	return &EntryRepository{db: s.db, collection: Transactions}
}

func (s *Store) InventoryUpdates() *EntryRepository {
	return &EntryRepository{db: s.db, collection: InventoryUpdates}
}

func (s *Store) Products() *ProductRepository {
	return &ProductRepository{db: s.db}
}

func (s *Store) Customers() *CustomerRepository {
	return &CustomerRepository{db: s.db}
}

// Usage оценивает размер базы в байтах
func (s *Store) Usage(ctx context.Context) (int64, error) {
	var pageCount, pageSize int64

	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("page size: %w", err)
	}

	return pageCount * pageSize, nil
}

// Stats собирает счетчики для индикатора состояния
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats

	tx, err := s.Transactions().CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.Transactions = tx

	inv, err := s.InventoryUpdates().CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.InventoryUpdates = inv

	if stats.Products, err = s.count(ctx, Products); err != nil {
		return nil, err
	}
	if stats.Customers, err = s.count(ctx, Customers); err != nil {
		return nil, err
	}

	if stats.UsageBytes, err = s.Usage(ctx); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *Store) count(ctx context.Context, c Collection) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+string(c)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c, err)
	}
	return n, nil
}

// ClearOfflineData удаляет все записи очередей. Кэш товаров и покупателей не трогается.
func (s *Store) ClearOfflineData(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClearDataFailed, err)
	}
	defer tx.Rollback()

	for _, c := range QueueCollections {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+string(c)); err != nil {
			return fmt.Errorf("%w: delete %s: %w", ErrClearDataFailed, c, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrClearDataFailed, err)
	}

	return nil
}

// GetMeta читает служебное значение по ключу
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %s: %w", key, err)
	}

	return value, true, nil
}

// SetMeta сохраняет служебное значение
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}
