package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStorageUnavailable = errors.New("local storage unavailable")
	ErrClearDataFailed    = errors.New("clear offline data failed")
	ErrNotFound           = errors.New("record not found")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrUnknownIndex       = errors.New("unknown index")
	ErrNotPending         = errors.New("entry is not pending")
	ErrStatusRegression   = errors.New("entry status cannot move back")
)

// Collection - логическая таблица локального хранилища
type Collection string

const (
	Transactions     Collection = "transactions"
	InventoryUpdates Collection = "inventory_updates"
	Products         Collection = "products"
	Customers        Collection = "customers"
)

// QueueCollections - коллекции, записи которых отправляются на сервер
var QueueCollections = []Collection{Transactions, InventoryUpdates}

// Вторичные индексы
const (
	IndexStatus    = "status"
	IndexTimestamp = "timestamp"
	IndexRef       = "ref"
	IndexSKU       = "sku"
	IndexBarcode   = "barcode"
	IndexPhone     = "phone"
	IndexEmail     = "email"
)

// indexes сопоставляет имя индекса колонке таблицы
var indexes = map[Collection]map[string]string{
	Transactions: {
		IndexStatus:    "status",
		IndexTimestamp: "timestamp",
		IndexRef:       "ref",
	},
	InventoryUpdates: {
		IndexStatus:    "status",
		IndexTimestamp: "timestamp",
		IndexRef:       "ref",
	},
	Products: {
		IndexSKU:     "sku",
		IndexBarcode: "barcode",
	},
	Customers: {
		IndexPhone: "phone",
		IndexEmail: "email",
	},
}

// Indexes возвращает имена вторичных индексов коллекции
func Indexes(c Collection) []string {
	names := make([]string, 0, len(indexes[c]))
	for name := range indexes[c] {
		names = append(names, name)
	}
	return names
}

func indexColumn(c Collection, index string) (string, error) {
	cols, ok := indexes[c]
	if !ok {
		return "", ErrUnknownCollection
	}
	col, ok := cols[index]
	if !ok {
		return "", ErrUnknownIndex
	}
	return col, nil
}

// Status - состояние записи очереди. Переходы только pending -> synced
// и pending -> failed_permanent.
type Status string

const (
	StatusPending         Status = "pending"
	StatusSynced          Status = "synced"
	StatusFailedPermanent Status = "failed_permanent"
)

// Entry - продажа или корректировка остатков, записанная локально
type Entry struct {
	ID            int64      `json:"id"`
	Ref           uuid.UUID  `json:"ref"`
	Payload       []byte     `json:"payload"`
	Sealed        bool       `json:"sealed"`
	Timestamp     time.Time  `json:"timestamp"`
	Status        Status     `json:"status"`
	SyncedAt      *time.Time `json:"synced_at,omitempty"`
	Attempts      int        `json:"attempts"`
	Rejections    int        `json:"rejections"`
	LastError     string     `json:"last_error,omitempty"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
}

// Failure - исход неудачной отправки записи
type Failure struct {
	Reason   string
	Next     time.Time
	// Rejected - сервер отклонил саму запись, а не просто был недоступен
	Rejected bool
}

// Product - локальная копия товара с сервера
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	SKU      string    `json:"sku"`
	Barcode  string    `json:"barcode"`
	Price    int64     `json:"price"`
	Stock    int64     `json:"stock"`
	Raw      []byte    `json:"raw,omitempty"`
	CachedAt time.Time `json:"cached_at"`
}

// Customer - локальная копия покупателя с сервера
type Customer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	Raw      []byte    `json:"raw,omitempty"`
	CachedAt time.Time `json:"cached_at"`
}

// QueueStats - количество записей очереди по статусам
type QueueStats struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

// Stats - агрегаты для индикатора состояния
type Stats struct {
	Transactions     QueueStats `json:"transactions"`
	InventoryUpdates QueueStats `json:"inventory_updates"`
	Products         int        `json:"products"`
	Customers        int        `json:"customers"`
	UsageBytes       int64      `json:"usage_bytes"`
}

// TotalPending возвращает число неотправленных записей в обеих очередях
func (s Stats) TotalPending() int {
	return s.Transactions.Pending + s.InventoryUpdates.Pending
}
