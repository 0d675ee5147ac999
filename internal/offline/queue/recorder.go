package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"

	"possync/internal/offline/bgsync"
	"possync/internal/offline/store"
)

var ErrInvalidPayload = errors.New("payload is not valid JSON")

// Repository - очередь локального хранилища (store.EntryRepository)
type Repository interface {
	Put(ctx context.Context, e *store.Entry) (int64, error)
}

// Sealer шифрует содержимое записи перед сохранением
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
}

type Option func(*Recorder)

func WithSealer(s Sealer) Option {
	return func(r *Recorder) { r.sealer = s }
}

func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// Recorder записывает продажи и корректировки остатков локально со статусом pending.
// Сеть не используется.
type Recorder struct {
	transactions Repository
	inventory    Repository
	registrar    bgsync.Registrar
	sealer       Sealer
	now          func() time.Time
	log          *slog.Logger
}

func NewRecorder(transactions, inventory Repository, registrar bgsync.Registrar, log *slog.Logger, opts ...Option) *Recorder {
	r := &Recorder{
		transactions: transactions,
		inventory:    inventory,
		registrar:    registrar,
		now:          time.Now,
		log:          log.With("component", "queue"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordTransaction сохраняет продажу и возвращает ее локальный id
func (r *Recorder) RecordTransaction(ctx context.Context, payload json.RawMessage) (int64, error) {
	return r.record(ctx, r.transactions, store.Transactions, bgsync.TagTransactions, payload)
}

// RecordInventoryUpdate сохраняет изменение остатков и возвращает его локальный id
func (r *Recorder) RecordInventoryUpdate(ctx context.Context, payload json.RawMessage) (int64, error) {
	return r.record(ctx, r.inventory, store.InventoryUpdates, bgsync.TagInventory, payload)
}

func (r *Recorder) record(
	ctx context.Context,
	repo Repository,
	collection store.Collection,
	tag string,
	payload json.RawMessage,
) (int64, error) {
	if len(payload) == 0 || !json.Valid(payload) {
		return 0, ErrInvalidPayload
	}

	now := r.now().UTC()
	e := &store.Entry{
		Ref:           uuid.New(),
		Payload:       payload,
		Timestamp:     now,
		Status:        store.StatusPending,
		NextAttemptAt: now,
	}

	if r.sealer != nil {
		sealed, err := r.sealer.Seal(payload)
		if err != nil {
			return 0, fmt.Errorf("seal %s payload: %w", collection, err)
		}
		e.Payload = sealed
		e.Sealed = true
	}

	id, err := repo.Put(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", collection, err)
	}

	r.log.Debug("entry recorded", "collection", collection, "entry_id", id, "ref", e.Ref)

	r.register(ctx, tag)

	return id, nil
}

// register - подсказка платформе, ошибки только логируются
func (r *Recorder) register(ctx context.Context, tag string) {
	if r.registrar == nil {
		return
	}

	err := r.registrar.Register(ctx, tag)
	switch {
	case err == nil:
	case errors.Is(err, bgsync.ErrUnsupported):
		r.log.Debug("background sync unsupported", "tag", tag)
	default:
		r.log.Warn("background sync registration failed", "tag", tag, "error", err)
	}
}
