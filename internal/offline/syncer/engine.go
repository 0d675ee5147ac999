package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"

	"possync/internal/offline/bgsync"
	"possync/internal/offline/connectivity"
	"possync/internal/offline/store"
)

const passKey = "sync-pass"

// Queue - очередь локального хранилища (store.EntryRepository)
type Queue interface {
	Collection() store.Collection
	Pending(ctx context.Context, dueBefore time.Time) ([]*store.Entry, error)
	MarkSynced(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, f store.Failure, maxRejections int) (store.Status, int, error)
}

// Pusher отправляет одну запись на сервер
type Pusher interface {
	Push(ctx context.Context, item Item) error
}

// Opener расшифровывает содержимое записей, сохраненных в зашифрованном виде
type Opener interface {
	Open(ciphertext []byte) ([]byte, error)
}

type OnlineChecker interface {
	IsOnline() bool
}

// Subscriber - источник событий смены состояния сети (connectivity.Monitor)
type Subscriber interface {
	Subscribe(fn func(connectivity.Event)) func()
}

type Config struct {
	// Interval - период фоновых проходов, 0 отключает их
	Interval time.Duration
	// MaxAttempts - после стольких отказов сервера запись уходит в failed_permanent,
	// 0 - без ограничения. Сетевые сбои и 5xx в этот счет не входят.
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		MaxAttempts: 10,
		BackoffMin:  5 * time.Second,
		BackoffMax:  30 * time.Minute,
	}
}

type Option func(*Engine)

func WithOpener(o Opener) Option {
	return func(e *Engine) { e.opener = o }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine отправляет pending записи на сервер. Одновременные вызовы Sync
// объединяются в один проход.
type Engine struct {
	queues []Queue
	pusher Pusher
	opener Opener
	online OnlineChecker
	cfg    Config
	log    *slog.Logger
	now    func() time.Time

	group singleflight.Group
	wg    sync.WaitGroup

	mu    sync.Mutex
	stats Stats
}

func NewEngine(queues []Queue, pusher Pusher, online OnlineChecker, cfg Config, log *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		queues: queues,
		pusher: pusher,
		online: online,
		cfg:    cfg,
		log:    log.With("component", "syncer"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Sync выполняет проход синхронизации. Ошибки отправки отдельных записей
// не возвращаются, только ошибки локального хранилища.
//
// Вызов, пересекшийся с идущим проходом, получает его результат. Исключение:
// периодический проход пропускает записи в backoff, поэтому остальные
// триггеры после него запускают собственный полный проход.
func (e *Engine) Sync(ctx context.Context, trigger Trigger) (*Result, error) {
	if trigger == TriggerPeriodic && e.online != nil && !e.online.IsOnline() {
		return &Result{Trigger: trigger, Skipped: true}, nil
	}

	for {
		res, leader, err := e.join(ctx, trigger)
		if res == nil || leader {
			return res, err
		}

		if trigger != TriggerPeriodic && res.Trigger == TriggerPeriodic {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			continue
		}

		cp := *res
		cp.Shared = true
		return &cp, err
	}
}

func (e *Engine) join(ctx context.Context, trigger Trigger) (*Result, bool, error) {
	// shared от singleflight true и для ведущего вызова, поэтому отмечаем его сами
	leader := false
	v, err, _ := e.group.Do(passKey, func() (interface{}, error) {
		leader = true
		return e.pass(ctx, trigger)
	})

	res, _ := v.(*Result)
	return res, leader, err
}

func (e *Engine) pass(ctx context.Context, trigger Trigger) (*Result, error) {
	res := &Result{Trigger: trigger, StartedAt: e.now()}
	log := e.log.With("trigger", trigger)

	log.Debug("sync pass started")

	// periodic уважает backoff, остальные триггеры пробуют все pending записи
	var dueBefore time.Time
	if trigger == TriggerPeriodic {
		dueBefore = res.StartedAt
	}

	var errs []error
	for _, q := range e.queues {
		cr, failures, err := e.syncQueue(ctx, log, q, dueBefore)
		res.Collections = append(res.Collections, cr)
		res.Failures = append(res.Failures, failures...)
		if err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	res.FinishedAt = e.now()
	e.record(res)

	total := res.Total()
	log.Info("sync pass finished",
		"attempted", total.Attempted,
		"synced", total.Synced,
		"failed", total.Failed,
		"dead_lettered", total.DeadLettered,
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)

	return res, errors.Join(errs...)
}

func (e *Engine) syncQueue(
	ctx context.Context,
	log *slog.Logger,
	q Queue,
	dueBefore time.Time,
) (CollectionResult, []*PushError, error) {
	cr := CollectionResult{Collection: q.Collection()}

	entries, err := q.Pending(ctx, dueBefore)
	if err != nil {
		return cr, nil, fmt.Errorf("read pending %s: %w", q.Collection(), err)
	}

	var (
		failures []*PushError
		errs     []error
	)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		item, err := e.item(q.Collection(), entry)
		if err != nil {
			// запись не отправлялась, попытка не засчитывается
			cr.Failed++
			failures = append(failures, &PushError{
				Collection: q.Collection(), EntryID: entry.ID, Ref: entry.Ref, Attempts: entry.Attempts, Err: err,
			})
			log.Error("cannot open sealed entry", "collection", q.Collection(), "entry_id", entry.ID, "error", err)
			continue
		}

		cr.Attempted++

		pushErr := e.pusher.Push(ctx, item)
		if pushErr == nil {
			if err := q.MarkSynced(ctx, entry.ID, e.now()); err != nil {
				errs = append(errs, fmt.Errorf("mark synced: %w", err))
				continue
			}
			cr.Synced++
			continue
		}

		cr.Failed++

		next := e.now().Add(Backoff(entry.Attempts+1, e.cfg.BackoffMin, e.cfg.BackoffMax))
		status, attempts, err := q.MarkFailed(ctx, entry.ID, store.Failure{
			Reason:   pushErr.Error(),
			Next:     next,
			Rejected: IsRejection(pushErr),
		}, e.cfg.MaxAttempts)
		if err != nil {
			errs = append(errs, fmt.Errorf("mark failed: %w", err))
			attempts = entry.Attempts + 1
		}

		pe := &PushError{
			Collection: q.Collection(), EntryID: entry.ID, Ref: entry.Ref, Attempts: attempts, Err: pushErr,
		}
		failures = append(failures, pe)

		if status == store.StatusFailedPermanent {
			cr.DeadLettered++
			log.Error("entry moved to dead letter",
				"collection", q.Collection(), "entry_id", entry.ID, "attempts", attempts, "error", pushErr)
			continue
		}

		log.Warn("push failed, entry stays pending",
			"collection", q.Collection(), "entry_id", entry.ID, "attempts", attempts,
			"next_attempt_at", next, "error", pe)
	}

	return cr, failures, errors.Join(errs...)
}

func (e *Engine) item(c store.Collection, entry *store.Entry) (Item, error) {
	payload := entry.Payload
	if entry.Sealed {
		if e.opener == nil {
			return Item{}, errors.New("sealed entry without opener")
		}
		opened, err := e.opener.Open(entry.Payload)
		if err != nil {
			return Item{}, err
		}
		payload = opened
	}

	return Item{
		Collection: c,
		Ref:        entry.Ref,
		Payload:    payload,
		RecordedAt: entry.Timestamp,
	}, nil
}

func (e *Engine) record(res *Result) {
	total := res.Total()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.Passes++
	e.stats.Pushed += total.Attempted
	e.stats.Synced += total.Synced
	e.stats.Failed += total.Failed
	e.stats.DeadLettered += total.DeadLettered
	e.stats.LastPassAt = res.FinishedAt
	if total.Synced > 0 {
		e.stats.LastSuccess = res.FinishedAt
	}
	if total.Failed > 0 {
		e.stats.LastFailure = res.FinishedAt
	}
}

// Stats возвращает накопленные счетчики
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Watch запускает проход при каждом переходе offline -> online.
// Возвращает функцию отписки.
func (e *Engine) Watch(ctx context.Context, sub Subscriber) func() {
	return sub.Subscribe(func(ev connectivity.Event) {
		if !ev.Online {
			return
		}
		e.Go(ctx, TriggerOnline)
	})
}

// Go запускает проход в отдельной горутине, дождаться можно через Wait
func (e *Engine) Go(ctx context.Context, trigger Trigger) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.Sync(ctx, trigger); err != nil {
			e.log.Error("sync pass failed", "trigger", trigger, "error", err)
		}
	}()
}

// Wait ждет завершения проходов, запущенных через Watch и Go
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Run выполняет периодические проходы, пока сеть доступна
func (e *Engine) Run(ctx context.Context) error {
	if e.cfg.Interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := e.Sync(ctx, TriggerPeriodic); err != nil && ctx.Err() == nil {
				e.log.Error("periodic sync failed", "error", err)
			}
		}
	}
}

// HandleTag - обработчик фоновой синхронизации для bgsync.Scheduler.
// Возвращает ошибку, если в очереди тега остались неотправленные записи.
func (e *Engine) HandleTag(ctx context.Context, tag string) error {
	var c store.Collection
	switch tag {
	case bgsync.TagTransactions:
		c = store.Transactions
	case bgsync.TagInventory:
		c = store.InventoryUpdates
	default:
		return fmt.Errorf("unknown background sync tag %q", tag)
	}

	res, err := e.Sync(ctx, TriggerBackground)
	if err != nil {
		return err
	}

	cr := res.For(c)
	if failed := cr.Failed - cr.DeadLettered; failed > 0 {
		return fmt.Errorf("%d %s entries still pending", failed, c)
	}

	return nil
}
