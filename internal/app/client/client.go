package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"possync/internal/app/client/config"
	"possync/internal/app/client/crypto"
	"possync/internal/offline/bgsync"
	"possync/internal/offline/cache"
	"possync/internal/offline/connectivity"
	"possync/internal/offline/queue"
	"possync/internal/offline/store"
	"possync/internal/offline/syncer"
)

// App собирает офлайн-очередь кассы: хранилище, запись, монитор сети,
// синхронизацию и кэш справочников
type App struct {
	config     *config.Config
	log        *slog.Logger
	store      *store.Store
	httpClient *HTTPClient
	sealer     *crypto.Sealer
	recorder   *queue.Recorder
	monitor    *connectivity.Monitor
	scheduler  *bgsync.Scheduler
	engine     *syncer.Engine
	cache      *cache.Cache

	wg     gosync.WaitGroup
	mu     gosync.Mutex
	cancel context.CancelFunc
}

// Status - состояние для индикатора кассы
type Status struct {
	Online      bool         `json:"online"`
	Server      string       `json:"server"`
	Store       *store.Stats `json:"store"`
	Engine      syncer.Stats `json:"engine"`
	LastRefresh time.Time    `json:"last_refresh"`
	Sealed      bool         `json:"sealed"`
	Background  bool         `json:"background_sync"`
	PendingTags []string     `json:"pending_tags,omitempty"`
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	st, err := store.Open(ctx, cfg.DataPath)
	if err != nil {
		return nil, err
	}

	app := &App{
		config:     cfg,
		log:        log,
		store:      st,
		httpClient: NewHTTPClient(cfg, log),
		cache:      cache.New(st, log),
	}

	if cfg.OfflinePassphrase != "" {
		sealer, err := crypto.Unlock(ctx, st, cfg.OfflinePassphrase)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("ошибка разблокировки хранилища: %w", err)
		}
		app.sealer = sealer
	}

	app.monitor = connectivity.NewMonitor(connectivity.ProberFunc(app.httpClient.HealthCheck), cfg.ProbeInterval, log)

	var engineOpts []syncer.Option
	var recorderOpts []queue.Option
	if app.sealer != nil {
		engineOpts = append(engineOpts, syncer.WithOpener(app.sealer))
		recorderOpts = append(recorderOpts, queue.WithSealer(app.sealer))
	}

	app.engine = syncer.NewEngine(
		[]syncer.Queue{st.Transactions(), st.InventoryUpdates()},
		app.httpClient,
		app.monitor,
		syncer.Config{
			Interval:    cfg.SyncInterval,
			MaxAttempts: cfg.MaxAttempts,
			BackoffMin:  cfg.BackoffMin,
			BackoffMax:  cfg.BackoffMax,
		},
		log,
		engineOpts...,
	)

	var registrar bgsync.Registrar = bgsync.Unsupported{}
	if cfg.BackgroundSync {
		app.scheduler = bgsync.NewScheduler(app.engine.HandleTag, app.monitor, cfg.SyncInterval, log)
		registrar = app.scheduler
	}

	app.recorder = queue.NewRecorder(st.Transactions(), st.InventoryUpdates(), registrar, log, recorderOpts...)

	return app, nil
}

// Run держит кассу открытой: следит за сетью, синхронизирует при
// восстановлении связи и по таймеру, пока не придет сигнал или не отменится ctx
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	go a.handleSignals(ctx)

	online := a.monitor.Start(ctx)
	unwatch := a.engine.Watch(ctx, a.monitor)
	defer unwatch()

	if online {
		a.engine.Go(ctx, syncer.TriggerOnline)
	}

	a.spawn(ctx, "connectivity monitor", a.monitor.Run)
	a.spawn(ctx, "sync engine", a.engine.Run)
	if a.scheduler != nil {
		a.spawn(ctx, "background sync", a.scheduler.Run)
	}

	a.log.Info("Касса запущена",
		"server", a.config.ServerAddress,
		"env", a.config.Env,
		"online", online,
		"data_path", a.store.Path(),
	)

	<-ctx.Done()

	a.wg.Wait()
	a.engine.Wait()

	a.log.Info("Касса остановлена")
	return nil
}

func (a *App) spawn(ctx context.Context, name string, fn func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fn(ctx); err != nil {
			a.log.Error("background loop stopped", "loop", name, "error", err)
		}
	}()
}

func (a *App) handleSignals(ctx context.Context) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.log.Info("Получен сигнал завершения", "signal", sig.String())
		a.Shutdown()
	case <-ctx.Done():
	}
}

// Shutdown останавливает Run
func (a *App) Shutdown() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close освобождает ключ шифрования и закрывает хранилище
func (a *App) Close() error {
	if a.sealer != nil {
		a.sealer.Wipe()
	}
	return a.store.Close()
}

// RecordSale сохраняет продажу в очередь. Работает без сети.
func (a *App) RecordSale(ctx context.Context, payload json.RawMessage) (int64, error) {
	return a.recorder.RecordTransaction(ctx, payload)
}

// AdjustStock сохраняет корректировку остатков в очередь
func (a *App) AdjustStock(ctx context.Context, payload json.RawMessage) (int64, error) {
	return a.recorder.RecordInventoryUpdate(ctx, payload)
}

// SyncNow выполняет ручной проход синхронизации
func (a *App) SyncNow(ctx context.Context) (*syncer.Result, error) {
	a.monitor.Start(ctx)
	return a.engine.Sync(ctx, syncer.TriggerManual)
}

// CheckConnection проверяет связь с сервером и обновляет состояние монитора
func (a *App) CheckConnection(ctx context.Context) bool {
	return a.monitor.Start(ctx)
}

func (a *App) Status(ctx context.Context) (*Status, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	last, err := a.cache.LastRefresh(ctx)
	if err != nil {
		return nil, err
	}

	s := &Status{
		Online:      a.monitor.IsOnline(),
		Server:      a.config.BaseURL(),
		Store:       stats,
		Engine:      a.engine.Stats(),
		LastRefresh: last,
		Sealed:      a.sealer != nil,
		Background:  a.scheduler != nil,
	}
	if a.scheduler != nil {
		s.PendingTags = a.scheduler.Tags()
	}

	return s, nil
}

// DeadLetters возвращает записи, окончательно отклоненные сервером.
// Зашифрованные записи расшифровываются, если хранилище разблокировано.
func (a *App) DeadLetters(ctx context.Context) ([]*store.Entry, error) {
	var all []*store.Entry
	for _, c := range store.QueueCollections {
		repo, err := a.store.Entries(c)
		if err != nil {
			return nil, err
		}
		entries, err := repo.Query(ctx, store.IndexStatus, string(store.StatusFailedPermanent))
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Sealed && a.sealer != nil {
				plain, err := a.sealer.Open(e.Payload)
				if err != nil {
					return nil, fmt.Errorf("entry %d: %w", e.ID, err)
				}
				e.Payload, e.Sealed = plain, false
			}
		}
		all = append(all, entries...)
	}
	return all, nil
}

func (a *App) RefreshCache(ctx context.Context) (*cache.RefreshResult, error) {
	return a.cache.Refresh(ctx, a.httpClient)
}

func (a *App) SearchProducts(ctx context.Context, query string) ([]*store.Product, error) {
	return a.cache.SearchProducts(ctx, query)
}

func (a *App) SearchCustomers(ctx context.Context, query string) ([]*store.Customer, error) {
	return a.cache.SearchCustomers(ctx, query)
}

func (a *App) LookupBarcode(ctx context.Context, barcode string) (*store.Product, error) {
	return a.cache.LookupBarcode(ctx, barcode)
}

// ClearOfflineData удаляет очереди продаж и корректировок, кэш остается
func (a *App) ClearOfflineData(ctx context.Context) error {
	if err := a.store.ClearOfflineData(ctx); err != nil {
		return err
	}
	a.log.Info("Офлайн-данные очищены")
	return nil
}
