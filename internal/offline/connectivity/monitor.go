package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"
)

const defaultProbeTimeout = 5 * time.Second

// Prober проверяет доступность сервера
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc позволяет использовать функцию как Prober
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// Event - смена состояния сети
type Event struct {
	Online bool
	At     time.Time
}

// Monitor хранит флаг online и уведомляет подписчиков о переходах
type Monitor struct {
	online atomic.Bool

	mu     sync.RWMutex
	subs   map[int]func(Event)
	nextID int

	prober   Prober
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
	now      func() time.Time
}

func NewMonitor(prober Prober, interval time.Duration, log *slog.Logger) *Monitor {
	return &Monitor{
		subs:     make(map[int]func(Event)),
		prober:   prober,
		interval: interval,
		timeout:  defaultProbeTimeout,
		log:      log.With("component", "connectivity"),
		now:      time.Now,
	}
}

// Start задает начальное состояние по одной пробе. Подписчики не вызываются.
func (m *Monitor) Start(ctx context.Context) bool {
	online := m.probe(ctx)
	m.online.Store(online)

	m.log.Debug("initial connectivity", "online", online)

	return online
}

func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// SetOnline обновляет флаг. Подписчики вызываются только при реальной смене состояния.
func (m *Monitor) SetOnline(online bool) {
	if !m.online.CompareAndSwap(!online, online) {
		return
	}

	ev := Event{Online: online, At: m.now()}

	if online {
		m.log.Info("connection restored")
	} else {
		m.log.Warn("connection lost")
	}

	m.mu.RLock()
	handlers := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		handlers = append(handlers, fn)
	}
	m.mu.RUnlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscribe регистрирует обработчик переходов, возвращает функцию отписки
func (m *Monitor) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Run опрашивает сервер каждые interval до отмены контекста
func (m *Monitor) Run(ctx context.Context) error {
	if m.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			online := m.probe(ctx)
			if ctx.Err() != nil {
				return nil
			}
			m.SetOnline(online)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) bool {
	if m.prober == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.prober.Probe(ctx); err != nil {
		m.log.Debug("probe failed", "error", err)
		return false
	}
	return true
}
