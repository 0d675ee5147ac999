package bgsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slog"
)

// Теги фоновой синхронизации, которые регистрирует Write Path
const (
	TagTransactions = "sync-transactions"
	TagInventory    = "sync-inventory"
)

var ErrUnsupported = errors.New("background sync unsupported")

// Registrar принимает подсказку о том, что есть данные для синхронизации.
// Когда и будет ли выполнена синхронизация, решает реализация.
type Registrar interface {
	Register(ctx context.Context, tag string) error
}

// Unsupported - реализация для окружения без фоновой синхронизации
type Unsupported struct{}

func (Unsupported) Register(context.Context, string) error {
	return ErrUnsupported
}

// Handler выполняет работу по тегу
type Handler func(ctx context.Context, tag string) error

// OnlineChecker сообщает текущее состояние сети
type OnlineChecker interface {
	IsOnline() bool
}

// Scheduler запоминает зарегистрированные теги и сбрасывает их
// из цикла Run, когда сеть доступна.
type Scheduler struct {
	mu    sync.Mutex
	tags  []string
	index map[string]struct{}

	handler  Handler
	online   OnlineChecker
	interval time.Duration
	notify   chan struct{}
	log      *slog.Logger
}

func NewScheduler(handler Handler, online OnlineChecker, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		index:    make(map[string]struct{}),
		handler:  handler,
		online:   online,
		interval: interval,
		notify:   make(chan struct{}, 1),
		log:      log.With("component", "bgsync"),
	}
}

// Register запоминает тег. Повторная регистрация того же тега не дублирует работу.
func (s *Scheduler) Register(_ context.Context, tag string) error {
	if tag == "" {
		return errors.New("empty tag")
	}

	s.mu.Lock()
	if _, ok := s.index[tag]; !ok {
		s.index[tag] = struct{}{}
		s.tags = append(s.tags, tag)
	}
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}

	return nil
}

// Tags возвращает теги, ожидающие выполнения
func (s *Scheduler) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.tags))
	copy(out, s.tags)
	return out
}

// Run сбрасывает теги по сигналу регистрации и раз в interval
func (s *Scheduler) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.notify:
		case <-tick:
		}

		s.Flush(ctx)
	}
}

// Flush выполняет все теги, если сеть доступна. Тег снимается только после успешного выполнения.
func (s *Scheduler) Flush(ctx context.Context) {
	if s.online != nil && !s.online.IsOnline() {
		return
	}

	for _, tag := range s.Tags() {
		if ctx.Err() != nil {
			return
		}

		if err := s.handler(ctx, tag); err != nil {
			s.log.Warn("background sync failed", "tag", tag, "error", err)
			continue
		}

		s.done(tag)
		s.log.Debug("background sync done", "tag", tag)
	}
}

func (s *Scheduler) done(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.index, tag)
	for i, t := range s.tags {
		if t == tag {
			s.tags = append(s.tags[:i], s.tags[i+1:]...)
			break
		}
	}
}
