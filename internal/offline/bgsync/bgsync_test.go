package bgsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"possync/internal/utils/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type onlineFlag struct{ v atomic.Bool }

func (f *onlineFlag) IsOnline() bool { return f.v.Load() }

type recorder struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recorder) handle(_ context.Context, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, tag)
	return r.err
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func TestUnsupported(t *testing.T) {
	var r Registrar = Unsupported{}
	assert.ErrorIs(t, r.Register(context.Background(), TagTransactions), ErrUnsupported)
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(func(context.Context, string) error { return nil }, nil, 0, logger.Discard())
	ctx := context.Background()

	require.NoError(t, s.Register(ctx, TagTransactions))
	require.NoError(t, s.Register(ctx, TagInventory))
	require.NoError(t, s.Register(ctx, TagTransactions))

	assert.Equal(t, []string{TagTransactions, TagInventory}, s.Tags())
	assert.Error(t, s.Register(ctx, ""))
}

func TestScheduler_Flush(t *testing.T) {
	ctx := context.Background()

	t.Run("offline keeps tags", func(t *testing.T) {
		rec := &recorder{}
		online := &onlineFlag{}
		s := NewScheduler(rec.handle, online, 0, logger.Discard())

		require.NoError(t, s.Register(ctx, TagTransactions))
		s.Flush(ctx)

		assert.Empty(t, rec.Calls())
		assert.Equal(t, []string{TagTransactions}, s.Tags())
	})

	t.Run("online drains tags", func(t *testing.T) {
		rec := &recorder{}
		online := &onlineFlag{}
		online.v.Store(true)
		s := NewScheduler(rec.handle, online, 0, logger.Discard())

		require.NoError(t, s.Register(ctx, TagTransactions))
		require.NoError(t, s.Register(ctx, TagInventory))
		s.Flush(ctx)

		assert.Equal(t, []string{TagTransactions, TagInventory}, rec.Calls())
		assert.Empty(t, s.Tags())
	})

	t.Run("failed handler keeps tag", func(t *testing.T) {
		rec := &recorder{err: errors.New("push failed")}
		online := &onlineFlag{}
		online.v.Store(true)
		s := NewScheduler(rec.handle, online, 0, logger.Discard())

		require.NoError(t, s.Register(ctx, TagInventory))
		s.Flush(ctx)

		assert.Equal(t, []string{TagInventory}, rec.Calls())
		assert.Equal(t, []string{TagInventory}, s.Tags())
	})
}

func TestScheduler_Run(t *testing.T) {
	rec := &recorder{}
	online := &onlineFlag{}
	online.v.Store(true)
	s := NewScheduler(rec.handle, online, time.Hour, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, s.Register(ctx, TagTransactions))

	assert.Eventually(t, func() bool {
		return len(rec.Calls()) == 1 && len(s.Tags()) == 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestScheduler_RegisterWithoutRun(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.handle, nil, 0, logger.Discard())

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Register(context.Background(), TagTransactions))
	}

	assert.Equal(t, []string{TagTransactions}, s.Tags())
	assert.Empty(t, rec.Calls())
}
