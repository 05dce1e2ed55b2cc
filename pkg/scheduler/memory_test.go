package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	fired []string
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) handle(ctx context.Context, key string) {
	r.mu.Lock()
	r.fired = append(r.fired, key)
	r.mu.Unlock()
	r.ch <- key
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func TestMemory_FiresOnce(t *testing.T) {
	rec := newRecorder()
	s := NewMemory(rec.handle, zaptest.NewLogger(t))
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, "acc-1", 10*time.Millisecond))
	pending, err := s.Pending(ctx, "acc-1")
	require.NoError(t, err)
	assert.True(t, pending)

	select {
	case key := <-rec.ch:
		assert.Equal(t, "acc-1", key)
	case <-time.After(time.Second):
		t.Fatal("handler did not fire")
	}

	pending, err = s.Pending(ctx, "acc-1")
	require.NoError(t, err)
	assert.False(t, pending)
	assert.Equal(t, 1, rec.count())
}

func TestMemory_RescheduleReplaces(t *testing.T) {
	rec := newRecorder()
	s := NewMemory(rec.handle, zaptest.NewLogger(t))
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, "acc-1", 20*time.Millisecond))
	require.NoError(t, s.Schedule(ctx, "acc-1", 40*time.Millisecond))
	assert.Equal(t, 1, s.Len())

	select {
	case <-rec.ch:
	case <-time.After(time.Second):
		t.Fatal("handler did not fire")
	}
	// give a stale timer the chance to misfire
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestMemory_Cancel(t *testing.T) {
	rec := newRecorder()
	s := NewMemory(rec.handle, zaptest.NewLogger(t))
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, "acc-1", 10*time.Millisecond))
	require.NoError(t, s.Cancel(ctx, "acc-1"))
	require.NoError(t, s.Cancel(ctx, "never-scheduled"))

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 0, s.Len())
}

func TestMemory_ConcurrentSchedule(t *testing.T) {
	rec := newRecorder()
	s := NewMemory(rec.handle, zaptest.NewLogger(t))
	defer s.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Schedule(ctx, "acc-1", time.Hour))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

func TestMemory_CloseStopsTimers(t *testing.T) {
	rec := newRecorder()
	s := NewMemory(rec.handle, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Schedule(ctx, "a", 10*time.Millisecond))
	require.NoError(t, s.Schedule(ctx, "b", 10*time.Millisecond))
	s.Close()

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
	assert.ErrorIs(t, s.Schedule(ctx, "c", time.Millisecond), ErrClosed)
}
