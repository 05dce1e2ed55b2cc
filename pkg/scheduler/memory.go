package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	timer *time.Timer
	due   time.Time
}

// Memory keeps pending keys in process timers. Nothing survives a restart.
type Memory struct {
	handler Handler
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*memoryEntry
	wg      sync.WaitGroup
	closed  bool
}

func NewMemory(handler Handler, logger *zap.Logger) *Memory {
	return &Memory{
		handler: handler,
		logger:  logger,
		pending: make(map[string]*memoryEntry),
	}
}

func (m *Memory) Schedule(ctx context.Context, key string, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if prev, ok := m.pending[key]; ok {
		prev.timer.Stop()
	}

	entry := &memoryEntry{due: time.Now().Add(delay)}
	entry.timer = time.AfterFunc(delay, func() { m.fire(key, entry) })
	m.pending[key] = entry
	return nil
}

func (m *Memory) fire(key string, entry *memoryEntry) {
	m.mu.Lock()
	// A replaced or cancelled entry may still fire if Stop lost the race.
	if m.pending[key] != entry || m.closed {
		m.mu.Unlock()
		return
	}
	delete(m.pending, key)
	m.wg.Add(1)
	m.mu.Unlock()

	defer m.wg.Done()
	m.logger.Debug("scheduled key due", zap.String("key", key))
	m.handler(context.Background(), key)
}

func (m *Memory) Cancel(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.pending[key]; ok {
		entry.timer.Stop()
		delete(m.pending, key)
	}
	return nil
}

func (m *Memory) Pending(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.pending[key]
	return ok, nil
}

// Len reports the number of pending keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Close stops every pending timer and waits for running handlers.
func (m *Memory) Close() {
	m.mu.Lock()
	m.closed = true
	for key, entry := range m.pending {
		entry.timer.Stop()
		delete(m.pending, key)
	}
	m.mu.Unlock()

	m.wg.Wait()
}
