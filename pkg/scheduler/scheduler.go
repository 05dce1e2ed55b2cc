// Package scheduler arms at most one delayed callback per key.
//
// Scheduling a key that is already pending replaces its due time; the
// handler bound at construction runs once when a key comes due unless the
// key was cancelled or re-scheduled first.
package scheduler

import (
	"context"
	"errors"
	"time"
)

var ErrClosed = errors.New("scheduler closed")

// Handler is invoked when key comes due.
type Handler func(ctx context.Context, key string)

type Scheduler interface {
	Schedule(ctx context.Context, key string, delay time.Duration) error
	Cancel(ctx context.Context, key string) error
	Pending(ctx context.Context, key string) (bool, error)
}

var (
	_ Scheduler = (*Memory)(nil)
	_ Scheduler = (*Redis)(nil)
)
