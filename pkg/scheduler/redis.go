package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// claimScript removes member only while its score is still due, so a key
// re-scheduled after the poll read it is left in place.
var claimScript = redis.NewScript(`
local score = redis.call('ZSCORE', KEYS[1], ARGV[1])
if score and tonumber(score) <= tonumber(ARGV[2]) then
	return redis.call('ZREM', KEYS[1], ARGV[1])
end
return 0
`)

// Redis keeps pending keys in a sorted set scored by due time in unix
// milliseconds. Entries survive restarts; Run must be active in at least
// one process for handlers to fire, and concurrent runners never fire the
// same entry twice.
type Redis struct {
	client    *redis.Client
	key       string
	handler   Handler
	logger    *zap.Logger
	batchSize int64
	now       func() time.Time
}

func NewRedis(client *redis.Client, key string, handler Handler, logger *zap.Logger) *Redis {
	return &Redis{
		client:    client,
		key:       key,
		handler:   handler,
		logger:    logger,
		batchSize: 100,
		now:       time.Now,
	}
}

func (r *Redis) Schedule(ctx context.Context, key string, delay time.Duration) error {
	due := r.now().Add(delay).UnixMilli()
	if err := r.client.ZAdd(ctx, r.key, &redis.Z{Score: float64(due), Member: key}).Err(); err != nil {
		return fmt.Errorf("failed to schedule %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Cancel(ctx context.Context, key string) error {
	if err := r.client.ZRem(ctx, r.key, key).Err(); err != nil {
		return fmt.Errorf("failed to cancel %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Pending(ctx context.Context, key string) (bool, error) {
	_, err := r.client.ZScore(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Poll fires every entry due now and returns how many it claimed.
func (r *Redis) Poll(ctx context.Context) (int, error) {
	now := r.now().UnixMilli()
	keys, err := r.client.ZRangeByScore(ctx, r.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now, 10),
		Count: r.batchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due entries: %w", err)
	}

	fired := 0
	for _, key := range keys {
		claimed, err := claimScript.Run(ctx, r.client, []string{r.key}, key, now).Int()
		if err != nil {
			return fired, fmt.Errorf("failed to claim %s: %w", key, err)
		}
		if claimed == 0 {
			continue
		}
		fired++
		r.handler(ctx, key)
	}
	return fired, nil
}

// Run polls every interval until ctx is done.
func (r *Redis) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Poll(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("Reminder poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
