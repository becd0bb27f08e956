package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"rank-api/pkg/logging"
)

// OrderLock serializes concurrent deliveries of the same order.
type OrderLock interface {
	// Acquire returns a release func, or ErrOrderInFlight when the order is held.
	Acquire(ctx context.Context, orderID string) (func(), error)
}

const orderLockTTL = 2 * time.Minute

// RedisOrderLock holds orders with SET NX so several instances share the lock.
// Each holder stores its own token and only deletes the key while it still owns it.
type RedisOrderLock struct {
	client *redis.Client
	ttl    time.Duration
}

var releaseOrderLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisOrderLock(client *redis.Client) *RedisOrderLock {
	return &RedisOrderLock{client: client, ttl: orderLockTTL}
}

func orderLockKey(orderID string) string {
	return fmt.Sprintf("order_lock:%s", orderID)
}

func (l *RedisOrderLock) Acquire(ctx context.Context, orderID string) (func(), error) {
	key := orderLockKey(orderID)
	token := uuid.New().String()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire order lock: %w", err)
	}
	if !ok {
		return nil, ErrOrderInFlight
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// background: the request context may already be done
			if err := releaseOrderLock.Run(context.Background(), l.client, []string{key}, token).Err(); err != nil {
				logging.Warnf("Failed to release order lock %s: %v", key, err)
			}
		})
	}, nil
}

// LocalOrderLock is the single-instance lock used when Redis is not configured.
type LocalOrderLock struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalOrderLock() *LocalOrderLock {
	return &LocalOrderLock{held: make(map[string]struct{})}
}

func (l *LocalOrderLock) Acquire(_ context.Context, orderID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[orderID]; ok {
		return nil, ErrOrderInFlight
	}
	l.held[orderID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, orderID)
			l.mu.Unlock()
		})
	}, nil
}
