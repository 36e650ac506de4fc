package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockNotAcquired 等待超时仍未拿到合并锁
var ErrLockNotAcquired = errors.New("merge lock is held by another operation")

// ReleaseFunc 释放锁
type ReleaseFunc func(ctx context.Context) error

// Locker 按平面图串行化合并流程（读基线 -> 计算 -> 写回）
type Locker interface {
	Acquire(ctx context.Context, floorPlanID string) (ReleaseFunc, error)
}

const lockKeyPrefix = "floorplan:merge-lock:"

// releaseScript 只删除自己持有的锁（token 一致）
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker 基于 SET NX PX 的分布式锁，多实例部署时使用
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker ttl: 锁自动过期时间；wait: 获取锁的最长等待时间
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait, retry: 50 * time.Millisecond}
}

var _ Locker = (*RedisLocker)(nil)

func (l *RedisLocker) Acquire(ctx context.Context, floorPlanID string) (ReleaseFunc, error) {
	key := lockKeyPrefix + floorPlanID
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire merge lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
					return fmt.Errorf("failed to release merge lock: %w", err)
				}
				return nil
			}, nil
		}

		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("floor plan %s: %w", floorPlanID, ErrLockNotAcquired)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// MemoryLocker 单实例（无 Redis）时使用的进程内锁
type MemoryLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{slots: map[string]chan struct{}{}, wait: wait}
}

var _ Locker = (*MemoryLocker)(nil)

func (l *MemoryLocker) Acquire(ctx context.Context, floorPlanID string) (ReleaseFunc, error) {
	l.mu.Lock()
	slot, ok := l.slots[floorPlanID]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[floorPlanID] = slot
	}
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case slot <- struct{}{}:
		var once sync.Once
		return func(context.Context) error {
			once.Do(func() { <-slot })
			return nil
		}, nil
	case <-timer.C:
		return nil, fmt.Errorf("floor plan %s: %w", floorPlanID, ErrLockNotAcquired)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
