package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	pkgerrors "campus-planning/backend/pkg/errors"
	"campus-planning/backend/pkg/redis"
)

// Locker 排课写操作的串行化锁
// 同一周的课次创建 / 移动 / 删除以及可用性修改互斥，不同周可并行；
// 落位与实体修改 / 删除通过实体 key 互斥
type Locker interface {
	// Lock 按固定顺序获取全部 key，返回的 unlock 释放全部 key
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

func weekLockKey(week int) string { return fmt.Sprintf("timetable:week:%d", week) }

func sessionLockKey(id string) string { return "timetable:session:" + id }

// subjectLockKey 课次引用的实体（course / teacher / group / room）
// 排序须落在 session 与 week 之间：Move 持有课次锁后才申请实体锁与周锁
func subjectLockKey(kind, id string) string { return "timetable:subject:" + kind + ":" + id }

// normalizeKeys 去重并排序，保证所有调用方以相同顺序加锁
func normalizeKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ── 进程内实现（单实例部署） ──

type localLocker struct {
	mu   sync.Mutex
	keys map[string]*keyedMutex
	wait time.Duration
}

type keyedMutex struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker 创建进程内锁；wait 为单次加锁最长等待时间
func NewLocalLocker(wait time.Duration) Locker {
	return &localLocker{keys: make(map[string]*keyedMutex), wait: wait}
}

func (l *localLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	acquired := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := l.acquire(ctx, k); err != nil {
			for i := len(acquired) - 1; i >= 0; i-- {
				l.release(acquired[i])
			}
			return nil, err
		}
		acquired = append(acquired, k)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(acquired) - 1; i >= 0; i-- {
				l.release(acquired[i])
			}
		})
	}, nil
}

func (l *localLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	km, ok := l.keys[key]
	if !ok {
		km = &keyedMutex{ch: make(chan struct{}, 1)}
		l.keys[key] = km
	}
	km.refs++
	l.mu.Unlock()

	select {
	case km.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		km.refs--
		if km.refs == 0 {
			delete(l.keys, key)
		}
		l.mu.Unlock()
		return pkgerrors.ErrLockNotAcquired
	}
}

func (l *localLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	km, ok := l.keys[key]
	if !ok {
		return
	}
	<-km.ch
	km.refs--
	if km.refs == 0 {
		delete(l.keys, key)
	}
}

// ── Redis 实现（多实例部署） ──

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedisLocker 创建基于 Redis SETNX 的分布式锁
// ttl 为锁自动过期时间，防止持有者崩溃后死锁
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration, logger *zap.Logger) Locker {
	return &redisLocker{client: client, ttl: ttl, wait: wait, logger: logger}
}

const redisLockRetryInterval = 25 * time.Millisecond

func (l *redisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalizeKeys(keys)
	deadline := time.Now().Add(l.wait)

	type held struct{ key, token string }
	acquired := make([]held, 0, len(keys))
	releaseAll := func() {
		// 释放使用独立 context，请求被取消时也要归还锁
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		for i := len(acquired) - 1; i >= 0; i-- {
			if err := l.client.Unlock(rctx, acquired[i].key, acquired[i].token); err != nil {
				l.logger.Warn("释放排课锁失败", zap.String("key", acquired[i].key), zap.Error(err))
			}
		}
	}

	for _, k := range keys {
		for {
			token, ok, err := l.client.TryLock(ctx, k, l.ttl)
			if err != nil {
				releaseAll()
				return nil, fmt.Errorf("获取排课锁失败: %w", err)
			}
			if ok {
				acquired = append(acquired, held{key: k, token: token})
				break
			}
			if time.Now().After(deadline) {
				releaseAll()
				return nil, pkgerrors.ErrLockNotAcquired
			}
			select {
			case <-ctx.Done():
				releaseAll()
				return nil, pkgerrors.ErrLockNotAcquired
			case <-time.After(redisLockRetryInterval):
			}
		}
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}
