package service

import (
	"context"
	"sync"
	"time"

	"campus-planning/backend/pkg/redis"
)

// IdempotencyStore 保存幂等键对应的课次 ID，客户端盲重试时返回同一结果
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, sessionID string) error
}

// ── 进程内实现 ──

type memoryIdempotencyStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]idemEntry
	now     func() time.Time
}

type idemEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryIdempotencyStore 创建带过期时间的进程内幂等存储
func NewMemoryIdempotencyStore(ttl time.Duration) IdempotencyStore {
	return &memoryIdempotencyStore{ttl: ttl, entries: make(map[string]idemEntry), now: time.Now}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", false, nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *memoryIdempotencyStore) Put(_ context.Context, key, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// 顺带清理过期条目
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	if _, exists := s.entries[key]; !exists {
		s.entries[key] = idemEntry{value: sessionID, expiresAt: now.Add(s.ttl)}
	}
	return nil
}

// ── Redis 实现 ──

type redisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotencyStore 创建 Redis 幂等存储
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) IdempotencyStore {
	return &redisIdempotencyStore{client: client, ttl: ttl}
}

func (s *redisIdempotencyStore) Get(ctx context.Context, key string) (string, bool, error) {
	return s.client.GetIdempotent(ctx, key)
}

func (s *redisIdempotencyStore) Put(ctx context.Context, key, sessionID string) error {
	return s.client.SetIdempotent(ctx, key, sessionID, s.ttl)
}

// idempotencyKey 幂等键按操作与调用人隔离
func idempotencyKey(op, callerID, clientKey string) string {
	return op + ":" + callerID + ":" + clientKey
}
