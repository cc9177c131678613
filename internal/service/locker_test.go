package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	pkgerrors "campus-planning/backend/pkg/errors"
)

func TestNormalizeKeys(t *testing.T) {
	got := normalizeKeys([]string{
		weekLockKey(3), subjectLockKey("room", "r1"), sessionLockKey("b"),
		subjectLockKey("course", "c1"), weekLockKey(3), sessionLockKey("a"),
	})
	want := []string{
		"timetable:session:a", "timetable:session:b",
		"timetable:subject:course:c1", "timetable:subject:room:r1",
		"timetable:week:3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("期望 %v，实际 %v", want, got)
	}
}

func TestLocalLocker_TimeoutWhenHeld(t *testing.T) {
	l := NewLocalLocker(50 * time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, weekLockKey(1))
	if err != nil {
		t.Fatalf("首次加锁应成功: %v", err)
	}

	if _, err := l.Lock(ctx, weekLockKey(2), weekLockKey(1)); !errors.Is(err, pkgerrors.ErrLockNotAcquired) {
		t.Fatalf("期望 ErrLockNotAcquired，实际 %v", err)
	}

	// 失败的加锁不应残留第 2 周的锁
	unlock2, err := l.Lock(ctx, weekLockKey(2))
	if err != nil {
		t.Fatalf("第 2 周应可加锁: %v", err)
	}
	unlock2()

	unlock()
	unlock() // 重复释放无副作用
	unlock3, err := l.Lock(ctx, weekLockKey(1))
	if err != nil {
		t.Fatalf("释放后应可再次加锁: %v", err)
	}
	unlock3()
}

func TestLocalLocker_DifferentWeeksInParallel(t *testing.T) {
	l := NewLocalLocker(time.Second)
	ctx := context.Background()

	u1, err := l.Lock(ctx, weekLockKey(1))
	if err != nil {
		t.Fatal(err)
	}
	defer u1()
	u2, err := l.Lock(ctx, weekLockKey(2))
	if err != nil {
		t.Fatalf("不同周应可同时持有: %v", err)
	}
	u2()
}

func TestLocalLocker_MutualExclusion(t *testing.T) {
	l := NewLocalLocker(5 * time.Second)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, weekLockKey(4), sessionLockKey("x"))
			if err != nil {
				t.Errorf("加锁失败: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("同一时刻至多一个持有者，实际 %d", maxSeen)
	}
}

// ── IdempotencyStore ──

func TestMemoryIdempotencyStore_FirstWriteWinsAndExpires(t *testing.T) {
	store := NewMemoryIdempotencyStore(time.Minute).(*memoryIdempotencyStore)
	now := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	key := idempotencyKey("create", "admin", "k1")

	if _, ok, _ := store.Get(ctx, key); ok {
		t.Fatal("空存储不应命中")
	}
	_ = store.Put(ctx, key, "s1")
	_ = store.Put(ctx, key, "s2")
	if v, ok, _ := store.Get(ctx, key); !ok || v != "s1" {
		t.Errorf("期望保留首次写入 s1，实际 %q / %v", v, ok)
	}

	if _, ok, _ := store.Get(ctx, idempotencyKey("create", "other", "k1")); ok {
		t.Error("不同调用人的幂等键应互相隔离")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := store.Get(ctx, key); ok {
		t.Error("过期后不应命中")
	}
}
