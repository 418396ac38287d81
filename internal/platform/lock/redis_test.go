package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	l := NewRedisLocker(client, 10*time.Second, zerolog.Nop())
	l.pollInterval = 5 * time.Millisecond
	return l, mr
}

func TestRedisLocker_TryLock(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	ok, token, err := l.TryLock(ctx, "maternal-lab:profile:p1")
	if err != nil || !ok || token == "" {
		t.Fatalf("expected lock, got ok=%v token=%q err=%v", ok, token, err)
	}
	if got, _ := mr.Get("maternal-lab:profile:p1"); got != token {
		t.Errorf("expected stored token %q, got %q", token, got)
	}
	if ttl := mr.TTL("maternal-lab:profile:p1"); ttl != 10*time.Second {
		t.Errorf("expected 10s ttl, got %v", ttl)
	}

	ok, _, err = l.TryLock(ctx, "maternal-lab:profile:p1")
	if err != nil || ok {
		t.Errorf("expected second attempt to fail, got ok=%v err=%v", ok, err)
	}
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("k") {
		t.Fatal("expected key to exist while held")
	}
	unlock()
	if mr.Exists("k") {
		t.Error("expected key to be deleted on unlock")
	}
}

func TestRedisLocker_WaitsForHolder(t *testing.T) {
	l, _ := newTestRedisLocker(t)
	ctx := context.Background()

	unlock, _ := l.Lock(ctx, "k")
	go func() {
		time.Sleep(30 * time.Millisecond)
		unlock()
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	second, err := l.Lock(waitCtx, "k")
	if err != nil {
		t.Fatalf("expected to acquire after release, got %v", err)
	}
	second()
}

func TestRedisLocker_ContextCancelled(t *testing.T) {
	l, _ := newTestRedisLocker(t)
	unlock, _ := l.Lock(context.Background(), "k")
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRedisLocker_UnlockChecksOwnership(t *testing.T) {
	l, mr := newTestRedisLocker(t)
	ctx := context.Background()

	_, token, _ := l.TryLock(ctx, "k")
	mr.Set("k", "someone-else")

	if err := l.Unlock(ctx, "k", token); !errors.Is(err, ErrLockNotOwned) {
		t.Errorf("expected ErrLockNotOwned, got %v", err)
	}
	if got, _ := mr.Get("k"); got != "someone-else" {
		t.Error("unlock must not delete a lock held by another client")
	}
}
