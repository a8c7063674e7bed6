package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mmdatafocus/brokerage_backend/config"
	"github.com/redis/go-redis/v9"
)

func withMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	config.SetRedisClient(client)
	t.Cleanup(func() {
		config.SetRedisClient(nil)
		_ = client.Close()
	})
	return mr
}

func TestObtainLock_WithoutRedisIsNoop(t *testing.T) {
	config.SetRedisClient(nil)
	release, ok, err := ObtainLock(context.Background(), "lock:test", time.Second, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false without redis")
	}
	release()
}

func TestObtainLock_ExcludesSecondHolder(t *testing.T) {
	mr := withMiniRedis(t)
	ctx := context.Background()

	release, ok, err := ObtainLock(ctx, "lock:escrow-seq:2024", 5*time.Second, 0)
	if err != nil || !ok {
		t.Fatalf("first obtain: ok=%v err=%v", ok, err)
	}
	if !mr.Exists("lock:escrow-seq:2024") {
		t.Fatalf("expected lock key in redis")
	}

	_, ok, err = ObtainLock(ctx, "lock:escrow-seq:2024", 5*time.Second, 0)
	if ok || !errors.Is(err, ErrorLockNotObtained) {
		t.Fatalf("second obtain: expected ErrorLockNotObtained, got ok=%v err=%v", ok, err)
	}

	release()
	if mr.Exists("lock:escrow-seq:2024") {
		t.Fatalf("expected lock key released")
	}

	release2, ok, err := ObtainLock(ctx, "lock:escrow-seq:2024", 5*time.Second, 0)
	if err != nil || !ok {
		t.Fatalf("obtain after release: ok=%v err=%v", ok, err)
	}
	release2()
}
