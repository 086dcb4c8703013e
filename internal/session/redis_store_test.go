package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	srv := miniredis.RunT(t)
	redisStore, err := NewRedisStore("redis://" + srv.Addr())
	if err != nil {
		t.Fatalf("create redis store: %v", err)
	}
	return redisStore, srv
}

func TestSaveAndLookupRefreshSession(t *testing.T) {
	redisStore, srv := setupTestRedis(t)
	defer redisStore.Close()
	defer srv.Close()

	ctx := context.Background()
	if err := redisStore.SaveRefreshSession(ctx, "hash-1", "usr_1", time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	user, err := redisStore.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if user.ID != "usr_1" {
		t.Fatalf("user: %+v", user)
	}
}

func TestLookupExpiredSession(t *testing.T) {
	redisStore, srv := setupTestRedis(t)
	defer redisStore.Close()
	defer srv.Close()

	ctx := context.Background()
	if err := redisStore.SaveRefreshSession(ctx, "hash-2", "usr_2", time.Now().Add(time.Millisecond)); err != nil {
		t.Fatalf("save: %v", err)
	}
	srv.FastForward(2 * time.Millisecond)

	if _, err := redisStore.LookupRefreshSession(ctx, "hash-2"); err == nil {
		t.Fatal("expected expired token lookup to fail")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	redisStore, srv := setupTestRedis(t)
	defer redisStore.Close()
	defer srv.Close()

	ctx := context.Background()
	if err := redisStore.SaveRefreshSession(ctx, "hash-3", "usr_3", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := redisStore.RevokeRefreshSession(ctx, "hash-3"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := redisStore.LookupRefreshSession(ctx, "hash-3"); err == nil {
		t.Fatal("expected revoked token lookup to fail")
	}
}
