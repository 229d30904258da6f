package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/desertthunder/plcover/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// setupTestRedis starts a miniredis server and returns a client connected to it
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close(); mr.Close() })
	return mr, rdb
}

type backend struct {
	name  string
	setup func(t *testing.T) KV
}

func backends() []backend {
	return []backend{
		{name: "memory", setup: func(t *testing.T) KV { return NewMemoryKV() }},
		{name: "sqlite", setup: func(t *testing.T) KV { return NewSQLiteKV(setupTestDB(t)) }},
		{name: "redis", setup: func(t *testing.T) KV {
			_, rdb := setupTestRedis(t)
			return NewRedisKV(rdb, "plcover:test")
		}},
	}
}

func TestKV(t *testing.T) {
	ctx := context.Background()

	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Run("Get on empty store returns empty map", func(t *testing.T) {
				kv := b.setup(t)
				got, err := kv.Get(ctx, "token", "expires")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(got) != 0 {
					t.Errorf("expected empty map, got %v", got)
				}
			})

			t.Run("Put then Get returns written values", func(t *testing.T) {
				kv := b.setup(t)
				err := kv.Put(ctx, map[string]string{"token": "abc", "refreshToken": "def", "expires": "1700000000000"})
				if err != nil {
					t.Fatalf("failed to put: %v", err)
				}

				got, err := kv.Get(ctx, "token", "refreshToken", "expires", "missing")
				if err != nil {
					t.Fatalf("failed to get: %v", err)
				}
				if len(got) != 3 {
					t.Fatalf("expected 3 values, got %d: %v", len(got), got)
				}
				if got["token"] != "abc" || got["refreshToken"] != "def" || got["expires"] != "1700000000000" {
					t.Errorf("unexpected values: %v", got)
				}
				if _, ok := got["missing"]; ok {
					t.Error("missing key should be absent")
				}
			})

			t.Run("Put overwrites existing keys", func(t *testing.T) {
				kv := b.setup(t)
				if err := kv.Put(ctx, map[string]string{"token": "old"}); err != nil {
					t.Fatalf("failed to put: %v", err)
				}
				if err := kv.Put(ctx, map[string]string{"token": "new"}); err != nil {
					t.Fatalf("failed to put: %v", err)
				}

				got, _ := kv.Get(ctx, "token")
				if got["token"] != "new" {
					t.Errorf("expected new, got %q", got["token"])
				}
			})

			t.Run("Delete removes only named keys", func(t *testing.T) {
				kv := b.setup(t)
				if err := kv.Put(ctx, map[string]string{"token": "a", "state": "b", "clientId": "c"}); err != nil {
					t.Fatalf("failed to put: %v", err)
				}
				if err := kv.Delete(ctx, "token", "state", "never-set"); err != nil {
					t.Fatalf("failed to delete: %v", err)
				}

				got, _ := kv.Get(ctx, "token", "state", "clientId")
				if len(got) != 1 || got["clientId"] != "c" {
					t.Errorf("expected only clientId to remain, got %v", got)
				}
			})

			t.Run("empty calls are no-ops", func(t *testing.T) {
				kv := b.setup(t)
				if err := kv.Put(ctx, nil); err != nil {
					t.Errorf("Put(nil) error: %v", err)
				}
				if err := kv.Delete(ctx); err != nil {
					t.Errorf("Delete() error: %v", err)
				}
				got, err := kv.Get(ctx)
				if err != nil || len(got) != 0 {
					t.Errorf("Get() = %v, %v", got, err)
				}
			})
		})
	}
}

func TestRedisKV(t *testing.T) {
	ctx := context.Background()

	t.Run("stores fields in a single hash", func(t *testing.T) {
		mr, rdb := setupTestRedis(t)
		kv := NewRedisKV(rdb, "plcover:session")

		if err := kv.Put(ctx, map[string]string{"token": "abc", "state": "xyz"}); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		if got := mr.HGet("plcover:session", "token"); got != "abc" {
			t.Errorf("expected hash field token=abc, got %q", got)
		}
		if keys := mr.Keys(); len(keys) != 1 {
			t.Errorf("expected one redis key, got %v", keys)
		}
	})

	t.Run("default key", func(t *testing.T) {
		_, rdb := setupTestRedis(t)
		kv := NewRedisKV(rdb, "")
		if kv.key != "plcover:session" {
			t.Errorf("expected default key, got %q", kv.key)
		}
	})

	t.Run("DialRedis", func(t *testing.T) {
		mr, _ := setupTestRedis(t)
		addr := mr.Addr()

		client, err := DialRedis(ctx, addr)
		if err != nil {
			t.Fatalf("failed to dial: %v", err)
		}
		client.Close()

		mr.Close()
		if _, err := DialRedis(ctx, addr); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable dialing closed server, got %v", err)
		}
	})

	t.Run("returns error when server is down", func(t *testing.T) {
		mr, rdb := setupTestRedis(t)
		kv := NewRedisKV(rdb, "plcover:session")
		mr.Close()

		if _, err := kv.Get(ctx, "token"); err == nil {
			t.Error("expected error from Get")
		}
		if err := kv.Put(ctx, map[string]string{"token": "a"}); err == nil {
			t.Error("expected error from Put")
		}
	})
}

func TestSQLiteKV(t *testing.T) {
	t.Run("Put is atomic", func(t *testing.T) {
		db := setupTestDB(t)
		kv := NewSQLiteKV(db)
		ctx := context.Background()

		if err := kv.Put(ctx, map[string]string{"token": "keep"}); err != nil {
			t.Fatalf("failed to put: %v", err)
		}

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		if err := kv.Put(cancelled, map[string]string{"token": "lost", "expires": "1"}); err == nil {
			t.Fatal("expected error for cancelled context")
		}

		got, _ := kv.Get(ctx, "token", "expires")
		if got["token"] != "keep" {
			t.Errorf("expected token to be unchanged, got %q", got["token"])
		}
		if _, ok := got["expires"]; ok {
			t.Error("expires should not have been written")
		}
	})
}
