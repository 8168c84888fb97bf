package lock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not available: %v", err)
	}

	res, err := pool.Run("redis", "7-alpine", nil)
	if err != nil {
		t.Fatalf("starting redis: %v", err)
	}
	t.Cleanup(func() {
		pool.Purge(res)
	})

	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("localhost:%s", res.GetPort("6379/tcp")),
	})

	if err := pool.Retry(func() error {
		return client.Ping(context.Background()).Err()
	}); err != nil {
		t.Fatalf("connecting to redis: %v", err)
	}
	return client
}

func TestRedisLock(t *testing.T) {
	client := startRedis(t)

	log := logrus.New()
	log.SetOutput(io.Discard)

	l := NewRedis(client, "checkout:", time.Minute, log)

	unlock, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "user-1"); !errors.Is(err, ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired while held, got %v", err)
	}

	unlock()

	unlock, err = l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("lock should be free after unlock: %v", err)
	}
	unlock()
}

func TestRedisLockExpires(t *testing.T) {
	client := startRedis(t)

	log := logrus.New()
	log.SetOutput(io.Discard)

	l := NewRedis(client, "checkout:", 100*time.Millisecond, log)

	if _, err := l.Lock(context.Background(), "user-1"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	unlock, err := l.Lock(ctx, "user-1")
	if err != nil {
		t.Fatalf("an abandoned lock should expire: %v", err)
	}
	unlock()
}

func TestRedisUnlockKeepsForeignHolder(t *testing.T) {
	client := startRedis(t)

	log := logrus.New()
	log.SetOutput(io.Discard)

	l := NewRedis(client, "checkout:", 100*time.Millisecond, log)

	stale, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	unlock, err := l.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	stale()

	if n, err := client.Exists(context.Background(), "checkout:user-1").Result(); err != nil || n != 1 {
		t.Fatalf("stale unlock released the current holder: n=%d err=%v", n, err)
	}
}
