package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestCodeRateLimiterWindow(t *testing.T) {
	limiter := NewCodeRateLimiter(time.Minute, 2)

	if !limiter.Allow("alice") {
		t.Fatal("expected first request to pass")
	}
	if !limiter.Allow("alice") {
		t.Fatal("expected second request to pass")
	}
	if limiter.Allow("alice") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("bob") {
		t.Fatal("expected other key to be independent")
	}
}

type mockRedisEvaler struct {
	lastScript string
	lastKeys   []string
	lastArgs   []interface{}
	result     int64
	err        error
}

func (m *mockRedisEvaler) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.lastScript = script
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func TestRedisCodeRateLimiterAllow(t *testing.T) {
	t.Run("empty key rejected", func(t *testing.T) {
		l := &redisCodeRateLimiter{
			client: &mockRedisEvaler{result: 1},
			window: time.Minute,
			max:    3,
			prefix: "code:rl:",
		}
		if l.Allow("   ") {
			t.Fatalf("expected empty key to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisEvaler{result: 2}
		l := &redisCodeRateLimiter{
			client: mock,
			window: 2 * time.Minute,
			max:    3,
			prefix: "code:rl:",
		}
		if !l.Allow(" Alice ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "code:rl:alice" {
			t.Fatalf("unexpected key normalization, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != 120 {
			t.Fatalf("expected TTL seconds=120, got %+v", mock.lastArgs)
		}
		if mock.lastScript != redisCodeAllowScript {
			t.Fatalf("expected script to match")
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := &redisCodeRateLimiter{
			client: &mockRedisEvaler{result: 4},
			window: time.Minute,
			max:    3,
			prefix: "code:rl:",
		}
		if l.Allow("alice") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("fail-open on redis error", func(t *testing.T) {
		l := &redisCodeRateLimiter{
			client: &mockRedisEvaler{err: errors.New("redis down")},
			window: time.Minute,
			max:    3,
			prefix: "code:rl:",
		}
		if !l.Allow("alice") {
			t.Fatalf("expected fail-open on redis error")
		}
	})
}
