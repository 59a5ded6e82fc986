package ratelimit

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type fakeLockClient struct {
	setNXResult bool
	setNXErr    error
	lastKey     string
	lastValue   string
	released    int
}

func (f *fakeLockClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	f.lastKey = key
	if s, ok := value.(string); ok {
		f.lastValue = s
	}
	return redis.NewBoolResult(f.setNXResult, f.setNXErr)
}

func (f *fakeLockClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.released++
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeLockClient) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeLockClient) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	f.released++
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeLockClient) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeLockClient) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult([]bool{true}, nil)
}

func (f *fakeLockClient) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", nil)
}

func newTestLocker(client lockClient) *Locker {
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
	}
}

func TestTryLockAcquiredReturnsToken(t *testing.T) {
	client := &fakeLockClient{setNXResult: true}
	locker := newTestLocker(client)

	token, acquired, err := locker.TryLock(context.Background(), "reminder:dispatch:lock:42", 30*time.Second)
	if err != nil {
		t.Fatalf("try lock: %v", err)
	}
	if !acquired {
		t.Fatal("expected lock to be acquired")
	}
	if token == "" {
		t.Fatal("expected a fencing token for the held lock")
	}
	if client.lastValue != token {
		t.Fatalf("stored value %q does not match returned token %q", client.lastValue, token)
	}
}

func TestTryLockContendedReturnsNoToken(t *testing.T) {
	client := &fakeLockClient{setNXResult: false}
	locker := newTestLocker(client)

	token, acquired, err := locker.TryLock(context.Background(), "reminder:dispatch:lock:42", 30*time.Second)
	if err != nil {
		t.Fatalf("try lock: %v", err)
	}
	if acquired {
		t.Fatal("expected lock to be held by someone else")
	}
	if token != "" {
		t.Fatalf("expected no token when the lock is contended, got %q", token)
	}
}

func TestTryLockValidatesArguments(t *testing.T) {
	locker := newTestLocker(&fakeLockClient{setNXResult: true})

	if _, _, err := locker.TryLock(context.Background(), "", time.Second); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, _, err := locker.TryLock(context.Background(), "some:key", 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestNilLockerAllowsEverything(t *testing.T) {
	var locker *Locker

	token, acquired, err := locker.TryLock(context.Background(), "some:key", time.Second)
	if err != nil || !acquired || token != "" {
		t.Fatalf("nil locker must allow: token=%q acquired=%v err=%v", token, acquired, err)
	}
	if err := locker.Release(context.Background(), "some:key", "token"); err != nil {
		t.Fatalf("nil locker release: %v", err)
	}
}
