package redis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Fatalf("expected allowed on first request")
	}
	if count != 1 {
		t.Fatalf("expected counter 1 got %d", count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expected expire for first increment")
	}

	allowed, count, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 2 {
		t.Fatalf("unexpected second call state allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again")
	}

	allowed, _, err = client.FixedWindowAllow(ctx, "test-scope", 2, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected limit reached")
	}
}

func TestConditionScanAndFetch(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Set(ctx, client.ConditionKey("abc"), `{"type":"pothole"}`, 30*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := client.Set(ctx, client.ConditionKey("def"), `{"type":"accident"}`, 30*time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := client.Set(ctx, client.CounterKey("hits"), "1", 0); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	keys, err := client.ScanKeys(ctx, client.ConditionPattern())
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "cl:condition:abc" || keys[1] != "cl:condition:def" {
		t.Fatalf("unexpected keys %v", keys)
	}

	values, err := client.MGet(ctx, keys...)
	if err != nil {
		t.Fatalf("mget failed: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 values got %d", len(values))
	}
	if values[0] != `{"type":"pothole"}` {
		t.Fatalf("unexpected first value %v", values[0])
	}
}

func TestMGetEmptyKeys(t *testing.T) {
	client := &Client{store: newMockCmdable()}
	values, err := client.MGet(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values != nil {
		t.Fatalf("expected nil result for no keys, got %v", values)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.ConditionKey("report-1"); got != "cl:condition:report-1" {
		t.Fatalf("unexpected condition key %s", got)
	}
	if got := client.ConditionPattern(); got != "cl:condition:*" {
		t.Fatalf("unexpected condition pattern %s", got)
	}
	if got := client.RateLimitKey("scope"); got != "cl:rate_limit:scope" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.CounterKey("hits"); got != "cl:counter:hits" {
		t.Fatalf("unexpected counter key %s", got)
	}
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	out := make([]any, 0, len(keys))
	for _, key := range keys {
		if v, ok := m.data[key]; ok {
			out = append(out, v)
		} else {
			out = append(out, nil)
		}
	}
	return redis.NewSliceResult(out, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}
