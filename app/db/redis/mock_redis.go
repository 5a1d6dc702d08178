package redis

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	r "github.com/go-redis/redis/v8"
)

// MockRedisClient is a mock for the Redis client in the redis package.
// Expirations are tracked against an internal clock that tests can
// advance with FastForward.
type MockRedisClient struct {
	Client
	mu       sync.Mutex
	data     map[string]interface{}
	expireAt map[string]time.Time
	now      time.Time
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data:     make(map[string]interface{}),
		expireAt: make(map[string]time.Time),
		now:      time.Now(),
	}
}

// FastForward advances the mock clock, expiring keys along the way.
func (m *MockRedisClient) FastForward(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	for key, deadline := range m.expireAt {
		if !deadline.After(m.now) {
			delete(m.data, key)
			delete(m.expireAt, key)
		}
	}
}

func (m *MockRedisClient) expired(key string) bool {
	deadline, ok := m.expireAt[key]
	return ok && !deadline.After(m.now)
}

func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	if expiration > 0 {
		m.expireAt[key] = m.now.Add(expiration)
	} else {
		delete(m.expireAt, key)
	}
	cmd := r.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *r.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewStringCmd(ctx)
	if value, ok := m.data[key]; ok && !m.expired(key) {
		strValue := fmt.Sprintf("%v", value) // Convert the value to a string
		cmd.SetVal(strValue)
	} else {
		cmd.SetVal("")
		cmd.SetErr(errors.New("key not found"))
	}
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *r.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := int64(0)
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			delete(m.expireAt, key)
			deleted++
		}
	}
	cmd := r.NewIntCmd(ctx)
	cmd.SetVal(deleted)
	return cmd
}

func (m *MockRedisClient) Keys(ctx context.Context, pattern string) *r.StringSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := []string{}
	for key := range m.data {
		if m.expired(key) {
			continue
		}
		if ok, _ := path.Match(pattern, key); ok {
			matched = append(matched, key)
		}
	}
	cmd := r.NewStringSliceCmd(ctx)
	cmd.SetVal(matched)
	return cmd
}

func (m *MockRedisClient) Ping(ctx context.Context) *r.StatusCmd {
	cmd := r.NewStatusCmd(ctx)
	cmd.SetVal("PONG")
	return cmd
}
