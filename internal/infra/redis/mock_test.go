//go:build !integration

package redis

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/repository"
)

// mockRedisClient mocks our Redis client wrapper. Unset funcs fall back to
// a tiny in-memory map.
type mockRedisClient struct {
	mu   sync.Mutex
	data map[string]string

	GetFunc  func(ctx context.Context, key string) (string, error)
	SetFunc  func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	IncrFunc func(ctx context.Context, key string) (int64, error)
	Expires  map[string]time.Duration
}

var _ RedisClient = (*mockRedisClient)(nil)

func newMockRedis() *mockRedisClient {
	return &mockRedisClient{data: map[string]string{}, Expires: map[string]time.Duration{}}
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	switch v := value.(type) {
	case string:
		m.data[key] = v
	case []byte:
		m.data[key] = string(v)
	}
	m.Expires[key] = expiration
	return nil
}

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	if m.IncrFunc != nil {
		return m.IncrFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, _ := strconv.ParseInt(m.data[key], 10, 64)
	n++
	m.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Expires[key] = expiration
	return nil
}

// mockInnerPurchaseRepo mocks the store the entitlement decorator wraps.
type mockInnerPurchaseRepo struct {
	ExistsCalls int
	ExistsFunc  func(ctx context.Context, user, content string) (bool, error)
	InsertFunc  func(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error)
}

var _ repository.PurchaseRepository = (*mockInnerPurchaseRepo)(nil)

func (m *mockInnerPurchaseRepo) Exists(ctx context.Context, user, content string) (bool, error) {
	m.ExistsCalls++
	return m.ExistsFunc(ctx, user, content)
}
func (m *mockInnerPurchaseRepo) Insert(ctx context.Context, rec *model.PurchaseRecord) (model.InsertResult, error) {
	return m.InsertFunc(ctx, rec)
}
func (m *mockInnerPurchaseRepo) FindByUserAndContent(ctx context.Context, user, content string) (*model.PurchaseRecord, error) {
	return nil, domain.ErrNotFound
}
func (m *mockInnerPurchaseRepo) ListByUser(ctx context.Context, user string) ([]*model.PurchaseRecord, error) {
	return nil, nil
}

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
