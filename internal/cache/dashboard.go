// Package cache stores the dashboard loan classification in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	dashboardKey = "dashboard:loan-status"
	versionKey   = "dashboard:loan-status:version"
)

// DashboardCache holds the latest classification. A miss returns nil, nil.
//
// Every Invalidate bumps a version. Callers read Version before loading the data
// they classify and pass it to Set; Get ignores entries stored under an older
// version, so a result computed before a write never outlives that write.
type DashboardCache interface {
	Get(ctx context.Context) (*domain.LoanClassification, error)
	Version(ctx context.Context) (int64, error)
	Set(ctx context.Context, classification *domain.LoanClassification, version int64) error
	Invalidate(ctx context.Context) error
}

// redisClient is the subset of *redis.Client the cache uses.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

type entry struct {
	Version        int64                      `json:"version"`
	Classification *domain.LoanClassification `json:"classification"`
}

type RedisDashboardCache struct {
	client redisClient
	ttl    time.Duration
}

func NewRedisDashboardCache(client redisClient, ttl time.Duration) *RedisDashboardCache {
	return &RedisDashboardCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RedisDashboardCache) Get(ctx context.Context) (*domain.LoanClassification, error) {
	values, err := c.client.MGet(ctx, dashboardKey, versionKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard cache: %w", err)
	}
	if len(values) != 2 || values[0] == nil {
		return nil, nil
	}

	raw, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("failed to decode dashboard cache: unexpected %T", values[0])
	}
	var cached entry
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard cache: %w", err)
	}

	current, err := parseVersion(values[1])
	if err != nil {
		return nil, err
	}
	if cached.Version != current {
		return nil, nil
	}
	return cached.Classification, nil
}

func (c *RedisDashboardCache) Version(ctx context.Context) (int64, error) {
	version, err := c.client.Get(ctx, versionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read dashboard cache version: %w", err)
	}
	return version, nil
}

func (c *RedisDashboardCache) Set(ctx context.Context, classification *domain.LoanClassification, version int64) error {
	raw, err := json.Marshal(entry{Version: version, Classification: classification})
	if err != nil {
		return fmt.Errorf("failed to encode dashboard cache: %w", err)
	}
	if err := c.client.Set(ctx, dashboardKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dashboard cache: %w", err)
	}
	return nil
}

func (c *RedisDashboardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, versionKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	if err := c.client.Del(ctx, dashboardKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate dashboard cache: %w", err)
	}
	return nil
}

func parseVersion(value interface{}) (int64, error) {
	if value == nil {
		return 0, nil
	}
	raw, ok := value.(string)
	if !ok {
		return 0, fmt.Errorf("failed to decode dashboard cache version: unexpected %T", value)
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to decode dashboard cache version: %w", err)
	}
	return version, nil
}

// NoopCache never holds anything. Used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context) (*domain.LoanClassification, error) { return nil, nil }

func (NoopCache) Version(context.Context) (int64, error) { return 0, nil }

func (NoopCache) Set(context.Context, *domain.LoanClassification, int64) error { return nil }

func (NoopCache) Invalidate(context.Context) error { return nil }
