package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kjannette/valuator-backend/internal/models"
)

const KeyPrefix = "valuator:snapshots:"

// SnapshotCache stores raw upstream bundles. Computed valuations are never
// cached. A miss returns (nil, nil).
type SnapshotCache interface {
	Get(ctx context.Context, symbol string) (*models.Snapshots, error)
	Set(ctx context.Context, s *models.Snapshots) error
	Delete(ctx context.Context, symbol string) error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func Key(symbol string) string {
	return KeyPrefix + strings.ToUpper(strings.TrimSpace(symbol))
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (*models.Snapshots, error) {
	data, err := c.client.Get(ctx, Key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", symbol, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var s models.Snapshots
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode cached snapshots %s: %w", symbol, err)
	}
	return &s, nil
}

func (c *RedisCache) Set(ctx context.Context, s *models.Snapshots) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal snapshots %s: %w", s.Symbol, err)
	}
	if err := c.client.Set(ctx, Key(s.Symbol), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.Symbol, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, symbol string) error {
	if err := c.client.Del(ctx, Key(symbol)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", symbol, err)
	}
	return nil
}

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.Snapshots, error) { return nil, nil }
func (Noop) Set(context.Context, *models.Snapshots) error          { return nil }
func (Noop) Delete(context.Context, string) error                  { return nil }
