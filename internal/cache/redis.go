package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ashureev/virtue-stages/internal/domain"
)

const (
	redisKeyPrefix  = "virtue-stages:coverage:"
	redisMarkPrefix = "virtue-stages:coverage-mark:"
)

// Redis shares verdicts between server instances.
type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Redis{rdb: rdb, ttl: ttl}, nil
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (domain.CoverageState, bool, error) {
	var state domain.CoverageState
	ok, err := r.getJSON(ctx, redisKeyPrefix+key, &state)
	return state, ok, err
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, state domain.CoverageState) error {
	return r.setJSON(ctx, redisKeyPrefix+key, state)
}

// GetMark implements Cache.
func (r *Redis) GetMark(ctx context.Context, key string) (Mark, bool, error) {
	var mark Mark
	ok, err := r.getJSON(ctx, redisMarkPrefix+key, &mark)
	return mark, ok, err
}

// SetMark implements Cache.
func (r *Redis) SetMark(ctx context.Context, key string, mark Mark) error {
	return r.setJSON(ctx, redisMarkPrefix+key, mark)
}

func (r *Redis) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode cached value: %w", err)
	}
	return true, nil
}

func (r *Redis) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cached value: %w", err)
	}
	if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
