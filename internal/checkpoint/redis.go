package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis checkpoint backend, used by fleets
// running more than one ingestion worker that need shared visibility
// into run state (SPEC_FULL.md §4.10).
type RedisConfig struct {
	Address  string
	Password string
	Database int
	Prefix   string
	TTL      time.Duration
	Timeout  time.Duration
}

// DefaultRedisConfig mirrors the teacher's DefaultRedisConfig, renamed
// to addresskit's key prefix.
func DefaultRedisConfig(address string) RedisConfig {
	return RedisConfig{
		Address: address,
		Prefix:  "addresskit:checkpoints:",
		TTL:     7 * 24 * time.Hour,
		Timeout: 5 * time.Second,
	}
}

// RedisBackend stores run checkpoints in Redis, grounded on
// pkg/checkpoint/redis.go's RedisBackend.
type RedisBackend struct {
	cfg    RedisConfig
	client *redis.Client
}

// NewRedisBackend connects to Redis and verifies reachability.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisBackend{cfg: cfg, client: client}, nil
}

func (b *RedisBackend) key(runID string) string {
	return b.cfg.Prefix + runID
}

func (b *RedisBackend) Save(ctx context.Context, cp *RunCheckpoint) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := b.client.Set(ctx, b.key(cp.RunID), data, b.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("save checkpoint to redis: %w", err)
	}
	return nil
}

func (b *RedisBackend) Load(ctx context.Context, runID string) (*RunCheckpoint, error) {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	data, err := b.client.Get(ctx, b.key(runID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint from redis: %w", err)
	}

	var cp RunCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}

func (b *RedisBackend) Clear(ctx context.Context, runID string) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	if err := b.client.Del(ctx, b.key(runID)).Err(); err != nil {
		return fmt.Errorf("clear checkpoint in redis: %w", err)
	}
	return nil
}
