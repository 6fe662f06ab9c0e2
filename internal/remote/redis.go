package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/tally/pkg/types"
)

const defaultKeyPrefix = "tally:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps each row as a hash at <prefix><table>:<user> with data
// and updated_at fields.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (s *RedisStore) key(table types.DocKind, userID string) string {
	return s.keyPrefix + string(table) + ":" + userID
}

// Upsert overwrites both hash fields in one command.
func (s *RedisStore) Upsert(ctx context.Context, table types.DocKind, userID string, payload json.RawMessage) error {
	if err := checkArgs(table, userID); err != nil {
		return err
	}
	if err := checkPayload(payload); err != nil {
		return err
	}
	err := s.client.HSet(ctx, s.key(table, userID),
		"data", string(payload),
		"updated_at", s.now().UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("remote upsert %s: %w", table, err)
	}
	return nil
}

// FetchOne reads the data field.
func (s *RedisStore) FetchOne(ctx context.Context, table types.DocKind, userID string) (json.RawMessage, error) {
	if err := checkArgs(table, userID); err != nil {
		return nil, err
	}
	data, err := s.client.HGet(ctx, s.key(table, userID), "data").Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("remote fetch %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
