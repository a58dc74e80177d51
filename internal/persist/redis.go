package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each slot as a plain string key under a prefix.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisBackend connects to Redis and verifies the connection.
func NewRedisBackend(ctx context.Context, opts RedisOptions) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return &RedisBackend{client: client, prefix: opts.KeyPrefix}, nil
}

func (b *RedisBackend) key(slot string) string {
	return b.prefix + slot
}

func (b *RedisBackend) Load(ctx context.Context, slot string) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("loading slot %s: %w", slot, err)
	}
	return data, nil
}

func (b *RedisBackend) Save(ctx context.Context, slot string, data []byte) error {
	if err := b.client.Set(ctx, b.key(slot), data, 0).Err(); err != nil {
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
