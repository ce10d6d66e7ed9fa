package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-redis/redis/v8"
)

// RedisKV stores each key as a plain Redis string.
type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := r.c.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("loading %s: %w", key, err)
	}
	return val, nil
}

func (r *RedisKV) Save(ctx context.Context, key string, value []byte) error {
	if err := r.c.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.c.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (r *RedisKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	var cursor uint64
	for {
		k, next, err := r.c.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning keys: %w", err)
		}
		keys = append(keys, k...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

var (
	_ KV = (*MemoryKV)(nil)
	_ KV = (*SQLKV)(nil)
	_ KV = (*RedisKV)(nil)
)
