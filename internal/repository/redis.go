package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBlobStore keeps each blob as a plain string value.
type RedisBlobStore struct {
	client redis.UniversalClient
}

func NewRedisBlobStore(client redis.UniversalClient) (*RedisBlobStore, error) {
	if client == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	return &RedisBlobStore{client: client}, nil
}

func (r *RedisBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("repository: redis get %q: %w", key, err)
	}
	return v, true, nil
}

func (r *RedisBlobStore) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("repository: redis set %q: %w", key, err)
	}
	return nil
}

func (r *RedisBlobStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("repository: redis del %q: %w", key, err)
	}
	return nil
}
