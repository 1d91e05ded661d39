package loader

import (
	"context"
	"errors"

	backend "github.com/redis/go-redis/v9"
)

// Redis loads documents stored as plain string values.
type Redis struct {
	client backend.UniversalClient
	prefix string
}

type RedisOption func(*Redis)

// WithKeyPrefix sets the prefix prepended to every decision key.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		r.prefix = prefix
	}
}

func NewRedis(address, password string, db int, opts ...RedisOption) *Redis {
	return NewRedisFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}), opts...)
}

func NewRedisFromClient(client backend.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: "decision:"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, backendFailure(key, err)
	}
	return data, nil
}

// Put stores a document under key.
func (r *Redis) Put(ctx context.Context, key string, content []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, content, 0).Err(); err != nil {
		return backendFailure(key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
