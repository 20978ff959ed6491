package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis so callers depend on a narrow surface.
type Client struct {
	rdb *redis.Client
}

func NewClient(addr string) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
	}
}

// GetClient exposes the underlying client for pipelines etc.
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// GetBytes returns the value at key, or (nil, nil) on a miss.
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SetBytes stores value at key with ttl.
func (c *Client) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Delete removes keys; missing keys are not an error.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
