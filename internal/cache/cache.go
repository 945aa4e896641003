package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	rdb *redis.Client
}

// Connect opens a Redis connection and verifies it with a ping.
func Connect(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection test failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// MarkWebhookSeen records a delivery id and reports whether it was new.
// Returns false when the id was already present inside the TTL window,
// which is how duplicate marketplace pushes are dropped.
func (c *Client) MarkWebhookSeen(ctx context.Context, platform, deliveryID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("webhook:seen:%s:%s", platform, deliveryID)
	ok, err := c.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("webhook dedup check for %s: %w", key, err)
	}
	return ok, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
