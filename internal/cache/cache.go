// Package cache is a best-effort Redis layer. Every failure reads as a miss, so
// nothing above it depends on Redis being up.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "authcore:"
	dialTimeout = 500 * time.Millisecond
	opTimeout   = 250 * time.Millisecond
)

// Client namespaces keys under "authcore:" and swallows connectivity errors.
// A nil *Client behaves like an empty, unreachable cache.
type Client struct {
	rdb    *redis.Client
	prefix string
}

// New connects lazily to the Redis at addr.
func New(addr, password string, db int) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  dialTimeout,
			ReadTimeout:  opTimeout,
			WriteTimeout: opTimeout,
			MaxRetries:   -1,
		}),
		prefix: keyPrefix,
	}
}

func (c *Client) usable() bool {
	return c != nil && c.rdb != nil
}

func (c *Client) key(k string) string {
	return c.prefix + k
}

// Available pings redis and reports whether it answered.
func (c *Client) Available(ctx context.Context) bool {
	return c.usable() && c.rdb.Ping(ctx).Err() == nil
}

// Get returns the value, or nil on a miss or when redis is unreachable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if !c.usable() {
		return nil, nil
	}
	return bytesOrMiss(c.rdb.Get(ctx, c.key(key)).Bytes())
}

// Take returns the value and deletes the key in one step, so a value is used once.
func (c *Client) Take(ctx context.Context, key string) ([]byte, error) {
	if !c.usable() {
		return nil, nil
	}
	return bytesOrMiss(c.rdb.GetDel(ctx, c.key(key)).Bytes())
}

// Set stores value with ttl. Write failures are dropped.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.usable() {
		_ = c.rdb.Set(ctx, c.key(key), value, ttl).Err()
	}
	return nil
}

// Delete removes keys. Failures are dropped; entries then age out by TTL.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if !c.usable() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	_ = c.rdb.Del(ctx, full...).Err()
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if !c.usable() {
		return nil
	}
	return c.rdb.Close()
}

// bytesOrMiss folds redis.Nil and connectivity errors into a miss.
func bytesOrMiss(b []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, nil
	}
	return b, nil
}
