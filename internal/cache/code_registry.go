package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeRegistry reserves session join codes so that no two live sessions share
// one, including sessions held by other server instances.
type CodeRegistry interface {
	Reserve(ctx context.Context, code string) (bool, error)
	Release(ctx context.Context, code string) error
	Exists(ctx context.Context, code string) (bool, error)
}

type redisCodeRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCodeRegistry creates a Redis backed code registry
func NewCodeRegistry(client *redis.Client, ttl time.Duration) CodeRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisCodeRegistry{
		client: client,
		ttl:    ttl,
	}
}

func (c *redisCodeRegistry) key(code string) string {
	return fmt.Sprintf("room-code:%s", code)
}

func (c *redisCodeRegistry) Reserve(ctx context.Context, code string) (bool, error) {
	return c.client.SetNX(ctx, c.key(code), time.Now().Unix(), c.ttl).Result()
}

func (c *redisCodeRegistry) Release(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.key(code)).Err()
}

func (c *redisCodeRegistry) Exists(ctx context.Context, code string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(code)).Result()
	return n > 0, err
}

type memoryCodeRegistry struct {
	mu    sync.Mutex
	codes map[string]struct{}
}

// NewMemoryCodeRegistry creates a process-local code registry
func NewMemoryCodeRegistry() CodeRegistry {
	return &memoryCodeRegistry{codes: make(map[string]struct{})}
}

func (c *memoryCodeRegistry) Reserve(_ context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, taken := c.codes[code]; taken {
		return false, nil
	}
	c.codes[code] = struct{}{}
	return true, nil
}

func (c *memoryCodeRegistry) Release(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.codes, code)
	return nil
}

func (c *memoryCodeRegistry) Exists(_ context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, taken := c.codes[code]
	return taken, nil
}
