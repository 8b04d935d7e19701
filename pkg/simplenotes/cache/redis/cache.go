// Package redis caches public library trees in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-notes/pkg/simplenotes"
)

// DefaultTTL bounds how long a cached tree may outlive a missed invalidation.
const DefaultTTL = 10 * time.Minute

// Cache implements simplenotes.PublicCache on a Redis client
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to redisURL and verifies the connection
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client, ttl), nil
}

// NewWithClient creates a cache from an existing Redis client
func NewWithClient(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: client,
		prefix: "public-tree:",
		ttl:    ttl,
	}
}

func (c *Cache) key(libraryID uuid.UUID) string {
	return c.prefix + libraryID.String()
}

// GetTree returns the cached tree; ok is false on a miss.
func (c *Cache) GetTree(ctx context.Context, libraryID uuid.UUID) ([]*simplenotes.TreeNode, bool, error) {
	raw, err := c.client.Get(ctx, c.key(libraryID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get public tree: %w", err)
	}

	var tree []*simplenotes.TreeNode
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, false, fmt.Errorf("unmarshal public tree: %w", err)
	}
	if tree == nil {
		tree = []*simplenotes.TreeNode{}
	}
	return tree, true, nil
}

func (c *Cache) SetTree(ctx context.Context, libraryID uuid.UUID, tree []*simplenotes.TreeNode) error {
	raw, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal public tree: %w", err)
	}
	if err := c.client.Set(ctx, c.key(libraryID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("save public tree: %w", err)
	}
	return nil
}

// Invalidate drops the cached trees of the given libraries
func (c *Cache) Invalidate(ctx context.Context, libraryIDs ...uuid.UUID) error {
	if len(libraryIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(libraryIDs))
	for _, id := range libraryIDs {
		keys = append(keys, c.key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate public trees: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

var _ simplenotes.PublicCache = (*Cache)(nil)
