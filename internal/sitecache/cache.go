// Package sitecache keeps the currently published HTML per domain in
// Redis so the public serve path does not hit the object store on every
// request. It is write-through on publish and invalidated on teardown;
// a cold or unreachable cache just falls back to the object store.
package sitecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	siteKeyPrefix = "site:html:" // site:html:{domain} -> published HTML bytes
	siteTTL       = 24 * time.Hour
)

// ErrMiss is returned when the domain has no cached snapshot.
var ErrMiss = errors.New("cache miss")

type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) key(domain string) string { return siteKeyPrefix + domain }

func (c *Cache) Set(ctx context.Context, domain string, html []byte) error {
	if err := c.client.Set(ctx, c.key(domain), html, siteTTL).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", domain, err)
	}
	return nil
}

func (c *Cache) Get(ctx context.Context, domain string) ([]byte, error) {
	b, err := c.client.Get(ctx, c.key(domain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", domain, err)
	}
	return b, nil
}

func (c *Cache) Invalidate(ctx context.Context, domain string) error {
	if err := c.client.Del(ctx, c.key(domain)).Err(); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", domain, err)
	}
	return nil
}
