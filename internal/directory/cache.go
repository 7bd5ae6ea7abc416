package directory

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/yourorg/editor-api/internal/redisx"
)

type cachedEnvelope struct {
	Options []Option `json:"options"`
	Meta    struct {
		LastFetch  time.Time `json:"last_fetch_at"`
		StaleAfter time.Time `json:"stale_after"`
	} `json:"meta"`
}

// Cache serves selector directories redis-first with stale-while-revalidate:
// a stale hit is served immediately and refreshed in the background. Lookup
// failures are logged and degrade to an empty list; the selectors are never
// a blocking dependency of the editor.
type Cache struct {
	Redis      *redisx.Client
	Client     *Client
	CacheTTL   time.Duration
	StaleAfter time.Duration

	refresh *refresher
}

func NewCache(rdb *redisx.Client, client *Client, ttl, staleAfter time.Duration) *Cache {
	c := &Cache{Redis: rdb, Client: client, CacheTTL: ttl, StaleAfter: staleAfter}
	c.refresh = newRefresher(16, 1, func(ctx context.Context, kind Kind) {
		if err := c.Refresh(ctx, kind); err != nil {
			log.Printf("[WARN] directory refresh %s failed: %v", kind, err)
		}
	})
	return c
}

func cacheKey(kind Kind) string { return "dir:" + string(kind) }

// Options returns the selector list for a kind, from cache when possible.
func (c *Cache) Options(ctx context.Context, kind Kind) []Option {
	if c.Redis != nil {
		if val, err := c.Redis.Get(ctx, cacheKey(kind)); err == nil && val != "" {
			var env cachedEnvelope
			if err := json.Unmarshal([]byte(val), &env); err == nil {
				if time.Now().After(env.Meta.StaleAfter) {
					c.refresh.enqueue(kind)
				}
				return env.Options
			}
		}
	}
	opts, err := c.fetchAndStore(ctx, kind)
	if err != nil {
		log.Printf("[WARN] directory lookup %s failed: %v", kind, err)
		return []Option{}
	}
	return opts
}

// Refresh fetches a directory list and rewrites its cache entry.
func (c *Cache) Refresh(ctx context.Context, kind Kind) error {
	_, err := c.fetchAndStore(ctx, kind)
	return err
}

func (c *Cache) fetchAndStore(ctx context.Context, kind Kind) ([]Option, error) {
	opts, err := c.Client.List(ctx, kind)
	if err != nil {
		return nil, err
	}
	if c.Redis != nil {
		var env cachedEnvelope
		env.Options = opts
		env.Meta.LastFetch = time.Now()
		env.Meta.StaleAfter = env.Meta.LastFetch.Add(maxDur(c.StaleAfter, 5*time.Minute))
		b, _ := json.Marshal(env)
		_ = c.Redis.Set(ctx, cacheKey(kind), string(b), maxDur(c.CacheTTL, time.Hour))
	}
	return opts, nil
}

func maxDur(a, b time.Duration) time.Duration {
	if a > 0 {
		return a
	}
	return b
}
