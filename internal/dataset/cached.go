package dataset

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"riskdash/internal/core"
)

const cachedTableKey = "table"

// Cached keeps the last table loaded from a slow source for ttl.
// Concurrent misses share a single load.
type Cached struct {
	src   Source
	ttl   time.Duration
	store *gocache.Cache
	mu    sync.Mutex
}

// NewCached wraps src. A non-positive ttl disables caching.
func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{src: src, ttl: ttl, store: gocache.New(ttl, 2*ttl)}
}

func (c *Cached) Name() string {
	return c.src.Name()
}

func (c *Cached) Load(ctx context.Context) (core.Table, error) {
	if c.ttl <= 0 {
		return c.src.Load(ctx)
	}
	if t, ok := c.lookup(); ok {
		return t, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.lookup(); ok {
		return t, nil
	}

	start := time.Now()
	t, err := c.src.Load(ctx)
	if err != nil {
		return core.Table{}, err
	}
	c.store.Set(cachedTableKey, t, gocache.DefaultExpiration)
	slog.InfoContext(ctx, "Dataset loaded",
		"source", c.src.Name(),
		"records", t.Len(),
		"duration_ms", time.Since(start).Milliseconds())
	return t, nil
}

// Invalidate drops the cached table so the next Load hits the source.
func (c *Cached) Invalidate() {
	c.store.Delete(cachedTableKey)
}

func (c *Cached) lookup() (core.Table, bool) {
	v, ok := c.store.Get(cachedTableKey)
	if !ok {
		return core.Table{}, false
	}
	t, ok := v.(core.Table)
	return t, ok
}
