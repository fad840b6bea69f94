package order

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tanpawarit/support-triage-agent/agent/orderid"
)

const (
	defaultCacheSize = 1024
	defaultCacheTTL  = 5 * time.Minute
)

// CachedRepository remembers found orders for a short while. Misses and
// searches always reach the wrapped repository.
type CachedRepository struct {
	next  Repository
	cache *expirable.LRU[string, Record]
}

var _ Repository = (*CachedRepository)(nil)

func NewCachedRepository(next Repository, size int, ttl time.Duration) *CachedRepository {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedRepository{
		next:  next,
		cache: expirable.NewLRU[string, Record](size, nil, ttl),
	}
}

func (c *CachedRepository) GetByNormalizedID(ctx context.Context, id string) (*Record, error) {
	key := orderid.Normalize(strings.TrimSpace(id))
	if rec, ok := c.cache.Get(key); ok {
		return &rec, nil
	}

	rec, err := c.next.GetByNormalizedID(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, *rec)
	return rec, nil
}

func (c *CachedRepository) Search(ctx context.Context, q SearchQuery) ([]Record, error) {
	return c.next.Search(ctx, q)
}

func (c *CachedRepository) Len() int {
	return c.cache.Len()
}
