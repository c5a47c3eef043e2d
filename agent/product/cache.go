package product

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

const (
	defaultCacheKeyPrefix = "shop:product:"
	DefaultCacheTTL       = time.Hour
)

// Cache stores products by id.
type Cache interface {
	Get(ctx context.Context, id int64) (contractx.Product, bool, error)
	Put(ctx context.Context, products ...contractx.Product) error
}

type kvClient interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type CacheConfig struct {
	Enabled   bool          `split_words:"true" default:"false"`
	KeyPrefix string        `split_words:"true" default:"shop:product:"`
	TTL       time.Duration `envconfig:"TTL" default:"1h"`
}

// UpstashCache keeps JSON-encoded products in Upstash Redis.
type UpstashCache struct {
	kv        kvClient
	keyPrefix string
	ttl       time.Duration
}

var _ Cache = (*UpstashCache)(nil)

func NewUpstashCache(kv kvClient, cfg CacheConfig) *UpstashCache {
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = defaultCacheKeyPrefix
	}
	ttl := cfg.TTL
	if ttl < 0 {
		ttl = DefaultCacheTTL
	}
	return &UpstashCache{kv: kv, keyPrefix: prefix, ttl: ttl}
}

func (c *UpstashCache) key(id int64) string {
	return c.keyPrefix + strconv.FormatInt(id, 10)
}

func (c *UpstashCache) Get(ctx context.Context, id int64) (contractx.Product, bool, error) {
	raw, ok, err := c.kv.Get(ctx, c.key(id))
	if err != nil || !ok {
		return contractx.Product{}, false, err
	}

	var p contractx.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return contractx.Product{}, false, fmt.Errorf("decode cached product id=%d: %w", id, err)
	}
	return p, true, nil
}

func (c *UpstashCache) Put(ctx context.Context, products ...contractx.Product) error {
	for _, p := range products {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode product id=%d: %w", p.ID, err)
		}
		if err := c.kv.Set(ctx, c.key(p.ID), string(payload), c.ttl); err != nil {
			return fmt.Errorf("cache product id=%d: %w", p.ID, err)
		}
	}
	return nil
}

// Invalidate drops cached entries, e.g. after the local store was updated.
func (c *UpstashCache) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, c.key(id))
	}
	if err := c.kv.Del(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate %d cached products: %w", len(ids), err)
	}
	return nil
}

// CachedSource reads product-by-id through a cache and fills it from every lookup.
// Cache failures never fail the lookup.
type CachedSource struct {
	next  contractx.ProductSource
	cache Cache
}

var _ contractx.ProductSource = (*CachedSource)(nil)

func NewCachedSource(next contractx.ProductSource, cache Cache) *CachedSource {
	return &CachedSource{next: next, cache: cache}
}

func (s *CachedSource) Search(ctx context.Context, query string, limit int) ([]contractx.Product, error) {
	products, err := s.next.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, products...)
	return products, nil
}

func (s *CachedSource) Get(ctx context.Context, id int64) (contractx.Product, error) {
	if p, ok, err := s.cache.Get(ctx, id); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("product_id", id).Msg("product cache read failed")
	} else if ok {
		return p, nil
	}

	p, err := s.next.Get(ctx, id)
	if err != nil {
		return contractx.Product{}, err
	}
	s.fill(ctx, p)
	return p, nil
}

func (s *CachedSource) ListByUser(ctx context.Context, userID string) ([]contractx.Product, error) {
	products, err := s.next.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, products...)
	return products, nil
}

func (s *CachedSource) fill(ctx context.Context, products ...contractx.Product) {
	if len(products) == 0 {
		return
	}
	if err := s.cache.Put(ctx, products...); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int("count", len(products)).Msg("product cache write failed")
	}
}
