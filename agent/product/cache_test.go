package product

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

type fakeKV struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

type fakeSource struct {
	products map[int64]contractx.Product
	gets     int
	searches int
}

func (f *fakeSource) Search(_ context.Context, _ string, _ int) ([]contractx.Product, error) {
	f.searches++
	out := make([]contractx.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeSource) Get(_ context.Context, id int64) (contractx.Product, error) {
	f.gets++
	p, ok := f.products[id]
	if !ok {
		return contractx.Product{}, contractx.ErrNotFound
	}
	return p, nil
}

func (f *fakeSource) ListByUser(_ context.Context, _ string) ([]contractx.Product, error) {
	return nil, nil
}

func TestUpstashCacheRoundTripUsesPrefixAndTTL(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	cache := NewUpstashCache(kv, CacheConfig{KeyPrefix: "test:", TTL: 5 * time.Minute})

	in := contractx.Product{ID: 7, Name: "Mouse", Price: decimal.RequireFromString("19.99"), Currency: "USD"}
	if err := cache.Put(context.Background(), in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if kv.ttls["test:7"] != 5*time.Minute {
		t.Fatalf("ttl = %v", kv.ttls["test:7"])
	}

	got, ok, err := cache.Get(context.Background(), 7)
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if got.Name != "Mouse" || !got.Price.Equal(in.Price) {
		t.Fatalf("unexpected product: %+v", got)
	}

	if _, ok, _ := cache.Get(context.Background(), 8); ok {
		t.Fatal("expected miss for unknown id")
	}

	if err := cache.Invalidate(context.Background(), 7); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok, _ := cache.Get(context.Background(), 7); ok {
		t.Fatal("expected miss after invalidation")
	}
}

func TestCachedSourceGetReadsThrough(t *testing.T) {
	t.Parallel()

	src := &fakeSource{products: map[int64]contractx.Product{1: {ID: 1, Name: "Mouse"}}}
	cached := NewCachedSource(src, NewUpstashCache(newFakeKV(), CacheConfig{}))

	for i := 0; i < 3; i++ {
		p, err := cached.Get(context.Background(), 1)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if p.Name != "Mouse" {
			t.Fatalf("unexpected product: %+v", p)
		}
	}
	if src.gets != 1 {
		t.Fatalf("expected one source read, got %d", src.gets)
	}

	if _, err := cached.Get(context.Background(), 2); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCachedSourceSearchFillsCache(t *testing.T) {
	t.Parallel()

	src := &fakeSource{products: map[int64]contractx.Product{3: {ID: 3, Name: "Pad"}}}
	cached := NewCachedSource(src, NewUpstashCache(newFakeKV(), CacheConfig{}))

	if _, err := cached.Search(context.Background(), "pad", 10); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, err := cached.Get(context.Background(), 3); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if src.gets != 0 {
		t.Fatalf("expected cache hit after search, source gets = %d", src.gets)
	}
}

func TestCachedSourceIgnoresCacheFailures(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.getErr = errors.New("redis down")
	kv.setErr = errors.New("redis down")

	src := &fakeSource{products: map[int64]contractx.Product{1: {ID: 1, Name: "Mouse"}}}
	cached := NewCachedSource(src, NewUpstashCache(kv, CacheConfig{}))

	p, err := cached.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if p.ID != 1 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if _, err := cached.Search(context.Background(), "mouse", 5); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
}
