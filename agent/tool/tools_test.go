package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

type memorySource struct {
	products    []contractx.Product
	searchLimit int
	calls       int
}

func (m *memorySource) Search(_ context.Context, query string, limit int) ([]contractx.Product, error) {
	m.calls++
	m.searchLimit = limit
	var out []contractx.Product
	for _, p := range m.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memorySource) Get(_ context.Context, id int64) (contractx.Product, error) {
	m.calls++
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return contractx.Product{}, fmt.Errorf("%w: product id=%d", contractx.ErrNotFound, id)
}

func (m *memorySource) ListByUser(_ context.Context, userID string) ([]contractx.Product, error) {
	m.calls++
	var out []contractx.Product
	for _, p := range m.products {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func rating(v float64) *float64 { return &v }
func owner(v string) *string    { return &v }

func catalog() *memorySource {
	return &memorySource{products: []contractx.Product{
		{ID: 1, Name: "Pro Mouse", Price: decimal.RequireFromString("50"), Currency: "USD", Rating: rating(4.9), ReviewCount: 200},
		{ID: 2, Name: "Basic Mouse", Price: decimal.RequireFromString("10"), Currency: "USD", Rating: rating(3.5), ReviewCount: 40},
		{ID: 3, Name: "Mid Mouse", Price: decimal.RequireFromString("20"), Currency: "USD", Rating: rating(4.4)},
		{ID: 4, Name: "Saved Keyboard", Price: decimal.RequireFromString("70"), Currency: "USD", UserID: owner("user-1")},
		{ID: 5, Name: "Unrated Pad", Price: decimal.RequireFromString("8"), Currency: "USD"},
		{ID: 6, Name: "Unrated Mat", Price: decimal.RequireFromString("6"), Currency: "USD"},
	}}
}

func TestSearchProductsDefaultsAndBounds(t *testing.T) {
	t.Parallel()

	src := catalog()
	tool := NewSearchProducts(src)

	out, err := tool.Run(context.Background(), map[string]any{"query": "mouse"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if src.searchLimit != defaultSearchLimit {
		t.Fatalf("limit = %d, want default", src.searchLimit)
	}
	if len(out.Products) != 3 || out.Data.(ProductList).Count != 3 {
		t.Fatalf("unexpected output: %+v", out)
	}

	empty, err := tool.Run(context.Background(), map[string]any{"query": "television", "limit": float64(5)})
	if err != nil {
		t.Fatalf("empty search must succeed, got %v", err)
	}
	if list := empty.Data.(ProductList); list.Count != 0 || list.Products == nil {
		t.Fatalf("expected empty non-nil list, got %+v", list)
	}

	calls := src.calls
	for _, args := range []map[string]any{
		{},
		{"query": "   "},
		{"query": 42},
		{"query": "mouse", "limit": float64(0)},
		{"query": "mouse", "limit": float64(26)},
		{"query": "mouse", "limit": 2.5},
	} {
		if _, err := tool.Run(context.Background(), args); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("args %v: expected ErrValidation, got %v", args, err)
		}
	}
	if src.calls != calls {
		t.Fatal("validation failures must not reach the product source")
	}
}

func TestGetProductDetails(t *testing.T) {
	t.Parallel()

	tool := NewGetProductDetails(catalog())

	out, err := tool.Run(context.Background(), map[string]any{"product_id": "2"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Data.(contractx.Product).Name != "Basic Mouse" {
		t.Fatalf("unexpected product: %+v", out.Data)
	}

	if _, err := tool.Run(context.Background(), map[string]any{"product_id": float64(999)}); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := tool.Run(context.Background(), map[string]any{"product_id": float64(-1)}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

type fixedAnalyzer struct {
	text string
	err  error
}

func (f fixedAnalyzer) Analyze(context.Context, []contractx.Product) (string, error) {
	return f.text, f.err
}

func TestCompareProductsPicksWinners(t *testing.T) {
	t.Parallel()

	tool := NewCompareProducts(catalog(), fixedAnalyzer{text: "narrative"})

	out, err := tool.Run(context.Background(), map[string]any{"product_ids": []any{float64(1), float64(2), float64(3), float64(1)}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	cmp := out.Data.(Comparison)
	if len(cmp.Products) != 3 || len(out.Products) != 3 {
		t.Fatalf("expected 3 distinct products, got %d", len(cmp.Products))
	}
	if *cmp.Cheapest != 2 || *cmp.BestQuality != 1 {
		t.Fatalf("cheapest=%d quality=%d", *cmp.Cheapest, *cmp.BestQuality)
	}
	// 3.5/10 beats 4.4/20 and 4.9/50
	if *cmp.BestValue != 2 {
		t.Fatalf("best value = %d", *cmp.BestValue)
	}
	if cmp.Analysis != "narrative" {
		t.Fatalf("analysis = %q", cmp.Analysis)
	}
}

func TestCompareProductsUnratedFallsBackToCheapest(t *testing.T) {
	t.Parallel()

	tool := NewCompareProducts(catalog(), fixedAnalyzer{err: errors.New("model down")})

	out, err := tool.Run(context.Background(), map[string]any{"product_ids": []any{float64(5), float64(6)}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	cmp := out.Data.(Comparison)
	if cmp.BestQuality != nil {
		t.Fatalf("expected no best quality, got %d", *cmp.BestQuality)
	}
	if *cmp.BestValue != 6 || *cmp.Cheapest != 6 {
		t.Fatalf("cheapest=%d value=%d", *cmp.Cheapest, *cmp.BestValue)
	}
	if !strings.Contains(cmp.Analysis, "Unrated Mat") {
		t.Fatalf("fallback summary missing cheapest product: %q", cmp.Analysis)
	}
}

func TestCompareProductsNeedsTwoResolvedIDs(t *testing.T) {
	t.Parallel()

	tool := NewCompareProducts(catalog(), nil)

	for _, args := range []map[string]any{
		{"product_ids": []any{float64(1)}},
		{"product_ids": []any{float64(1), float64(1)}},
		{"product_ids": "1,2"},
		{"product_ids": []any{float64(1), float64(404)}},
	} {
		if _, err := tool.Run(context.Background(), args); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("args %v: expected ErrValidation, got %v", args, err)
		}
	}

	out, err := tool.Run(context.Background(), map[string]any{"product_ids": []any{float64(1), float64(2), float64(404)}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if missing := out.Data.(Comparison).Missing; len(missing) != 1 || missing[0] != 404 {
		t.Fatalf("missing = %v", missing)
	}
}

func TestGetUserProductsOwnership(t *testing.T) {
	t.Parallel()

	tool := NewGetUserProducts(catalog())
	ctx := contractx.WithCaller(context.Background(), "user-1")

	out, err := tool.Run(ctx, map[string]any{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out.Products) != 1 || out.Products[0].ID != 4 {
		t.Fatalf("unexpected products: %+v", out.Products)
	}

	if _, err := tool.Run(ctx, map[string]any{"user_id": "user-1"}); err != nil {
		t.Fatalf("explicit own id must succeed, got %v", err)
	}
	if _, err := tool.Run(ctx, map[string]any{"user_id": "user-2"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation for another user, got %v", err)
	}
	if _, err := tool.Run(context.Background(), map[string]any{}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation without caller, got %v", err)
	}
}

// stalledAnalyzer ignores its context until release is closed.
type stalledAnalyzer struct {
	release chan struct{}
}

func (s stalledAnalyzer) Analyze(context.Context, []contractx.Product) (string, error) {
	<-s.release
	return "too late", nil
}

func TestCompareProductsSlowAnalyzerFallsBackWithinToolTimeout(t *testing.T) {
	t.Parallel()

	analyzer := stalledAnalyzer{release: make(chan struct{})}
	t.Cleanup(func() { close(analyzer.release) })

	reg, err := NewRegistry(RegistryConfig{Timeout: 200 * time.Millisecond}, NewCompareProducts(catalog(), analyzer))
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	res := reg.Execute(context.Background(), contractx.ToolCall{
		ID:   "c1",
		Name: NameCompareProducts,
		Args: map[string]any{"product_ids": []any{float64(1), float64(2)}},
	})
	if res.Failed() {
		t.Fatalf("expected a comparison, got failure %+v", res.Failure)
	}
	cmp, ok := res.Data.(Comparison)
	if !ok {
		t.Fatalf("data type = %T", res.Data)
	}
	if cmp.Cheapest == nil || *cmp.Cheapest != 2 {
		t.Fatalf("winners lost: %+v", cmp)
	}
	if cmp.Analysis == "too late" || !strings.Contains(cmp.Analysis, "Basic Mouse") {
		t.Fatalf("expected summary fallback, got %q", cmp.Analysis)
	}
}

func TestCompareProductsAnalyzerTimeoutOption(t *testing.T) {
	t.Parallel()

	analyzer := stalledAnalyzer{release: make(chan struct{})}
	t.Cleanup(func() { close(analyzer.release) })

	tool := NewCompareProducts(catalog(), analyzer, WithAnalyzerTimeout(20*time.Millisecond))

	started := time.Now()
	out, err := tool.Run(context.Background(), map[string]any{"product_ids": []any{float64(1), float64(2)}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("analyzer timeout not applied, took %s", elapsed)
	}
	if cmp := out.Data.(Comparison); cmp.Analysis == "too late" {
		t.Fatal("expected summary fallback")
	}
}
