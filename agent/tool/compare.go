package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

const (
	NameCompareProducts = "compare_products"

	maxCompareProducts = 10
)

// Analyzer writes the comparison narrative.
type Analyzer interface {
	Analyze(ctx context.Context, products []contractx.Product) (string, error)
}

type Comparison struct {
	Products    []contractx.Product `json:"products"`
	Analysis    string              `json:"analysis"`
	Cheapest    *int64              `json:"cheapest,omitempty"`
	BestQuality *int64              `json:"best_quality,omitempty"`
	BestValue   *int64              `json:"best_value,omitempty"`
	Missing     []int64             `json:"missing,omitempty"`
}

type CompareProducts struct {
	source          contractx.ProductSource
	analyzer        Analyzer
	analyzerTimeout time.Duration
}

type CompareOption func(*CompareProducts)

// WithAnalyzerTimeout caps a single analyzer call. The analyzer never gets more than
// half of the time left on the tool call.
func WithAnalyzerTimeout(d time.Duration) CompareOption {
	return func(t *CompareProducts) {
		t.analyzerTimeout = d
	}
}

// NewCompareProducts builds the comparison tool. A nil analyzer uses the built-in summary.
func NewCompareProducts(source contractx.ProductSource, a Analyzer, opts ...CompareOption) *CompareProducts {
	t := &CompareProducts{source: source, analyzer: a}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *CompareProducts) Info() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: NameCompareProducts,
		Desc: "Compare two or more products by id. Returns the cheapest, best rated and best value product with a short analysis.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"product_ids": {
				Type:     schema.Array,
				Desc:     fmt.Sprintf("Between 2 and %d distinct product ids", maxCompareProducts),
				Required: true,
				ElemInfo: &schema.ParameterInfo{Type: schema.Integer},
			},
		}),
	}
}

func (t *CompareProducts) Run(ctx context.Context, args map[string]any) (Output, error) {
	ids, err := requiredIntList(args, "product_ids")
	if err != nil {
		return Output{}, err
	}
	ids = distinct(ids)
	if len(ids) < 2 {
		return Output{}, fmt.Errorf("%w: product_ids needs at least 2 distinct ids", contractx.ErrValidation)
	}
	if len(ids) > maxCompareProducts {
		return Output{}, fmt.Errorf("%w: at most %d products can be compared", contractx.ErrValidation, maxCompareProducts)
	}

	var (
		resolved []contractx.Product
		missing  []int64
	)
	for _, id := range ids {
		p, err := t.source.Get(ctx, id)
		if errors.Is(err, contractx.ErrNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return Output{}, err
		}
		resolved = append(resolved, p)
	}
	if len(resolved) < 2 {
		return Output{}, fmt.Errorf("%w: only %d of the requested products exist", contractx.ErrValidation, len(resolved))
	}

	cmp := Comparison{Products: resolved, Missing: missing}
	cmp.Cheapest, cmp.BestQuality, cmp.BestValue = pickWinners(resolved)
	cmp.Analysis = t.analyze(ctx, cmp)

	return Output{Data: cmp, Products: resolved}, nil
}

// analyze returns the analyzer narrative, or the summary when the analyzer fails or
// runs past its budget. The winners are never lost to a slow analyzer.
func (t *CompareProducts) analyze(ctx context.Context, cmp Comparison) string {
	if t.analyzer == nil {
		return summarize(cmp)
	}

	actx, cancel := t.analyzerContext(ctx)
	defer cancel()

	type reply struct {
		text string
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		text, err := t.analyzer.Analyze(actx, cmp.Products)
		done <- reply{text: text, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && strings.TrimSpace(r.text) != "" {
			return r.text
		}
		zerolog.Ctx(ctx).Warn().Err(r.err).Msg("comparison analyzer failed; using summary")
	case <-actx.Done():
		zerolog.Ctx(ctx).Warn().Err(actx.Err()).Msg("comparison analyzer too slow; using summary")
	}
	return summarize(cmp)
}

func (t *CompareProducts) analyzerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	budget := t.analyzerTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if half := time.Until(deadline) / 2; budget <= 0 || half < budget {
			budget = half
		}
	} else if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}

// pickWinners returns cheapest (min price), best quality (max rating) and best value
// (max rating per unit price). Best value falls back to cheapest when nothing is rated.
func pickWinners(products []contractx.Product) (cheapest, quality, value *int64) {
	var (
		minPrice   decimal.Decimal
		maxRating  float64
		maxPerUnit decimal.Decimal
	)
	for i := range products {
		p := products[i]
		id := p.ID

		if cheapest == nil || p.Price.LessThan(minPrice) {
			cheapest, minPrice = &id, p.Price
		}
		if p.Rating == nil {
			continue
		}
		if quality == nil || *p.Rating > maxRating {
			quality, maxRating = &id, *p.Rating
		}
		if p.Price.IsPositive() {
			perUnit := decimal.NewFromFloat(*p.Rating).Div(p.Price)
			if value == nil || perUnit.GreaterThan(maxPerUnit) {
				value, maxPerUnit = &id, perUnit
			}
		}
	}
	if value == nil {
		value = cheapest
	}
	return cheapest, quality, value
}

func summarize(cmp Comparison) string {
	byID := make(map[int64]contractx.Product, len(cmp.Products))
	for _, p := range cmp.Products {
		byID[p.ID] = p
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Compared %d products.", len(cmp.Products))
	if cmp.Cheapest != nil {
		p := byID[*cmp.Cheapest]
		fmt.Fprintf(&b, " Cheapest: %s at %s.", p.Name, p.FormattedPrice())
	}
	if cmp.BestQuality != nil {
		p := byID[*cmp.BestQuality]
		fmt.Fprintf(&b, " Best rated: %s (%.1f from %d reviews).", p.Name, *p.Rating, p.ReviewCount)
	} else {
		b.WriteString(" None of them has a rating.")
	}
	if cmp.BestValue != nil {
		fmt.Fprintf(&b, " Best value: %s.", byID[*cmp.BestValue].Name)
	}
	return b.String()
}

func distinct(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
