package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
	scraperx "github.com/tanpawarit/Product-Shopping-Assistant/pkg/scraper"
)

type scraperClient interface {
	Search(ctx context.Context, query string, limit int) ([]scraperx.Product, error)
	Product(ctx context.Context, id int64) (scraperx.Product, error)
	UserProducts(ctx context.Context, userID string) ([]scraperx.Product, error)
}

// RemoteSource reads products from the scraping backend.
type RemoteSource struct {
	client scraperClient
}

var _ contractx.ProductSource = (*RemoteSource)(nil)

func NewRemoteSource(client scraperClient) *RemoteSource {
	return &RemoteSource{client: client}
}

func (s *RemoteSource) Search(ctx context.Context, query string, limit int) ([]contractx.Product, error) {
	items, err := s.client.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("remote search query=%q: %w", query, err)
	}
	return fromScraperList(items)
}

func (s *RemoteSource) Get(ctx context.Context, id int64) (contractx.Product, error) {
	item, err := s.client.Product(ctx, id)
	if errors.Is(err, scraperx.ErrNotFound) {
		return contractx.Product{}, fmt.Errorf("%w: product id=%d", contractx.ErrNotFound, id)
	}
	if err != nil {
		return contractx.Product{}, fmt.Errorf("remote get product id=%d: %w", id, err)
	}
	return fromScraper(item)
}

func (s *RemoteSource) ListByUser(ctx context.Context, userID string) ([]contractx.Product, error) {
	items, err := s.client.UserProducts(ctx, userID)
	if errors.Is(err, scraperx.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("remote list products user=%s: %w", userID, err)
	}
	return fromScraperList(items)
}

func fromScraperList(items []scraperx.Product) ([]contractx.Product, error) {
	out := make([]contractx.Product, 0, len(items))
	for _, item := range items {
		p, err := fromScraper(item)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func fromScraper(item scraperx.Product) (contractx.Product, error) {
	price := decimal.Zero
	if raw := strings.TrimSpace(item.Price.String()); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return contractx.Product{}, fmt.Errorf("decode price for product id=%d: %w", item.ID, err)
		}
		price = parsed
	}

	return contractx.Product{
		ID:          item.ID,
		Name:        strings.TrimSpace(item.Name),
		Price:       price,
		Currency:    strings.ToUpper(strings.TrimSpace(item.Currency)),
		ImageURL:    item.ImageURL,
		URL:         item.URL,
		StoreName:   strings.TrimSpace(item.StoreName),
		Rating:      item.Rating,
		ReviewCount: item.ReviewCount,
		ScrapedAt:   item.ScrapedAt.UTC(),
		UserID:      item.UserID,
	}, nil
}
