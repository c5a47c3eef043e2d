package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const maxResponseSizeBytes = 4 << 20

var ErrNotFound = errors.New("scraper: not found")

type Config struct {
	URL               string        `split_words:"true" required:"true"`
	Token             string        `split_words:"true"`
	Timeout           time.Duration `split_words:"true" default:"20s"`
	RequestsPerSecond float64       `split_words:"true" default:"5"`
	Burst             int           `split_words:"true" default:"5"`
}

// Product is the scraping backend's wire shape.
type Product struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Price       json.Number `json:"price"`
	Currency    string      `json:"currency"`
	ImageURL    string      `json:"image_url"`
	URL         string      `json:"url"`
	StoreName   string      `json:"store_name"`
	Rating      *float64    `json:"rating"`
	ReviewCount int         `json:"review_count"`
	ScrapedAt   time.Time   `json:"scraped_at"`
	UserID      *string     `json:"user_id"`
}

type productsEnvelope struct {
	Items []Product `json:"items"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("scraper url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]Product, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var out productsEnvelope
	if err := c.getJSON(ctx, "/products/search?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) Product(ctx context.Context, id int64) (Product, error) {
	var out Product
	if err := c.getJSON(ctx, "/products/"+strconv.FormatInt(id, 10), &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

func (c *Client) UserProducts(ctx context.Context, userID string) ([]Product, error) {
	var out productsEnvelope
	if err := c.getJSON(ctx, "/users/"+url.PathEscape(userID)+"/products", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("scraper rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build scraper request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute scraper request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read scraper response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("scraper http status=%d body=%s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode scraper response: %w", err)
	}
	return nil
}
