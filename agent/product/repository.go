package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

type productModel struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID          int64           `bun:"id,pk,autoincrement"`
	Name        string          `bun:"name,notnull"`
	Price       decimal.Decimal `bun:"price,type:decimal(12,2),notnull"`
	Currency    string          `bun:"currency,notnull"`
	ImageURL    string          `bun:"image_url"`
	URL         string          `bun:"url"`
	StoreName   string          `bun:"store_name"`
	Rating      *float64        `bun:"rating"`
	ReviewCount int             `bun:"review_count,notnull"`
	ScrapedAt   time.Time       `bun:"scraped_at,notnull"`
	UserID      *string         `bun:"user_id"`
}

// Repository is the local-store product source.
type Repository struct {
	db *bun.DB
}

var _ contractx.ProductSource = (*Repository)(nil)

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InitSchema(ctx context.Context) error {
	if _, err := r.db.NewCreateTable().Model((*productModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create products table: %w", err)
	}
	if _, err := r.db.NewCreateIndex().
		Model((*productModel)(nil)).
		Index("products_user_id_idx").
		IfNotExists().
		Column("user_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("create products index: %w", err)
	}
	return nil
}

// Search matches every whitespace-separated term against name or store name, case-insensitively.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]contractx.Product, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	var rows []productModel
	q := r.db.NewSelect().Model(&rows)
	for _, term := range terms {
		pattern := "%" + escapeLike(term) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where(`LOWER(p.name) LIKE ? ESCAPE '\'`, pattern).
				WhereOr(`LOWER(p.store_name) LIKE ? ESCAPE '\'`, pattern)
		})
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.OrderExpr("p.scraped_at DESC, p.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("search products query=%q: %w", query, err)
	}
	return toContracts(rows), nil
}

func (r *Repository) Get(ctx context.Context, id int64) (contractx.Product, error) {
	var row productModel
	err := r.db.NewSelect().Model(&row).Where("p.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Product{}, fmt.Errorf("%w: product id=%d", contractx.ErrNotFound, id)
	}
	if err != nil {
		return contractx.Product{}, fmt.Errorf("get product id=%d: %w", id, err)
	}
	return row.toContract(), nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]contractx.Product, error) {
	var rows []productModel
	err := r.db.NewSelect().
		Model(&rows).
		Where("p.user_id = ?", userID).
		OrderExpr("p.scraped_at DESC, p.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products user=%s: %w", userID, err)
	}
	return toContracts(rows), nil
}

// Save inserts or updates a product and returns it with its assigned id.
func (r *Repository) Save(ctx context.Context, p contractx.Product) (contractx.Product, error) {
	row := fromContract(p)
	if row.ScrapedAt.IsZero() {
		row.ScrapedAt = time.Now().UTC()
	}

	q := r.db.NewInsert().Model(&row)
	if row.ID != 0 {
		q = q.On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("price = EXCLUDED.price").
			Set("currency = EXCLUDED.currency").
			Set("image_url = EXCLUDED.image_url").
			Set("url = EXCLUDED.url").
			Set("store_name = EXCLUDED.store_name").
			Set("rating = EXCLUDED.rating").
			Set("review_count = EXCLUDED.review_count").
			Set("scraped_at = EXCLUDED.scraped_at").
			Set("user_id = EXCLUDED.user_id")
	}
	if _, err := q.Returning("id").Exec(ctx); err != nil {
		return contractx.Product{}, fmt.Errorf("save product name=%q: %w", p.Name, err)
	}
	return row.toContract(), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func toContracts(rows []productModel) []contractx.Product {
	out := make([]contractx.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toContract())
	}
	return out
}

func (m productModel) toContract() contractx.Product {
	return contractx.Product{
		ID:          m.ID,
		Name:        m.Name,
		Price:       m.Price,
		Currency:    m.Currency,
		ImageURL:    m.ImageURL,
		URL:         m.URL,
		StoreName:   m.StoreName,
		Rating:      m.Rating,
		ReviewCount: m.ReviewCount,
		ScrapedAt:   m.ScrapedAt,
		UserID:      m.UserID,
	}
}

func fromContract(p contractx.Product) productModel {
	return productModel{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Currency:    p.Currency,
		ImageURL:    p.ImageURL,
		URL:         p.URL,
		StoreName:   p.StoreName,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		ScrapedAt:   p.ScrapedAt.UTC(),
		UserID:      p.UserID,
	}
}
