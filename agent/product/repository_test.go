package product

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
	databasex "github.com/tanpawarit/Product-Shopping-Assistant/pkg/database"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	ctx := context.Background()
	db, err := databasex.OpenInMemory(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepository(db)
	require.NoError(t, repo.InitSchema(ctx))
	return repo
}

func ptr[T any](v T) *T { return &v }

func seedProducts(t *testing.T, repo *Repository) []contractx.Product {
	t.Helper()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inputs := []contractx.Product{
		{Name: "Logitech Wireless Mouse", Price: decimal.RequireFromString("24.99"), Currency: "USD", StoreName: "MegaStore", Rating: ptr(4.5), ReviewCount: 120, ScrapedAt: base},
		{Name: "Budget Wireless Mouse", Price: decimal.RequireFromString("9.50"), Currency: "USD", StoreName: "CheapMart", ReviewCount: 3, ScrapedAt: base.Add(time.Hour)},
		{Name: "Mechanical Keyboard", Price: decimal.RequireFromString("89.00"), Currency: "USD", StoreName: "MegaStore", Rating: ptr(4.8), ScrapedAt: base.Add(2 * time.Hour)},
		{Name: "100% Cotton Mouse_Pad", Price: decimal.RequireFromString("5.00"), Currency: "USD", StoreName: "Home", ScrapedAt: base, UserID: ptr("user-1")},
	}

	saved := make([]contractx.Product, 0, len(inputs))
	for _, in := range inputs {
		p, err := repo.Save(context.Background(), in)
		require.NoError(t, err)
		require.NotZero(t, p.ID)
		saved = append(saved, p)
	}
	return saved
}

func TestRepositorySearchMatchesAllTerms(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	saved := seedProducts(t, repo)

	got, err := repo.Search(ctx, "WIRELESS mouse", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// newest scrape first
	require.Equal(t, saved[1].ID, got[0].ID)
	require.Equal(t, saved[0].ID, got[1].ID)
	require.True(t, got[0].Price.Equal(decimal.RequireFromString("9.5")))

	byStore, err := repo.Search(ctx, "megastore", 10)
	require.NoError(t, err)
	require.Len(t, byStore, 2)

	limited, err := repo.Search(ctx, "mouse", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)

	none, err := repo.Search(ctx, "   ", 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestRepositorySearchEscapesWildcards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	seedProducts(t, repo)

	got, err := repo.Search(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = repo.Search(ctx, "mouse_pad", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = repo.Search(ctx, "%", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestRepositoryGetAndNotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	saved := seedProducts(t, repo)

	got, err := repo.Get(ctx, saved[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Logitech Wireless Mouse", got.Name)
	require.NotNil(t, got.Rating)
	require.InDelta(t, 4.5, *got.Rating, 0.0001)

	_, err = repo.Get(ctx, 9999)
	require.ErrorIs(t, err, contractx.ErrNotFound)
}

func TestRepositoryListByUserAndUpsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newTestRepository(t)
	saved := seedProducts(t, repo)

	owned, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	require.Equal(t, saved[3].ID, owned[0].ID)

	updated := saved[3]
	updated.Price = decimal.RequireFromString("4.25")
	_, err = repo.Save(ctx, updated)
	require.NoError(t, err)

	got, err := repo.Get(ctx, updated.ID)
	require.NoError(t, err)
	require.True(t, got.Price.Equal(decimal.RequireFromString("4.25")))

	empty, err := repo.ListByUser(ctx, "nobody")
	require.NoError(t, err)
	require.Empty(t, empty)
}
