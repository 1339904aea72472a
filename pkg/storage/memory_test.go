package storage

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T, repo *MemoryRepository, name string) *models.Store {
	t.Helper()
	store, err := repo.Create(context.Background(), &models.Store{Name: name})
	require.NoError(t, err)
	return store
}

func TestUpsertDailyMetricsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	store := createTestStore(t, repo, "Acme")

	metric := models.DailyMetric{
		StoreID:           store.ID,
		Date:              "2024-06-02",
		FacebookAdSpend:   decimal.RequireFromString("12.50"),
		GoogleAdSpend:     decimal.RequireFromString("8.00"),
		ShopifyOrderCount: 3,
		ShopifyOrderValue: decimal.RequireFromString("240.00"),
		ShopifyItemCount:  7,
	}

	// Same batch written twice must leave exactly one row with the same values
	require.NoError(t, repo.UpsertDailyMetrics(ctx, []models.DailyMetric{metric}))
	require.NoError(t, repo.UpsertDailyMetrics(ctx, []models.DailyMetric{metric}))

	got, err := repo.GetDailyMetrics(ctx, store.ID, "2024-06-01", "2024-06-03")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-06-02", got[0].Date)
	assert.True(t, got[0].FacebookAdSpend.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, 3, got[0].ShopifyOrderCount)
}

func TestUpsertDailyMetricsOverwrites(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	store := createTestStore(t, repo, "Acme")

	first := models.DailyMetric{
		StoreID:         store.ID,
		Date:            "2024-06-02",
		FacebookAdSpend: decimal.RequireFromString("10"),
	}
	require.NoError(t, repo.UpsertDailyMetrics(ctx, []models.DailyMetric{first}))

	second := first
	second.FacebookAdSpend = decimal.RequireFromString("99.99")
	second.ShopifyOrderCount = 5
	require.NoError(t, repo.UpsertDailyMetrics(ctx, []models.DailyMetric{second}))

	got, err := repo.GetDailyMetrics(ctx, store.ID, "2024-06-02", "2024-06-02")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].FacebookAdSpend.Equal(decimal.RequireFromString("99.99")))
	assert.Equal(t, 5, got[0].ShopifyOrderCount)
}

func TestGetDailyMetricsRangeAndOrder(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	store := createTestStore(t, repo, "Acme")

	var batch []models.DailyMetric
	for _, date := range []string{"2024-06-03", "2024-06-01", "2024-06-02", "2024-05-20"} {
		batch = append(batch, models.DailyMetric{StoreID: store.ID, Date: date})
	}
	require.NoError(t, repo.UpsertDailyMetrics(ctx, batch))

	got, err := repo.GetDailyMetrics(ctx, store.ID, "2024-06-01", "2024-06-30")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-06-01", got[0].Date)
	assert.Equal(t, "2024-06-02", got[1].Date)
	assert.Equal(t, "2024-06-03", got[2].Date)
}

func TestReplaceProductsDropsStaleRows(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	store := createTestStore(t, repo, "Acme")

	initial := []models.ProductMetric{
		{ProductID: "p1", Title: "Mug", QuantitySold: 10, Revenue: decimal.RequireFromString("100")},
		{ProductID: "p2", Title: "Shirt", QuantitySold: 4, Revenue: decimal.RequireFromString("200")},
	}
	require.NoError(t, repo.ReplaceProducts(ctx, store.ID, initial))

	// p2 disappeared from the latest window; p3 is new
	rebuilt := []models.ProductMetric{
		{ProductID: "p1", Title: "Mug", QuantitySold: 2, Revenue: decimal.RequireFromString("20")},
		{ProductID: "p3", Title: "Hat", QuantitySold: 1, Revenue: decimal.RequireFromString("30")},
	}
	require.NoError(t, repo.ReplaceProducts(ctx, store.ID, rebuilt))

	got, err := repo.ListProducts(ctx, store.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	ids := []string{got[0].ProductID, got[1].ProductID}
	assert.ElementsMatch(t, []string{"p1", "p3"}, ids)
	// Ordered by revenue descending
	assert.Equal(t, "p3", got[0].ProductID)
}

func TestReplaceTrafficScopedToWindow(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	store := createTestStore(t, repo, "Acme")

	old := []models.TrafficMetric{
		{PageType: "product", PagePath: "/products/mug", WindowStart: "2024-05-01", WindowEnd: "2024-05-07", Sessions: 50},
	}
	require.NoError(t, repo.ReplaceTraffic(ctx, store.ID, "2024-05-01", old))

	// Resync a later window: the May row must survive, rows in the new window replaced
	fresh := []models.TrafficMetric{
		{PageType: "home", PagePath: "/", WindowStart: "2024-06-01", WindowEnd: "2024-06-07", Sessions: 80},
	}
	require.NoError(t, repo.ReplaceTraffic(ctx, store.ID, "2024-06-01", fresh))

	got, err := repo.ListTraffic(ctx, store.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Full resync from May start clears both
	require.NoError(t, repo.ReplaceTraffic(ctx, store.ID, "2024-05-01", nil))
	got, err = repo.ListTraffic(ctx, store.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDeleteStoreCascades(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	store := createTestStore(t, repo, "Acme")

	require.NoError(t, repo.UpsertDailyMetrics(ctx, []models.DailyMetric{{StoreID: store.ID, Date: "2024-06-01"}}))
	require.NoError(t, repo.ReplaceProducts(ctx, store.ID, []models.ProductMetric{{ProductID: "p1"}}))

	require.NoError(t, repo.Delete(ctx, store.ID))

	_, err := repo.Get(ctx, store.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	metrics, err := repo.GetDailyMetrics(ctx, store.ID, "2024-01-01", "2024-12-31")
	require.NoError(t, err)
	assert.Empty(t, metrics)
}

func TestUpdateGoogleToken(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	store := createTestStore(t, repo, "Acme")

	require.NoError(t, repo.UpdateGoogleToken(ctx, store.ID, "fresh-token", store.CreatedAt.Add(3600e9)))

	got, err := repo.Get(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", got.GoogleAccessToken)

	assert.ErrorIs(t, repo.UpdateGoogleToken(ctx, 9999, "x", store.CreatedAt), ErrNotFound)
}
