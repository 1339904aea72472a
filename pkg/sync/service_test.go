package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/pkg/logger"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeShop struct {
	orders   []models.OrderStat
	sales    []models.ProductSale
	traffic  []models.TrafficStat
	err      error
	fromSeen time.Time
	toSeen   time.Time
}

func (f *fakeShop) FetchOrders(ctx context.Context, store *models.Store, from, to time.Time) ([]models.OrderStat, error) {
	f.fromSeen, f.toSeen = from, to
	return f.orders, f.err
}

func (f *fakeShop) FetchProductSales(ctx context.Context, store *models.Store, from, to time.Time) ([]models.ProductSale, error) {
	f.fromSeen, f.toSeen = from, to
	return f.sales, f.err
}

func (f *fakeShop) FetchTraffic(ctx context.Context, store *models.Store, window models.Window) ([]models.TrafficStat, error) {
	return f.traffic, f.err
}

type fakeSpend struct {
	rows []models.DailySpend
	err  error
}

func (f *fakeSpend) FetchDailySpend(ctx context.Context, store *models.Store, from, to string) ([]models.DailySpend, error) {
	return f.rows, f.err
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestMergeDaily(t *testing.T) {
	orders := []models.OrderStat{
		{Date: "2024-06-01", OrderCount: 3, OrderValue: money("300"), ItemCount: 5},
	}
	fb := []models.DailySpend{
		{Date: "2024-06-01", Amount: money("40")},
		{Date: "2024-06-02", Amount: money("25")},
	}
	google := []models.DailySpend{
		{Date: "2024-06-02", Amount: money("10")},
	}

	merged := MergeDaily(7, orders, fb, google)
	require.Len(t, merged, 2)

	day1 := merged[0]
	assert.Equal(t, "2024-06-01", day1.Date)
	assert.Equal(t, 7, day1.StoreID)
	assert.Equal(t, 3, day1.ShopifyOrderCount)
	assert.True(t, day1.FacebookAdSpend.Equal(money("40")))
	assert.True(t, day1.GoogleAdSpend.IsZero())

	// A date present only in spend sources still gets a row
	day2 := merged[1]
	assert.Equal(t, "2024-06-02", day2.Date)
	assert.Equal(t, 0, day2.ShopifyOrderCount)
	assert.True(t, day2.FacebookAdSpend.Equal(money("25")))
	assert.True(t, day2.GoogleAdSpend.Equal(money("10")))
}

func TestSyncDayMergesAndPersists(t *testing.T) {
	repo := storage.NewMemoryRepository()
	shop := &fakeShop{orders: []models.OrderStat{
		{Date: "2024-06-01", OrderCount: 2, OrderValue: money("150"), ItemCount: 4},
	}}
	fb := &fakeSpend{rows: []models.DailySpend{{Date: "2024-06-01", Amount: money("30")}}}
	google := &fakeSpend{rows: []models.DailySpend{{Date: "2024-06-01", Amount: money("12.50")}}}

	svc := NewService(shop, fb, google, repo, logger.Default(), nil)

	days, err := svc.SyncDay(context.Background(), &models.Store{ID: 1}, "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	// The Shopify fetch window covers the IST day, i.e. starts 18:30Z the day before
	assert.Equal(t, time.Date(2024, 5, 31, 18, 30, 0, 0, time.UTC), shop.fromSeen.UTC())

	stored, err := repo.GetDailyMetrics(context.Background(), 1, "2024-06-01", "2024-06-01")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 2, stored[0].ShopifyOrderCount)
	assert.True(t, stored[0].FacebookAdSpend.Equal(money("30")))
	assert.True(t, stored[0].GoogleAdSpend.Equal(money("12.50")))
}

func TestSyncRangeDegradesOnPartialFailure(t *testing.T) {
	repo := storage.NewMemoryRepository()
	shop := &fakeShop{orders: []models.OrderStat{
		{Date: "2024-06-01", OrderCount: 1, OrderValue: money("99"), ItemCount: 1},
	}}
	fb := &fakeSpend{rows: []models.DailySpend{{Date: "2024-06-01", Amount: money("20")}}}
	google := &fakeSpend{err: errors.New("invalid_grant")}

	svc := NewService(shop, fb, google, repo, logger.Default(), nil)

	days, err := svc.SyncRange(context.Background(), &models.Store{ID: 1}, "2024-06-01", "2024-06-01")
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	stored, err := repo.GetDailyMetrics(context.Background(), 1, "2024-06-01", "2024-06-01")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	// The failed Google channel degrades to zero spend; the rest lands intact
	assert.True(t, stored[0].GoogleAdSpend.IsZero())
	assert.True(t, stored[0].FacebookAdSpend.Equal(money("20")))
	assert.Equal(t, 1, stored[0].ShopifyOrderCount)
}

func TestSyncRangeFailsWhenAllSourcesFail(t *testing.T) {
	repo := storage.NewMemoryRepository()
	boom := errors.New("down")
	svc := NewService(&fakeShop{err: boom}, &fakeSpend{err: boom}, &fakeSpend{err: boom},
		repo, logger.Default(), nil)

	_, err := svc.SyncRange(context.Background(), &models.Store{ID: 1}, "2024-06-01", "2024-06-02")
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
}

func TestSyncRangeRejectsBadDates(t *testing.T) {
	svc := NewService(&fakeShop{}, &fakeSpend{}, &fakeSpend{},
		storage.NewMemoryRepository(), logger.Default(), nil)

	_, err := svc.SyncRange(context.Background(), &models.Store{ID: 1}, "06/01/2024", "2024-06-02")
	assert.Error(t, err)
}

func TestSyncProductsReplacesSet(t *testing.T) {
	repo := storage.NewMemoryRepository()
	ctx := context.Background()

	// Pre-existing row that must disappear after the rebuild
	require.NoError(t, repo.ReplaceProducts(ctx, 1, []models.ProductMetric{
		{StoreID: 1, ProductID: "old", Title: "Old Product", QuantitySold: 1, Revenue: money("10")},
	}))

	shop := &fakeShop{sales: []models.ProductSale{
		{ProductID: "p1", Title: "Mug", QuantitySold: 5, Revenue: money("125")},
	}}
	svc := NewService(shop, &fakeSpend{}, &fakeSpend{}, repo, logger.Default(), nil)

	count, err := svc.SyncProducts(ctx, &models.Store{ID: 1}, &models.Window{From: "2024-05-01", To: "2024-05-31"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	products, err := repo.ListProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ProductID)
}

func TestSyncProductsKeepsOldRowsOnFetchFailure(t *testing.T) {
	repo := storage.NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.ReplaceProducts(ctx, 1, []models.ProductMetric{
		{StoreID: 1, ProductID: "keep", Title: "Keep Me", QuantitySold: 1, Revenue: money("10")},
	}))

	shop := &fakeShop{err: errors.New("shopify down")}
	svc := NewService(shop, &fakeSpend{}, &fakeSpend{}, repo, logger.Default(), nil)

	_, err := svc.SyncProducts(ctx, &models.Store{ID: 1}, nil)
	require.Error(t, err)

	products, err := repo.ListProducts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "keep", products[0].ProductID)
}

func TestSyncTrafficScopesReplacement(t *testing.T) {
	repo := storage.NewMemoryRepository()
	ctx := context.Background()

	// An older window that must survive a resync of a newer window
	require.NoError(t, repo.ReplaceTraffic(ctx, 1, "2024-05-01", []models.TrafficMetric{
		{StoreID: 1, PageType: "home", PagePath: "/", WindowStart: "2024-05-01", WindowEnd: "2024-05-07", Sessions: 10},
	}))

	shop := &fakeShop{traffic: []models.TrafficStat{
		{PageType: "product", PagePath: "/products/mug", Sessions: 42},
	}}
	svc := NewService(shop, &fakeSpend{}, &fakeSpend{}, repo, logger.Default(), nil)

	count, err := svc.SyncTraffic(ctx, &models.Store{ID: 1}, models.Window{From: "2024-06-01", To: "2024-06-07"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	rows, err := repo.ListTraffic(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
