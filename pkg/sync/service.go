package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"time"

	"github.com/storepulse/backend/pkg/dates"
	"github.com/storepulse/backend/pkg/logger"
	"github.com/storepulse/backend/pkg/metrics"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
)

// ErrAllSourcesFailed is returned when no provider produced any data for a
// daily sync, so there is nothing to write.
var ErrAllSourcesFailed = errors.New("all providers failed")

// allTimeStart bounds "all-time" product syncs; no tenant predates it.
var allTimeStart = time.Date(2015, 1, 1, 0, 0, 0, 0, dates.IST)

// ShopSource provides order, product, and traffic data for a store.
type ShopSource interface {
	FetchOrders(ctx context.Context, store *models.Store, from, to time.Time) ([]models.OrderStat, error)
	FetchProductSales(ctx context.Context, store *models.Store, from, to time.Time) ([]models.ProductSale, error)
	FetchTraffic(ctx context.Context, store *models.Store, window models.Window) ([]models.TrafficStat, error)
}

// SpendSource provides per-day ad spend for a store over a civil-date range.
type SpendSource interface {
	FetchDailySpend(ctx context.Context, store *models.Store, from, to string) ([]models.DailySpend, error)
}

// Service runs the sync pipeline for a single store: fetch from each
// connected provider, merge by civil date, and persist.
type Service struct {
	shopify  ShopSource
	facebook SpendSource
	google   SpendSource
	repo     storage.MetricRepository
	log      logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a sync service
func NewService(shopify ShopSource, facebook, google SpendSource, repo storage.MetricRepository, log logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		shopify:  shopify,
		facebook: facebook,
		google:   google,
		repo:     repo,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// SyncDay syncs the daily metrics for a single IST civil date.
func (s *Service) SyncDay(ctx context.Context, store *models.Store, date string) (int, error) {
	return s.SyncRange(ctx, store, date, date)
}

// SyncRange syncs daily metrics for an inclusive civil-date range. Providers
// are queried concurrently; a failing provider degrades to zero values for its
// fields rather than failing the run, unless every provider fails.
func (s *Service) SyncRange(ctx context.Context, store *models.Store, from, to string) (int, error) {
	fromDay, err := dates.Parse(from)
	if err != nil {
		return 0, fmt.Errorf("invalid from date: %w", err)
	}
	toDay, err := dates.Parse(to)
	if err != nil {
		return 0, fmt.Errorf("invalid to date: %w", err)
	}

	start := fromDay
	end := toDay.Add(24*time.Hour - time.Millisecond)

	var (
		wg       gosync.WaitGroup
		orders   []models.OrderStat
		fbSpend  []models.DailySpend
		gSpend   []models.DailySpend
		failures int
		mu       gosync.Mutex
	)

	fail := func(provider string, err error) {
		s.log.Warn("provider fetch failed, continuing with zero values",
			"store_id", store.ID, "provider", provider, "error", err)
		if s.metrics != nil {
			s.metrics.RecordProviderError(provider)
		}
		mu.Lock()
		failures++
		mu.Unlock()
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		rows, err := s.shopify.FetchOrders(ctx, store, start, end)
		if err != nil {
			fail(string(models.ProviderShopify), err)
			return
		}
		orders = rows
	}()
	go func() {
		defer wg.Done()
		rows, err := s.facebook.FetchDailySpend(ctx, store, from, to)
		if err != nil {
			fail(string(models.ProviderFacebook), err)
			return
		}
		fbSpend = rows
	}()
	go func() {
		defer wg.Done()
		rows, err := s.google.FetchDailySpend(ctx, store, from, to)
		if err != nil {
			fail(string(models.ProviderGoogle), err)
			return
		}
		gSpend = rows
	}()
	wg.Wait()

	if failures == 3 {
		return 0, fmt.Errorf("store %d range %s..%s: %w", store.ID, from, to, ErrAllSourcesFailed)
	}

	merged := MergeDaily(store.ID, orders, fbSpend, gSpend)
	if len(merged) == 0 {
		s.log.Info("no data for range", "store_id", store.ID, "from", from, "to", to)
		return 0, nil
	}

	if err := s.repo.UpsertDailyMetrics(ctx, merged); err != nil {
		return 0, fmt.Errorf("failed to upsert daily metrics for store %d: %w", store.ID, err)
	}
	if s.metrics != nil {
		s.metrics.RecordDaysUpserted(len(merged))
	}

	s.log.Info("daily metrics synced",
		"store_id", store.ID, "from", from, "to", to, "days", len(merged))
	return len(merged), nil
}

// SyncProducts rebuilds the store's product analytics over the given window
// (nil means all-time). The fetch happens before any deletion, so a provider
// failure leaves existing rows untouched.
func (s *Service) SyncProducts(ctx context.Context, store *models.Store, window *models.Window) (int, error) {
	start, end, err := s.windowBounds(window)
	if err != nil {
		return 0, err
	}

	sales, err := s.shopify.FetchProductSales(ctx, store, start, end)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordProviderError(string(models.ProviderShopify))
		}
		return 0, fmt.Errorf("failed to fetch product sales for store %d: %w", store.ID, err)
	}

	syncedAt := s.now()
	rows := make([]models.ProductMetric, 0, len(sales))
	for _, sale := range sales {
		rows = append(rows, models.ProductMetric{
			StoreID:      store.ID,
			ProductID:    sale.ProductID,
			Title:        sale.Title,
			ImageURL:     sale.ImageURL,
			ProductURL:   sale.ProductURL,
			QuantitySold: sale.QuantitySold,
			Revenue:      sale.Revenue,
			SyncedAt:     syncedAt,
		})
	}

	if err := s.repo.ReplaceProducts(ctx, store.ID, rows); err != nil {
		return 0, fmt.Errorf("failed to replace products for store %d: %w", store.ID, err)
	}

	s.log.Info("product metrics rebuilt", "store_id", store.ID, "products", len(rows))
	return len(rows), nil
}

// SyncTraffic rebuilds landing-page analytics for a civil-date window. Only
// rows whose window starts on or after the new window's start are replaced;
// older windows remain as history.
func (s *Service) SyncTraffic(ctx context.Context, store *models.Store, window models.Window) (int, error) {
	stats, err := s.shopify.FetchTraffic(ctx, store, window)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordProviderError(string(models.ProviderShopify))
		}
		return 0, fmt.Errorf("failed to fetch traffic for store %d: %w", store.ID, err)
	}

	syncedAt := s.now()
	rows := make([]models.TrafficMetric, 0, len(stats))
	for _, stat := range stats {
		rows = append(rows, models.TrafficMetric{
			StoreID:     store.ID,
			PageType:    stat.PageType,
			PagePath:    stat.PagePath,
			WindowStart: window.From,
			WindowEnd:   window.To,
			Sessions:    stat.Sessions,
			SyncedAt:    syncedAt,
		})
	}

	if err := s.repo.ReplaceTraffic(ctx, store.ID, window.From, rows); err != nil {
		return 0, fmt.Errorf("failed to replace traffic for store %d: %w", store.ID, err)
	}

	s.log.Info("traffic metrics rebuilt",
		"store_id", store.ID, "window_start", window.From, "window_end", window.To, "pages", len(rows))
	return len(rows), nil
}

// windowBounds converts an optional civil-date window into instant bounds.
func (s *Service) windowBounds(window *models.Window) (time.Time, time.Time, error) {
	if window == nil {
		return allTimeStart, s.now(), nil
	}

	fromDay, err := dates.Parse(window.From)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window start: %w", err)
	}
	toDay, err := dates.Parse(window.To)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window end: %w", err)
	}

	return fromDay, toDay.Add(24*time.Hour - time.Millisecond), nil
}
