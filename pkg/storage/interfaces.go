package storage

import (
	"context"
	"errors"
	"time"

	"github.com/storepulse/backend/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// StoreRepository manages tenant records. The sync pipeline only reads stores
// and writes refreshed Google tokens; all other mutations come from the
// account-management surface.
type StoreRepository interface {
	List(ctx context.Context) ([]models.Store, error)
	Get(ctx context.Context, id int) (*models.Store, error)
	Create(ctx context.Context, store *models.Store) (*models.Store, error)
	Update(ctx context.Context, store *models.Store) (*models.Store, error)
	// Delete removes a store and cascades to all of its metrics
	Delete(ctx context.Context, id int) error
	// UpdateGoogleToken persists a refreshed access token and its expiry
	UpdateGoogleToken(ctx context.Context, storeID int, token string, expiry time.Time) error
	// UpdateProviderCredentials persists tokens written by the OAuth flow
	UpdateProviderCredentials(ctx context.Context, store *models.Store) error
}

// MetricRepository persists the rollups produced by the sync pipeline. It is
// the only write path for metric entities.
type MetricRepository interface {
	// UpsertDailyMetrics inserts or overwrites one row per (store_id, date).
	// Each key is written atomically; the batch as a whole is not
	// transactional, which is fine because reruns re-derive the same dates.
	UpsertDailyMetrics(ctx context.Context, metrics []models.DailyMetric) error
	GetDailyMetrics(ctx context.Context, storeID int, from, to string) ([]models.DailyMetric, error)

	// ReplaceProducts deletes the store's full product set and inserts the
	// fresh one. Quantities are window totals, so merging would double-count.
	ReplaceProducts(ctx context.Context, storeID int, products []models.ProductMetric) error
	ListProducts(ctx context.Context, storeID int) ([]models.ProductMetric, error)

	// ReplaceTraffic clears rows whose window starts on or after windowStart,
	// then inserts the fresh set for the resynced window.
	ReplaceTraffic(ctx context.Context, storeID int, windowStart string, rows []models.TrafficMetric) error
	ListTraffic(ctx context.Context, storeID int) ([]models.TrafficMetric, error)
}
