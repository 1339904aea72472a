package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storepulse/backend/pkg/models"
)

// PostgresStoreRepository implements StoreRepository on Postgres
type PostgresStoreRepository struct {
	db *sql.DB
}

// NewPostgresStoreRepository creates a Postgres-backed store repository
func NewPostgresStoreRepository(db *sql.DB) *PostgresStoreRepository {
	return &PostgresStoreRepository{db: db}
}

const storeColumns = `id, name, shopify_domain, shopify_token,
	facebook_ad_account_id, facebook_token,
	google_customer_id, google_refresh_token, google_access_token, google_token_expiry,
	created_at, updated_at`

func scanStore(row interface{ Scan(...any) error }) (*models.Store, error) {
	var s models.Store
	var shopifyToken, fbToken, googleRefresh, googleAccess sql.NullString
	var googleExpiry sql.NullTime

	err := row.Scan(
		&s.ID, &s.Name, &s.ShopifyDomain, &shopifyToken,
		&s.FacebookAdAccountID, &fbToken,
		&s.GoogleCustomerID, &googleRefresh, &googleAccess, &googleExpiry,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.ShopifyToken = shopifyToken.String
	s.FacebookToken = fbToken.String
	s.GoogleRefreshToken = googleRefresh.String
	s.GoogleAccessToken = googleAccess.String
	s.GoogleTokenExpiry = googleExpiry.Time
	return &s, nil
}

// List returns all stores ordered by id
func (r *PostgresStoreRepository) List(ctx context.Context) ([]models.Store, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var stores []models.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, *s)
	}
	return stores, rows.Err()
}

// Get returns one store by id
func (r *PostgresStoreRepository) Get(ctx context.Context, id int) (*models.Store, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+storeColumns+` FROM stores WHERE id = $1`, id)
	s, err := scanStore(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store %d: %w", id, err)
	}
	return s, nil
}

// Create inserts a new store
func (r *PostgresStoreRepository) Create(ctx context.Context, store *models.Store) (*models.Store, error) {
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO stores (name, shopify_domain, facebook_ad_account_id, google_customer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING id`,
		store.Name, store.ShopifyDomain, store.FacebookAdAccountID, store.GoogleCustomerID, now,
	).Scan(&store.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	store.CreatedAt = now
	store.UpdatedAt = now
	return store, nil
}

// Update persists mutable store fields
func (r *PostgresStoreRepository) Update(ctx context.Context, store *models.Store) (*models.Store, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		UPDATE stores SET name = $1, shopify_domain = $2, facebook_ad_account_id = $3,
			google_customer_id = $4, updated_at = $5
		WHERE id = $6`,
		store.Name, store.ShopifyDomain, store.FacebookAdAccountID, store.GoogleCustomerID, now, store.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update store %d: %w", store.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	store.UpdatedAt = now
	return store, nil
}

// Delete removes a store and all of its metrics
func (r *PostgresStoreRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"daily_metrics", "product_metrics", "traffic_metrics"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE store_id = $1`, table), id); err != nil {
			return fmt.Errorf("failed to delete %s for store %d: %w", table, id, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM stores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete store %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

// UpdateGoogleToken persists a refreshed Google access token and its expiry
func (r *PostgresStoreRepository) UpdateGoogleToken(ctx context.Context, storeID int, token string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stores SET google_access_token = $1, google_token_expiry = $2, updated_at = $3
		WHERE id = $4`,
		token, expiry, time.Now(), storeID,
	)
	if err != nil {
		return fmt.Errorf("failed to update google token for store %d: %w", storeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProviderCredentials persists tokens written by the OAuth linking flow
func (r *PostgresStoreRepository) UpdateProviderCredentials(ctx context.Context, store *models.Store) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE stores SET shopify_domain = $1, shopify_token = $2,
			facebook_ad_account_id = $3, facebook_token = $4,
			google_customer_id = $5, google_refresh_token = $6,
			google_access_token = $7, google_token_expiry = $8, updated_at = $9
		WHERE id = $10`,
		store.ShopifyDomain, store.ShopifyToken,
		store.FacebookAdAccountID, store.FacebookToken,
		store.GoogleCustomerID, store.GoogleRefreshToken,
		store.GoogleAccessToken, store.GoogleTokenExpiry, time.Now(), store.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update credentials for store %d: %w", store.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PostgresMetricRepository implements MetricRepository on Postgres
type PostgresMetricRepository struct {
	db *sql.DB
}

// NewPostgresMetricRepository creates a Postgres-backed metric repository
func NewPostgresMetricRepository(db *sql.DB) *PostgresMetricRepository {
	return &PostgresMetricRepository{db: db}
}

// UpsertDailyMetrics inserts or overwrites one row per (store_id, date).
// Each statement is atomic per key; the loop is not wrapped in a transaction
// because a rerun re-derives and overwrites the same dates.
func (r *PostgresMetricRepository) UpsertDailyMetrics(ctx context.Context, metrics []models.DailyMetric) error {
	for _, m := range metrics {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO daily_metrics (store_id, date, facebook_ad_spend, google_ad_spend,
				shopify_order_count, shopify_order_value, shopify_item_count, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (store_id, date) DO UPDATE SET
				facebook_ad_spend = EXCLUDED.facebook_ad_spend,
				google_ad_spend = EXCLUDED.google_ad_spend,
				shopify_order_count = EXCLUDED.shopify_order_count,
				shopify_order_value = EXCLUDED.shopify_order_value,
				shopify_item_count = EXCLUDED.shopify_item_count,
				updated_at = EXCLUDED.updated_at`,
			m.StoreID, m.Date, m.FacebookAdSpend, m.GoogleAdSpend,
			m.ShopifyOrderCount, m.ShopifyOrderValue, m.ShopifyItemCount, time.Now(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert daily metric %d/%s: %w", m.StoreID, m.Date, err)
		}
	}
	return nil
}

// GetDailyMetrics returns the store's rollups for an inclusive civil date range
func (r *PostgresMetricRepository) GetDailyMetrics(ctx context.Context, storeID int, from, to string) ([]models.DailyMetric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT store_id, date, facebook_ad_spend, google_ad_spend,
			shopify_order_count, shopify_order_value, shopify_item_count, updated_at
		FROM daily_metrics
		WHERE store_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date`,
		storeID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	defer rows.Close()

	var metrics []models.DailyMetric
	for rows.Next() {
		var m models.DailyMetric
		if err := rows.Scan(&m.StoreID, &m.Date, &m.FacebookAdSpend, &m.GoogleAdSpend,
			&m.ShopifyOrderCount, &m.ShopifyOrderValue, &m.ShopifyItemCount, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// ReplaceProducts performs the reset-then-rebuild inside one transaction so
// readers never observe a partially rebuilt set.
func (r *PostgresMetricRepository) ReplaceProducts(ctx context.Context, storeID int, products []models.ProductMetric) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin product replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_metrics WHERE store_id = $1`, storeID); err != nil {
		return fmt.Errorf("failed to reset products for store %d: %w", storeID, err)
	}

	now := time.Now()
	for _, p := range products {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO product_metrics (store_id, product_id, title, image_url, product_url,
				quantity_sold, revenue, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			storeID, p.ProductID, p.Title, p.ImageURL, p.ProductURL,
			p.QuantitySold, p.Revenue, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert product %s: %w", p.ProductID, err)
		}
	}

	return tx.Commit()
}

// ListProducts returns the store's product metrics ordered by revenue
func (r *PostgresMetricRepository) ListProducts(ctx context.Context, storeID int) ([]models.ProductMetric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT store_id, product_id, title, image_url, product_url, quantity_sold, revenue, synced_at
		FROM product_metrics WHERE store_id = $1 ORDER BY revenue DESC`,
		storeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []models.ProductMetric
	for rows.Next() {
		var p models.ProductMetric
		if err := rows.Scan(&p.StoreID, &p.ProductID, &p.Title, &p.ImageURL, &p.ProductURL,
			&p.QuantitySold, &p.Revenue, &p.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ReplaceTraffic clears rows whose window starts on or after windowStart and
// inserts the fresh set, in one transaction.
func (r *PostgresMetricRepository) ReplaceTraffic(ctx context.Context, storeID int, windowStart string, rows []models.TrafficMetric) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin traffic replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM traffic_metrics WHERE store_id = $1 AND window_start >= $2`,
		storeID, windowStart); err != nil {
		return fmt.Errorf("failed to reset traffic for store %d: %w", storeID, err)
	}

	now := time.Now()
	for _, t := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO traffic_metrics (store_id, page_type, page_path, window_start, window_end, sessions, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			storeID, t.PageType, t.PagePath, t.WindowStart, t.WindowEnd, t.Sessions, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert traffic row %s: %w", t.PagePath, err)
		}
	}

	return tx.Commit()
}

// ListTraffic returns the store's traffic metrics ordered by sessions
func (r *PostgresMetricRepository) ListTraffic(ctx context.Context, storeID int) ([]models.TrafficMetric, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT store_id, page_type, page_path, window_start, window_end, sessions, synced_at
		FROM traffic_metrics WHERE store_id = $1 ORDER BY sessions DESC`,
		storeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query traffic: %w", err)
	}
	defer rows.Close()

	var metrics []models.TrafficMetric
	for rows.Next() {
		var t models.TrafficMetric
		if err := rows.Scan(&t.StoreID, &t.PageType, &t.PagePath, &t.WindowStart,
			&t.WindowEnd, &t.Sessions, &t.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan traffic row: %w", err)
		}
		metrics = append(metrics, t)
	}
	return metrics, rows.Err()
}
