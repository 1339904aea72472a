package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/storepulse/backend/pkg/models"
)

// MemoryRepository is an in-memory implementation of both StoreRepository and
// MetricRepository with the same key semantics as the Postgres one. Used by
// tests and as a throwaway dev backend.
type MemoryRepository struct {
	mu sync.RWMutex

	nextID  int
	stores  map[int]models.Store
	daily   map[int]map[string]models.DailyMetric // storeID -> date -> metric
	product map[int][]models.ProductMetric
	traffic map[int][]models.TrafficMetric
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:  1,
		stores:  make(map[int]models.Store),
		daily:   make(map[int]map[string]models.DailyMetric),
		product: make(map[int][]models.ProductMetric),
		traffic: make(map[int][]models.TrafficMetric),
	}
}

// List returns all stores ordered by id
func (r *MemoryRepository) List(ctx context.Context) ([]models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stores := make([]models.Store, 0, len(r.stores))
	for _, s := range r.stores {
		stores = append(stores, s)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].ID < stores[j].ID })
	return stores, nil
}

// Get returns one store by id
func (r *MemoryRepository) Get(ctx context.Context, id int) (*models.Store, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.stores[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

// Create inserts a new store
func (r *MemoryRepository) Create(ctx context.Context, store *models.Store) (*models.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	store.ID = r.nextID
	r.nextID++
	store.CreatedAt = now
	store.UpdatedAt = now
	r.stores[store.ID] = *store
	return store, nil
}

// Update persists mutable store fields
func (r *MemoryRepository) Update(ctx context.Context, store *models.Store) (*models.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.stores[store.ID]
	if !ok {
		return nil, ErrNotFound
	}
	existing.Name = store.Name
	existing.ShopifyDomain = store.ShopifyDomain
	existing.FacebookAdAccountID = store.FacebookAdAccountID
	existing.GoogleCustomerID = store.GoogleCustomerID
	existing.UpdatedAt = time.Now()
	r.stores[store.ID] = existing
	*store = existing
	return store, nil
}

// Delete removes a store and all of its metrics
func (r *MemoryRepository) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.stores[id]; !ok {
		return ErrNotFound
	}
	delete(r.stores, id)
	delete(r.daily, id)
	delete(r.product, id)
	delete(r.traffic, id)
	return nil
}

// UpdateGoogleToken persists a refreshed Google access token and its expiry
func (r *MemoryRepository) UpdateGoogleToken(ctx context.Context, storeID int, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[storeID]
	if !ok {
		return ErrNotFound
	}
	s.GoogleAccessToken = token
	s.GoogleTokenExpiry = expiry
	s.UpdatedAt = time.Now()
	r.stores[storeID] = s
	return nil
}

// UpdateProviderCredentials persists tokens written by the OAuth linking flow
func (r *MemoryRepository) UpdateProviderCredentials(ctx context.Context, store *models.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stores[store.ID]
	if !ok {
		return ErrNotFound
	}
	s.ShopifyDomain = store.ShopifyDomain
	s.ShopifyToken = store.ShopifyToken
	s.FacebookAdAccountID = store.FacebookAdAccountID
	s.FacebookToken = store.FacebookToken
	s.GoogleCustomerID = store.GoogleCustomerID
	s.GoogleRefreshToken = store.GoogleRefreshToken
	s.GoogleAccessToken = store.GoogleAccessToken
	s.GoogleTokenExpiry = store.GoogleTokenExpiry
	s.UpdatedAt = time.Now()
	r.stores[store.ID] = s
	return nil
}

// UpsertDailyMetrics inserts or overwrites one entry per (store_id, date)
func (r *MemoryRepository) UpsertDailyMetrics(ctx context.Context, metrics []models.DailyMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range metrics {
		byDate, ok := r.daily[m.StoreID]
		if !ok {
			byDate = make(map[string]models.DailyMetric)
			r.daily[m.StoreID] = byDate
		}
		m.UpdatedAt = time.Now()
		byDate[m.Date] = m
	}
	return nil
}

// GetDailyMetrics returns rollups for an inclusive civil date range, sorted
func (r *MemoryRepository) GetDailyMetrics(ctx context.Context, storeID int, from, to string) ([]models.DailyMetric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var metrics []models.DailyMetric
	for date, m := range r.daily[storeID] {
		if date >= from && date <= to {
			metrics = append(metrics, m)
		}
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Date < metrics[j].Date })
	return metrics, nil
}

// ReplaceProducts deletes the store's product set and inserts the fresh one
func (r *MemoryRepository) ReplaceProducts(ctx context.Context, storeID int, products []models.ProductMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	fresh := make([]models.ProductMetric, len(products))
	for i, p := range products {
		p.StoreID = storeID
		p.SyncedAt = now
		fresh[i] = p
	}
	r.product[storeID] = fresh
	return nil
}

// ListProducts returns the store's product metrics
func (r *MemoryRepository) ListProducts(ctx context.Context, storeID int) ([]models.ProductMetric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]models.ProductMetric, len(r.product[storeID]))
	copy(products, r.product[storeID])
	sort.Slice(products, func(i, j int) bool {
		return products[i].Revenue.GreaterThan(products[j].Revenue)
	})
	return products, nil
}

// ReplaceTraffic clears rows with window_start >= windowStart and inserts the
// fresh set
func (r *MemoryRepository) ReplaceTraffic(ctx context.Context, storeID int, windowStart string, rows []models.TrafficMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []models.TrafficMetric
	for _, t := range r.traffic[storeID] {
		if t.WindowStart < windowStart {
			kept = append(kept, t)
		}
	}

	now := time.Now()
	for _, t := range rows {
		t.StoreID = storeID
		t.SyncedAt = now
		kept = append(kept, t)
	}
	r.traffic[storeID] = kept
	return nil
}

// ListTraffic returns the store's traffic metrics
func (r *MemoryRepository) ListTraffic(ctx context.Context, storeID int) ([]models.TrafficMetric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics := make([]models.TrafficMetric, len(r.traffic[storeID]))
	copy(metrics, r.traffic[storeID])
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Sessions > metrics[j].Sessions })
	return metrics, nil
}
