package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provider identifies one of the connected data sources for a store.
type Provider string

const (
	// ProviderShopify is the Shopify Admin API (orders, products, traffic)
	ProviderShopify Provider = "shopify"
	// ProviderFacebook is the Meta Marketing API (ad insights)
	ProviderFacebook Provider = "facebook"
	// ProviderGoogle is the Google Ads API (spend)
	ProviderGoogle Provider = "google"
)

// Store is one tenant: a merchant whose sales and advertising data is
// aggregated. Credentials are written by the OAuth linking flow and the token
// refresh path; the sync pipeline otherwise treats a store as immutable input.
type Store struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	// Shopify
	ShopifyDomain string `json:"shopify_domain"`
	ShopifyToken  string `json:"-"`

	// Facebook
	FacebookAdAccountID string `json:"facebook_ad_account_id"`
	FacebookToken       string `json:"-"`

	// Google Ads
	GoogleCustomerID   string    `json:"google_customer_id"`
	GoogleRefreshToken string    `json:"-"`
	GoogleAccessToken  string    `json:"-"`
	GoogleTokenExpiry  time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DailyMetric is the per-day rollup for one store, keyed by (StoreID, Date)
// where Date is an IST civil date string. Repeated syncs for the same date
// overwrite rather than duplicate.
type DailyMetric struct {
	StoreID int    `json:"store_id"`
	Date    string `json:"date"`

	FacebookAdSpend   decimal.Decimal `json:"facebook_ad_spend"`
	GoogleAdSpend     decimal.Decimal `json:"google_ad_spend"`
	ShopifyOrderCount int             `json:"shopify_order_count"`
	ShopifyOrderValue decimal.Decimal `json:"shopify_order_value"`
	ShopifyItemCount  int             `json:"shopify_item_count"`

	UpdatedAt time.Time `json:"updated_at"`
}

// ProductMetric holds cumulative per-product sales over the last synced
// window. The full set for a store is replaced on every product sync because
// quantities are totals over the queried window, not deltas.
type ProductMetric struct {
	StoreID      int             `json:"store_id"`
	ProductID    string          `json:"product_id"`
	Title        string          `json:"title"`
	ImageURL     string          `json:"image_url"`
	ProductURL   string          `json:"product_url"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	SyncedAt     time.Time       `json:"synced_at"`
}

// TrafficMetric holds landing-page session counts for one sync window.
// Rows overlapping a newly synced window are cleared before reinsert.
type TrafficMetric struct {
	StoreID     int       `json:"store_id"`
	PageType    string    `json:"page_type"`
	PagePath    string    `json:"page_path"`
	WindowStart string    `json:"window_start"`
	WindowEnd   string    `json:"window_end"`
	Sessions    int       `json:"sessions"`
	SyncedAt    time.Time `json:"synced_at"`
}

// DailySpend is one day's ad spend from a single provider. Ephemeral: produced
// by a provider client and consumed by the merge engine in the same run.
type DailySpend struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

// OrderStat is one day's Shopify order aggregate. Ephemeral.
type OrderStat struct {
	Date       string          `json:"date"`
	OrderCount int             `json:"order_count"`
	OrderValue decimal.Decimal `json:"order_value"`
	ItemCount  int             `json:"item_count"`
}

// ProductSale is one product's cumulative sales over a fetch window.
// Ephemeral; persisted only through the reset-then-rebuild path.
type ProductSale struct {
	ProductID    string          `json:"product_id"`
	Title        string          `json:"title"`
	ImageURL     string          `json:"image_url"`
	ProductURL   string          `json:"product_url"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// TrafficStat is one landing page's session count over a fetch window.
type TrafficStat struct {
	PageType string `json:"page_type"`
	PagePath string `json:"page_path"`
	Sessions int    `json:"sessions"`
}

// GeoStat is one country/region's order count over a fetch window.
type GeoStat struct {
	Country    string          `json:"country"`
	Region     string          `json:"region"`
	OrderCount int             `json:"order_count"`
	OrderValue decimal.Decimal `json:"order_value"`
}

// InsightRecord is one Facebook entity's (campaign/adset/ad) performance for a
// date range, with action breakdowns resolved to human labels and an
// objective-specific primary result.
type InsightRecord struct {
	EntityID      string          `json:"entity_id"`
	EntityName    string          `json:"entity_name"`
	Level         string          `json:"level"`
	Objective     string          `json:"objective"`
	Status        string          `json:"status"`
	Spend         decimal.Decimal `json:"spend"`
	Impressions   int64           `json:"impressions"`
	Clicks        int64           `json:"clicks"`
	Actions       []ActionStat    `json:"actions"`
	PrimaryResult ActionStat      `json:"primary_result"`
}

// ActionStat is one resolved action-type count from a Facebook insights row.
type ActionStat struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value int64  `json:"value"`
}

// ConnectionStatus is the result of a provider connection test.
type ConnectionStatus struct {
	Provider Provider `json:"provider"`
	OK       bool     `json:"ok"`
	Message  string   `json:"message"`
}

// Window is an optional civil-date range bound for product/traffic syncs.
// A nil *Window means all-time.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ErrorResponse is the standard error body returned by API handlers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
