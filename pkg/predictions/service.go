package predictions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/pkg/storage"
)

var (
	// ErrNotConfigured is returned when no prediction service URL is set
	ErrNotConfigured = errors.New("prediction service not configured")
	// ErrUpstreamError is returned when the prediction service fails
	ErrUpstreamError = errors.New("prediction service error")
)

// ForecastPoint is one predicted day.
type ForecastPoint struct {
	Date               string          `json:"date"`
	ExpectedOrderValue decimal.Decimal `json:"expected_order_value"`
	ExpectedAdSpend    decimal.Decimal `json:"expected_ad_spend"`
}

// Forecast is the prediction service's response for a store.
type Forecast struct {
	StoreID int             `json:"store_id"`
	Points  []ForecastPoint `json:"points"`
}

// Service proxies forecasting to the external prediction service, feeding it
// the store's daily metric history.
type Service struct {
	repo    storage.MetricRepository
	client  *http.Client
	baseURL string
}

// NewService creates a prediction proxy; baseURL may be empty when the
// feature is disabled.
func NewService(repo storage.MetricRepository, baseURL string) *Service {
	return &Service{
		repo:    repo,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
	}
}

// Enabled reports whether a prediction backend is configured.
func (s *Service) Enabled() bool {
	return s.baseURL != ""
}

// Forecast sends the store's history for the given range upstream and returns
// the predicted days.
func (s *Service) Forecast(ctx context.Context, storeID int, from, to string, horizonDays int) (*Forecast, error) {
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}

	history, err := s.repo.GetDailyMetrics(ctx, storeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric history: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"store_id":     storeID,
		"horizon_days": horizonDays,
		"history":      history,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/forecast", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamError, resp.StatusCode)
	}

	var forecast Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("failed to decode forecast: %w", err)
	}
	forecast.StoreID = storeID
	return &forecast, nil
}
