package predictions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastSendsHistory(t *testing.T) {
	repo := storage.NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.UpsertDailyMetrics(ctx, []models.DailyMetric{
		{StoreID: 1, Date: "2024-06-01", ShopifyOrderValue: decimal.RequireFromString("100")},
		{StoreID: 1, Date: "2024-06-02", ShopifyOrderValue: decimal.RequireFromString("150")},
	}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)

		var body struct {
			StoreID     int                  `json:"store_id"`
			HorizonDays int                  `json:"horizon_days"`
			History     []models.DailyMetric `json:"history"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1, body.StoreID)
		assert.Equal(t, 7, body.HorizonDays)
		assert.Len(t, body.History, 2)

		fmt.Fprint(w, `{"points": [{"date": "2024-06-03", "expected_order_value": "130", "expected_ad_spend": "40"}]}`)
	}))
	t.Cleanup(srv.Close)

	svc := NewService(repo, srv.URL)

	forecast, err := svc.Forecast(ctx, 1, "2024-06-01", "2024-06-02", 7)
	require.NoError(t, err)
	assert.Equal(t, 1, forecast.StoreID)
	require.Len(t, forecast.Points, 1)
	assert.Equal(t, "2024-06-03", forecast.Points[0].Date)
	assert.True(t, forecast.Points[0].ExpectedOrderValue.Equal(decimal.RequireFromString("130")))
}

func TestForecastNotConfigured(t *testing.T) {
	svc := NewService(storage.NewMemoryRepository(), "")
	assert.False(t, svc.Enabled())

	_, err := svc.Forecast(context.Background(), 1, "2024-06-01", "2024-06-02", 7)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestForecastUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	svc := NewService(storage.NewMemoryRepository(), srv.URL)

	_, err := svc.Forecast(context.Background(), 1, "2024-06-01", "2024-06-02", 7)
	assert.ErrorIs(t, err, ErrUpstreamError)
}
