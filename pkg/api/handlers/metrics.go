package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	apierrors "github.com/storepulse/backend/pkg/api/errors"
	"github.com/storepulse/backend/pkg/dates"
	"github.com/storepulse/backend/pkg/storage"
)

// MetricsHandler serves the persisted rollups.
type MetricsHandler struct {
	stores  storage.StoreRepository
	metrics storage.MetricRepository
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(stores storage.StoreRepository, metrics storage.MetricRepository) *MetricsHandler {
	return &MetricsHandler{stores: stores, metrics: metrics}
}

// GetDaily returns daily metrics for a civil-date range, defaulting to the
// last 30 days.
// GET /api/v1/stores/:id/metrics/daily?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *MetricsHandler) GetDaily(c echo.Context) error {
	store, err := loadStore(c, h.stores)
	if err != nil {
		return respondStoreError(c, err)
	}

	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if from == "" {
		from = dates.DaysAgoIST(30)
	}
	if to == "" {
		to = dates.YesterdayIST()
	}
	if _, err := dates.Parse(from); err != nil {
		return apierrors.BadRequestError(c, "from must be YYYY-MM-DD")
	}
	if _, err := dates.Parse(to); err != nil {
		return apierrors.BadRequestError(c, "to must be YYYY-MM-DD")
	}

	rows, err := h.metrics.GetDailyMetrics(c.Request().Context(), store.ID, from, to)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"store_id": store.ID,
		"range":    dates.RangeDescription(from, to),
		"metrics":  rows,
		"total":    len(rows),
	})
}

// GetProducts returns the store's product analytics, revenue descending.
// GET /api/v1/stores/:id/metrics/products
func (h *MetricsHandler) GetProducts(c echo.Context) error {
	store, err := loadStore(c, h.stores)
	if err != nil {
		return respondStoreError(c, err)
	}

	rows, err := h.metrics.ListProducts(c.Request().Context(), store.ID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"store_id": store.ID,
		"products": rows,
		"total":    len(rows),
	})
}

// GetTraffic returns the store's landing-page analytics.
// GET /api/v1/stores/:id/metrics/traffic
func (h *MetricsHandler) GetTraffic(c echo.Context) error {
	store, err := loadStore(c, h.stores)
	if err != nil {
		return respondStoreError(c, err)
	}

	rows, err := h.metrics.ListTraffic(c.Request().Context(), store.ID)
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"store_id": store.ID,
		"traffic":  rows,
		"total":    len(rows),
	})
}
