package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	apierrors "github.com/storepulse/backend/pkg/api/errors"
	"github.com/storepulse/backend/pkg/dates"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
)

// insightsSource fetches per-entity ad performance.
type insightsSource interface {
	FetchInsights(ctx context.Context, store *models.Store, from, to, level string) ([]models.InsightRecord, error)
}

// geographySource fetches order geography.
type geographySource interface {
	FetchGeography(ctx context.Context, store *models.Store, window models.Window) ([]models.GeoStat, error)
}

// InsightsHandler serves live (non-persisted) analytics straight from the
// provider APIs.
type InsightsHandler struct {
	stores    storage.StoreRepository
	facebook  insightsSource
	geography geographySource
}

// NewInsightsHandler creates a new insights handler
func NewInsightsHandler(stores storage.StoreRepository, facebook insightsSource, geography geographySource) *InsightsHandler {
	return &InsightsHandler{stores: stores, facebook: facebook, geography: geography}
}

// GetInsights returns Facebook entity performance for a date range.
// GET /api/v1/stores/:id/insights?from=&to=&level=campaign|adset|ad
func (h *InsightsHandler) GetInsights(c echo.Context) error {
	store, err := loadStore(c, h.stores)
	if err != nil {
		return respondStoreError(c, err)
	}

	from := c.QueryParam("from")
	to := c.QueryParam("to")
	if from == "" {
		from = dates.DaysAgoIST(7)
	}
	if to == "" {
		to = dates.YesterdayIST()
	}
	level := c.QueryParam("level")
	if level == "" {
		level = "campaign"
	}

	records, err := h.facebook.FetchInsights(c.Request().Context(), store, from, to, level)
	if err != nil {
		return apierrors.SyncError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"store_id": store.ID,
		"level":    level,
		"range":    dates.RangeDescription(from, to),
		"insights": records,
		"total":    len(records),
	})
}

// GetGeography returns order counts by country and region.
// GET /api/v1/stores/:id/geography?from=&to=
func (h *InsightsHandler) GetGeography(c echo.Context) error {
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

	stats, err := h.geography.FetchGeography(c.Request().Context(), store, models.Window{From: from, To: to})
	if err != nil {
		return apierrors.SyncError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"store_id":  store.ID,
		"range":     dates.RangeDescription(from, to),
		"geography": stats,
		"total":     len(stats),
	})
}
