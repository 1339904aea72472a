package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	apierrors "github.com/storepulse/backend/pkg/api/errors"
	"github.com/storepulse/backend/pkg/dates"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
	"github.com/storepulse/backend/pkg/sync"
)

// SyncHandler exposes manual sync triggers. The cron jobs use the same sync
// service; these endpoints exist for backfills and on-demand refreshes.
type SyncHandler struct {
	stores storage.StoreRepository
	syncer *sync.Service
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(stores storage.StoreRepository, syncer *sync.Service) *SyncHandler {
	return &SyncHandler{stores: stores, syncer: syncer}
}

type rangeRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SyncDaily syncs one civil date, defaulting to yesterday IST.
// POST /api/v1/stores/:id/sync/daily
func (h *SyncHandler) SyncDaily(c echo.Context) error {
	store, err := h.loadStore(c)
	if err != nil {
		return respondStoreError(c, err)
	}

	var req struct {
		Date string `json:"date"`
	}
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if req.Date == "" {
		req.Date = dates.YesterdayIST()
	}
	if _, err := dates.Parse(req.Date); err != nil {
		return apierrors.BadRequestError(c, "date must be YYYY-MM-DD")
	}

	days, err := h.syncer.SyncDay(c.Request().Context(), store, req.Date)
	if err != nil {
		return apierrors.SyncError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"days":    days,
		"date":    req.Date,
		"message": fmt.Sprintf("synced %s for store %d", req.Date, store.ID),
	})
}

// SyncRange syncs an inclusive civil-date range.
// POST /api/v1/stores/:id/sync/range
func (h *SyncHandler) SyncRange(c echo.Context) error {
	store, err := h.loadStore(c)
	if err != nil {
		return respondStoreError(c, err)
	}

	var req rangeRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if req.From == "" || req.To == "" {
		return apierrors.BadRequestError(c, "from and to are required (YYYY-MM-DD)")
	}
	if req.From > req.To {
		return apierrors.BadRequestError(c, "from must not be after to")
	}

	days, err := h.syncer.SyncRange(c.Request().Context(), store, req.From, req.To)
	if err != nil {
		return apierrors.SyncError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"days":    days,
		"range":   dates.RangeDescription(req.From, req.To),
		"message": fmt.Sprintf("synced %d days for store %d", days, store.ID),
	})
}

// SyncProducts rebuilds product analytics. An empty body means all-time.
// POST /api/v1/stores/:id/sync/products
func (h *SyncHandler) SyncProducts(c echo.Context) error {
	store, err := h.loadStore(c)
	if err != nil {
		return respondStoreError(c, err)
	}

	var req rangeRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	var window *models.Window
	if req.From != "" && req.To != "" {
		window = &models.Window{From: req.From, To: req.To}
	}

	count, err := h.syncer.SyncProducts(c.Request().Context(), store, window)
	if err != nil {
		return apierrors.SyncError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"products": count,
		"message":  fmt.Sprintf("rebuilt %d products for store %d", count, store.ID),
	})
}

// SyncTraffic rebuilds landing-page analytics for a window, defaulting to the
// last 7 days.
// POST /api/v1/stores/:id/sync/traffic
func (h *SyncHandler) SyncTraffic(c echo.Context) error {
	store, err := h.loadStore(c)
	if err != nil {
		return respondStoreError(c, err)
	}

	var req rangeRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if req.From == "" {
		req.From = dates.DaysAgoIST(7)
	}
	if req.To == "" {
		req.To = dates.YesterdayIST()
	}

	count, err := h.syncer.SyncTraffic(c.Request().Context(), store, models.Window{From: req.From, To: req.To})
	if err != nil {
		return apierrors.SyncError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"pages":   count,
		"range":   dates.RangeDescription(req.From, req.To),
		"message": fmt.Sprintf("rebuilt %d traffic rows for store %d", count, store.ID),
	})
}

func (h *SyncHandler) loadStore(c echo.Context) (*models.Store, error) {
	return loadStore(c, h.stores)
}
