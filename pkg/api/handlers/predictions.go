package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apierrors "github.com/storepulse/backend/pkg/api/errors"
	"github.com/storepulse/backend/pkg/dates"
	"github.com/storepulse/backend/pkg/predictions"
	"github.com/storepulse/backend/pkg/storage"
)

// PredictionsHandler proxies forecasting requests.
type PredictionsHandler struct {
	stores  storage.StoreRepository
	service *predictions.Service
}

// NewPredictionsHandler creates a new predictions handler
func NewPredictionsHandler(stores storage.StoreRepository, service *predictions.Service) *PredictionsHandler {
	return &PredictionsHandler{stores: stores, service: service}
}

// Forecast returns predicted daily metrics based on recent history.
// POST /api/v1/stores/:id/predictions/forecast
func (h *PredictionsHandler) Forecast(c echo.Context) error {
	store, err := loadStore(c, h.stores)
	if err != nil {
		return respondStoreError(c, err)
	}

	var req struct {
		From        string `json:"from"`
		To          string `json:"to"`
		HorizonDays int    `json:"horizon_days"`
	}
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}
	if req.From == "" {
		req.From = dates.DaysAgoIST(90)
	}
	if req.To == "" {
		req.To = dates.YesterdayIST()
	}
	if req.HorizonDays <= 0 {
		req.HorizonDays = 7
	}

	forecast, err := h.service.Forecast(c.Request().Context(), store.ID, req.From, req.To, req.HorizonDays)
	if errors.Is(err, predictions.ErrNotConfigured) {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error":   "predictions_disabled",
			"message": "No prediction service is configured.",
		})
	}
	if err != nil {
		return apierrors.SyncError(c, err)
	}

	return c.JSON(http.StatusOK, forecast)
}
