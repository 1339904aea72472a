package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
)

// connectionTester probes one provider with the store's stored credentials.
type connectionTester interface {
	TestConnection(ctx context.Context, store *models.Store) models.ConnectionStatus
}

// ConnectionsHandler reports the health of a store's provider links.
type ConnectionsHandler struct {
	stores  storage.StoreRepository
	testers []connectionTester
}

// NewConnectionsHandler creates a new connections handler
func NewConnectionsHandler(stores storage.StoreRepository, testers ...connectionTester) *ConnectionsHandler {
	return &ConnectionsHandler{stores: stores, testers: testers}
}

// Test probes every provider and returns per-provider status. A failed
// provider does not fail the request.
// GET /api/v1/stores/:id/connections
func (h *ConnectionsHandler) Test(c echo.Context) error {
	store, err := loadStore(c, h.stores)
	if err != nil {
		return respondStoreError(c, err)
	}

	statuses := make([]models.ConnectionStatus, 0, len(h.testers))
	allOK := true
	for _, tester := range h.testers {
		status := tester.TestConnection(c.Request().Context(), store)
		statuses = append(statuses, status)
		if !status.OK {
			allOK = false
		}
	}

	return c.JSON(http.StatusOK, map[string]any{
		"store_id":    store.ID,
		"all_ok":      allOK,
		"connections": statuses,
	})
}
