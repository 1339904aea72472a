package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apierrors "github.com/storepulse/backend/pkg/api/errors"
	"github.com/storepulse/backend/pkg/storage"
	"github.com/storepulse/backend/pkg/stores"
)

// StoreHandler handles store management endpoints
type StoreHandler struct {
	service *stores.Service
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(service *stores.Service) *StoreHandler {
	return &StoreHandler{service: service}
}

// List returns all stores
// GET /api/v1/stores
func (h *StoreHandler) List(c echo.Context) error {
	list, err := h.service.List(c.Request().Context())
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"stores": list,
		"total":  len(list),
	})
}

// Get returns one store
// GET /api/v1/stores/:id
func (h *StoreHandler) Get(c echo.Context) error {
	id, err := storeID(c)
	if err != nil {
		return apierrors.BadRequestError(c, "invalid store id")
	}

	store, err := h.service.Get(c.Request().Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return apierrors.NotFoundError(c, "store")
	}
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	return c.JSON(http.StatusOK, store)
}

// Create registers a new store
// POST /api/v1/stores
func (h *StoreHandler) Create(c echo.Context) error {
	var input stores.CreateInput
	if err := c.Bind(&input); err != nil {
		return apierrors.ValidationError(c, err)
	}

	store, err := h.service.Create(c.Request().Context(), input)
	if err != nil {
		return apierrors.ValidationError(c, err)
	}
	return c.JSON(http.StatusCreated, store)
}

// Update changes a store's settings
// PATCH /api/v1/stores/:id
func (h *StoreHandler) Update(c echo.Context) error {
	id, err := storeID(c)
	if err != nil {
		return apierrors.BadRequestError(c, "invalid store id")
	}

	var input stores.UpdateInput
	if err := c.Bind(&input); err != nil {
		return apierrors.ValidationError(c, err)
	}

	store, err := h.service.Update(c.Request().Context(), id, input)
	if errors.Is(err, storage.ErrNotFound) {
		return apierrors.NotFoundError(c, "store")
	}
	if err != nil {
		return apierrors.ValidationError(c, err)
	}
	return c.JSON(http.StatusOK, store)
}

// Delete removes a store and all of its metrics
// DELETE /api/v1/stores/:id
func (h *StoreHandler) Delete(c echo.Context) error {
	id, err := storeID(c)
	if err != nil {
		return apierrors.BadRequestError(c, "invalid store id")
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apierrors.NotFoundError(c, "store")
		}
		return apierrors.InternalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
