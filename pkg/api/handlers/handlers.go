// Package handlers contains the Echo HTTP handlers for the API surface.
package handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	apierrors "github.com/storepulse/backend/pkg/api/errors"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
)

// errBadStoreID marks an unparseable :id path parameter.
var errBadStoreID = errors.New("invalid store id")

// storeID parses the :id path parameter.
func storeID(c echo.Context) (int, error) {
	return strconv.Atoi(c.Param("id"))
}

// loadStore resolves the :id path parameter to a store record.
func loadStore(c echo.Context, repo storage.StoreRepository) (*models.Store, error) {
	id, err := storeID(c)
	if err != nil {
		return nil, errBadStoreID
	}
	return repo.Get(c.Request().Context(), id)
}

// respondStoreError maps loadStore failures to API responses.
func respondStoreError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, errBadStoreID):
		return apierrors.BadRequestError(c, "invalid store id")
	case errors.Is(err, storage.ErrNotFound):
		return apierrors.NotFoundError(c, "store")
	default:
		return apierrors.InternalError(c, err)
	}
}
