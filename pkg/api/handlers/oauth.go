package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	apierrors "github.com/storepulse/backend/pkg/api/errors"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/oauth"
	"github.com/storepulse/backend/pkg/storage"
)

// OAuthHandler handles the provider-linking flow.
type OAuthHandler struct {
	stores  storage.StoreRepository
	service *oauth.Service
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(stores storage.StoreRepository, service *oauth.Service) *OAuthHandler {
	return &OAuthHandler{stores: stores, service: service}
}

// Connect returns the provider authorization URL for a store.
// GET /api/v1/stores/:id/oauth/:provider
func (h *OAuthHandler) Connect(c echo.Context) error {
	store, err := loadStore(c, h.stores)
	if err != nil {
		return respondStoreError(c, err)
	}

	provider := models.Provider(c.Param("provider"))

	authURL, err := h.service.AuthURL(c.Request().Context(), store, provider)
	if errors.Is(err, oauth.ErrInvalidProvider) {
		return apierrors.BadRequestError(c, "unknown provider")
	}
	if err != nil {
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"provider": string(provider),
		"auth_url": authURL,
	})
}

// Callback completes the link: validates state, exchanges the code, and
// persists credentials.
// GET /api/v1/oauth/callback
func (h *OAuthHandler) Callback(c echo.Context) error {
	state := c.QueryParam("state")
	if state == "" {
		return apierrors.BadRequestError(c, "missing state")
	}

	store, err := h.service.HandleCallback(c.Request().Context(), state, c.QueryParams())
	switch {
	case errors.Is(err, oauth.ErrInvalidState):
		return apierrors.BadRequestError(c, "invalid or expired state")
	case errors.Is(err, oauth.ErrInvalidHMAC):
		return apierrors.BadRequestError(c, "signature verification failed")
	case errors.Is(err, oauth.ErrInvalidCode):
		return apierrors.BadRequestError(c, "authorization code rejected")
	case err != nil:
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"store_id": store.ID,
		"message":  "provider linked",
	})
}
