package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
)

var (
	// ErrNoToken is returned when a store has no credential for the provider
	ErrNoToken = errors.New("no access token on file")
	// ErrNoRefreshToken is returned when a Google token is expired and no
	// refresh token is stored
	ErrNoRefreshToken = errors.New("no refresh token on file")
	// ErrRefreshFailed is returned when the token endpoint rejects a refresh
	ErrRefreshFailed = errors.New("token refresh failed")
)

// refreshSkew is how long before recorded expiry a token is treated as stale.
const refreshSkew = 5 * time.Minute

// Service is the single token supply for all provider clients. Shopify and
// Facebook tokens are long-lived and returned as stored; Google access tokens
// are refreshed through the stored refresh token when within refreshSkew of
// expiry, and the refreshed token is persisted back to the store record.
type Service struct {
	repo         storage.StoreRepository
	client       *http.Client
	tokenURL     string
	clientID     string
	clientSecret string
	now          func() time.Time
}

// NewService creates a token supply service
func NewService(repo storage.StoreRepository, googleClientID, googleClientSecret string) *Service {
	return &Service{
		repo:         repo,
		client:       &http.Client{Timeout: 10 * time.Second},
		tokenURL:     "https://oauth2.googleapis.com/token",
		clientID:     googleClientID,
		clientSecret: googleClientSecret,
		now:          time.Now,
	}
}

// AccessToken returns a valid bearer credential for the store and provider
func (s *Service) AccessToken(ctx context.Context, store *models.Store, provider models.Provider) (string, error) {
	switch provider {
	case models.ProviderShopify:
		if store.ShopifyToken == "" {
			return "", fmt.Errorf("shopify store %d: %w", store.ID, ErrNoToken)
		}
		return store.ShopifyToken, nil

	case models.ProviderFacebook:
		if store.FacebookToken == "" {
			return "", fmt.Errorf("facebook store %d: %w", store.ID, ErrNoToken)
		}
		return store.FacebookToken, nil

	case models.ProviderGoogle:
		return s.googleAccessToken(ctx, store)

	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}

// googleAccessToken returns the cached token when it is still valid for more
// than refreshSkew, otherwise refreshes and persists a new one.
func (s *Service) googleAccessToken(ctx context.Context, store *models.Store) (string, error) {
	if store.GoogleAccessToken != "" && s.now().Add(refreshSkew).Before(store.GoogleTokenExpiry) {
		return store.GoogleAccessToken, nil
	}

	if store.GoogleRefreshToken == "" {
		return "", fmt.Errorf("google store %d: %w", store.ID, ErrNoRefreshToken)
	}

	data := url.Values{}
	data.Set("client_id", s.clientID)
	data.Set("client_secret", s.clientSecret)
	data.Set("refresh_token", store.GoogleRefreshToken)
	data.Set("grant_type", "refresh_token")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to refresh google token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access_token", ErrRefreshFailed)
	}

	expiry := s.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	if err := s.repo.UpdateGoogleToken(ctx, store.ID, tokenResp.AccessToken, expiry); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	// Keep the in-flight store record current so later calls in the same sync
	// run reuse the fresh token without another refresh.
	store.GoogleAccessToken = tokenResp.AccessToken
	store.GoogleTokenExpiry = expiry

	return tokenResp.AccessToken, nil
}
