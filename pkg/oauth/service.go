package oauth

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/storepulse/backend/config"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
)

var (
	// ErrInvalidProvider is returned when an unsupported provider is specified
	ErrInvalidProvider = errors.New("invalid OAuth provider")
	// ErrInvalidCode is returned when the authorization code is rejected
	ErrInvalidCode = errors.New("invalid authorization code")
	// ErrInvalidHMAC is returned when a Shopify callback fails HMAC verification
	ErrInvalidHMAC = errors.New("shopify HMAC verification failed")
	// ErrProviderAPIError is returned when the provider API returns an error
	ErrProviderAPIError = errors.New("OAuth provider API error")
)

// Service handles the provider-linking OAuth flow: issuing authorization URLs
// and exchanging callback codes for credentials persisted on the store record.
type Service struct {
	repo   storage.StoreRepository
	states *StateStore
	config *config.Config
	client *http.Client

	// endpoint overrides for tests
	shopifyEndpoint func(shop string) string
	facebookBaseURL string
	googleTokenURL  string
}

// NewService creates a new OAuth service
func NewService(repo storage.StoreRepository, states *StateStore, cfg *config.Config) *Service {
	return &Service{
		repo:   repo,
		states: states,
		config: cfg,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		shopifyEndpoint: func(shop string) string { return "https://" + shop },
		facebookBaseURL: "https://graph.facebook.com",
		googleTokenURL:  "https://oauth2.googleapis.com/token",
	}
}

// AuthURL returns the provider authorization URL for linking a store, with a
// single-use state token bound to the store.
func (s *Service) AuthURL(ctx context.Context, store *models.Store, provider models.Provider) (string, error) {
	state, err := s.states.Issue(ctx, store.ID, provider)
	if err != nil {
		return "", err
	}

	switch provider {
	case models.ProviderShopify:
		if store.ShopifyDomain == "" {
			return "", errors.New("store has no shopify domain configured")
		}
		return s.shopifyAuthURL(store.ShopifyDomain, state), nil
	case models.ProviderFacebook:
		return s.facebookAuthURL(state), nil
	case models.ProviderGoogle:
		return s.googleAuthURL(state), nil
	default:
		return "", ErrInvalidProvider
	}
}

// HandleCallback consumes the state, exchanges the authorization code, and
// persists the resulting credentials on the store.
func (s *Service) HandleCallback(ctx context.Context, state string, query url.Values) (*models.Store, error) {
	storeID, provider, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}

	store, err := s.repo.Get(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load store %d: %w", storeID, err)
	}

	switch provider {
	case models.ProviderShopify:
		err = s.handleShopifyCallback(ctx, store, query)
	case models.ProviderFacebook:
		err = s.handleFacebookCallback(ctx, store, query.Get("code"))
	case models.ProviderGoogle:
		err = s.handleGoogleCallback(ctx, store, query.Get("code"))
	default:
		return nil, ErrInvalidProvider
	}
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProviderCredentials(ctx, store); err != nil {
		return nil, fmt.Errorf("failed to persist credentials: %w", err)
	}
	return store, nil
}

// Shopify

func (s *Service) shopifyAuthURL(shop, state string) string {
	params := url.Values{}
	params.Add("client_id", s.config.ShopifyClientID)
	params.Add("scope", "read_orders,read_products,read_analytics")
	params.Add("redirect_uri", s.config.OAuthCallbackURL+"/callback")
	params.Add("state", state)
	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, params.Encode())
}

func (s *Service) handleShopifyCallback(ctx context.Context, store *models.Store, query url.Values) error {
	if !s.verifyShopifyHMAC(query) {
		return ErrInvalidHMAC
	}

	shop := query.Get("shop")
	if shop == "" {
		shop = store.ShopifyDomain
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     s.config.ShopifyClientID,
		"client_secret": s.config.ShopifyClientSecret,
		"code":          query.Get("code"),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.shopifyEndpoint(shop)+"/admin/oauth/access_token", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrInvalidCode, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return ErrInvalidCode
	}

	store.ShopifyDomain = shop
	store.ShopifyToken = tokenResp.AccessToken
	return nil
}

// verifyShopifyHMAC checks the callback signature: HMAC-SHA256 over the
// sorted query string minus the hmac and signature params, keyed by the app
// secret.
func (s *Service) verifyShopifyHMAC(query url.Values) bool {
	provided := query.Get("hmac")
	if provided == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+query.Get(k))
	}
	message := strings.Join(pairs, "&")

	mac := hmac.New(sha256.New, []byte(s.config.ShopifyClientSecret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(provided))
}

// Facebook

func (s *Service) facebookAuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", s.config.FacebookClientID)
	params.Add("redirect_uri", s.config.OAuthCallbackURL+"/callback")
	params.Add("scope", "ads_read")
	params.Add("state", state)
	return fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth?%s",
		s.config.FacebookAPIVersion, params.Encode())
}

func (s *Service) handleFacebookCallback(ctx context.Context, store *models.Store, code string) error {
	params := url.Values{}
	params.Set("client_id", s.config.FacebookClientID)
	params.Set("client_secret", s.config.FacebookClientSecret)
	params.Set("redirect_uri", s.config.OAuthCallbackURL+"/callback")
	params.Set("code", code)

	tokenURL := fmt.Sprintf("%s/%s/oauth/access_token?%s",
		s.facebookBaseURL, s.config.FacebookAPIVersion, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrInvalidCode, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return ErrInvalidCode
	}

	store.FacebookToken = tokenResp.AccessToken

	// A store linked for the first time has no ad account on file yet; pick up
	// the first one the token can see.
	if store.FacebookAdAccountID == "" {
		if id, err := s.firstFacebookAdAccount(ctx, tokenResp.AccessToken); err == nil {
			store.FacebookAdAccountID = id
		}
	}
	return nil
}

func (s *Service) firstFacebookAdAccount(ctx context.Context, token string) (string, error) {
	accountsURL := fmt.Sprintf("%s/%s/me/adaccounts?fields=account_id&limit=1&access_token=%s",
		s.facebookBaseURL, s.config.FacebookAPIVersion, url.QueryEscape(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, accountsURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to list ad accounts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", ErrProviderAPIError
	}

	var accounts struct {
		Data []struct {
			AccountID string `json:"account_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accounts); err != nil {
		return "", fmt.Errorf("failed to decode ad accounts: %w", err)
	}
	if len(accounts.Data) == 0 {
		return "", errors.New("no ad accounts visible to token")
	}
	return accounts.Data[0].AccountID, nil
}

// Google

func (s *Service) googleAuthURL(state string) string {
	params := url.Values{}
	params.Add("client_id", s.config.GoogleClientID)
	params.Add("redirect_uri", s.config.OAuthCallbackURL+"/callback")
	params.Add("response_type", "code")
	params.Add("scope", "https://www.googleapis.com/auth/adwords")
	params.Add("access_type", "offline")
	params.Add("prompt", "consent")
	params.Add("state", state)
	return "https://accounts.google.com/o/oauth2/v2/auth?" + params.Encode()
}

func (s *Service) handleGoogleCallback(ctx context.Context, store *models.Store, code string) error {
	data := url.Values{}
	data.Set("code", code)
	data.Set("client_id", s.config.GoogleClientID)
	data.Set("client_secret", s.config.GoogleClientSecret)
	data.Set("redirect_uri", s.config.OAuthCallbackURL+"/callback")
	data.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.googleTokenURL,
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to exchange code: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrInvalidCode, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token granted", ErrInvalidCode)
	}

	store.GoogleRefreshToken = tokenResp.RefreshToken
	store.GoogleAccessToken = tokenResp.AccessToken
	store.GoogleTokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	return nil
}
