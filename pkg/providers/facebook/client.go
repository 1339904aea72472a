package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/pkg/logger"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/tokens"
)

var (
	// ErrAPIError is returned when the Graph API responds with an error object
	ErrAPIError = errors.New("facebook API error")
	// ErrRateLimited is returned when retries are exhausted on error code 17
	ErrRateLimited = errors.New("facebook rate limit exceeded")
)

const (
	// rateLimitCode is the Graph API "user request limit reached" error code
	rateLimitCode = 17
	maxRetries    = 3
	retryDelay    = 2 * time.Second
)

// Client talks to the Meta Marketing API (Graph API insights endpoints).
type Client struct {
	apiVersion string
	tokens     *tokens.Service
	client     *http.Client
	log        logger.Logger

	baseURL string
	sleep   func(time.Duration)
}

// NewClient creates a Facebook Marketing API client
func NewClient(apiVersion string, tokenSupply *tokens.Service, log logger.Logger) *Client {
	return &Client{
		apiVersion: apiVersion,
		tokens:     tokenSupply,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
		baseURL:    "https://graph.facebook.com",
		sleep:      time.Sleep,
	}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// do executes one Graph API request, retrying rate-limit responses (code 17)
// up to maxRetries times with a fixed delay before giving up.
func (c *Client) do(ctx context.Context, req func() (*http.Request, error)) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(retryDelay)
		}

		r, err := req()
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(r)
		if err != nil {
			return nil, fmt.Errorf("facebook request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read facebook response: %w", err)
		}

		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Code != 0 {
			if apiErr.Error.Code == rateLimitCode {
				lastErr = fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Error.Message)
				c.log.Warn("facebook rate limited, retrying",
					"attempt", attempt+1, "max_retries", maxRetries)
				continue
			}
			return nil, fmt.Errorf("%w: code %d: %s", ErrAPIError, apiErr.Error.Code, apiErr.Error.Message)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}

		return body, nil
	}

	return nil, lastErr
}

// get executes a GET against an absolute URL (used for paging.next follows).
func (c *Client) get(ctx context.Context, fullURL string) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	})
}

type insightsRow struct {
	DateStart   string `json:"date_start"`
	DateStop    string `json:"date_stop"`
	Spend       string `json:"spend"`
	Impressions string `json:"impressions"`
	Clicks      string `json:"clicks"`
	Objective   string `json:"objective"`
	CampaignID  string `json:"campaign_id"`
	AdsetID     string `json:"adset_id"`
	AdID        string `json:"ad_id"`
	Actions     []struct {
		ActionType string `json:"action_type"`
		Value      string `json:"value"`
	} `json:"actions"`
}

type insightsPage struct {
	Data   []insightsRow `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// FetchDailySpend returns one row per civil date with the ad account's spend,
// bounded by the civil dates of the given instant range.
func (c *Client) FetchDailySpend(ctx context.Context, store *models.Store, from, to string) ([]models.DailySpend, error) {
	token, err := c.tokens.AccessToken(ctx, store, models.ProviderFacebook)
	if err != nil {
		return nil, err
	}

	timeRange, _ := json.Marshal(map[string]string{"since": from, "until": to})

	params := url.Values{}
	params.Set("fields", "spend")
	params.Set("level", "account")
	params.Set("time_range", string(timeRange))
	params.Set("time_increment", "1")
	params.Set("access_token", token)

	next := fmt.Sprintf("%s/%s/act_%s/insights?%s", c.baseURL, c.apiVersion, store.FacebookAdAccountID, params.Encode())

	var rows []models.DailySpend
	for next != "" {
		body, err := c.get(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch facebook spend for store %d: %w", store.ID, err)
		}

		var page insightsPage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("failed to decode facebook insights: %w", err)
		}

		for _, row := range page.Data {
			rows = append(rows, models.DailySpend{
				Date:   row.DateStart,
				Amount: parseAmount(row.Spend),
			})
		}
		next = page.Paging.Next
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

// TestConnection checks the ad account is reachable with the stored token.
func (c *Client) TestConnection(ctx context.Context, store *models.Store) models.ConnectionStatus {
	token, err := c.tokens.AccessToken(ctx, store, models.ProviderFacebook)
	if err != nil {
		return models.ConnectionStatus{Provider: models.ProviderFacebook, OK: false, Message: err.Error()}
	}

	fullURL := fmt.Sprintf("%s/%s/act_%s?fields=name,account_status&access_token=%s",
		c.baseURL, c.apiVersion, store.FacebookAdAccountID, url.QueryEscape(token))

	body, err := c.get(ctx, fullURL)
	if err != nil {
		return models.ConnectionStatus{Provider: models.ProviderFacebook, OK: false, Message: err.Error()}
	}

	var account struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &account); err != nil {
		return models.ConnectionStatus{Provider: models.ProviderFacebook, OK: false, Message: err.Error()}
	}

	return models.ConnectionStatus{
		Provider: models.ProviderFacebook,
		OK:       true,
		Message:  fmt.Sprintf("connected to ad account %s", account.Name),
	}
}

// parseAmount parses a money string with a zero default.
func parseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseInt parses an integer string with a zero default.
func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// levelPath maps an insights level to its entity collection path segment.
func levelPath(level string) string {
	switch strings.ToLower(level) {
	case "adset":
		return "adsets"
	case "ad":
		return "ads"
	default:
		return "campaigns"
	}
}
