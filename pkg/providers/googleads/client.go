package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/pkg/logger"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/tokens"
)

// ErrAPIError is returned when the Google Ads API responds with a non-200
// status or an error payload.
var ErrAPIError = errors.New("google ads API error")

// Client talks to the Google Ads API via the searchStream REST endpoint.
type Client struct {
	apiVersion     string
	developerToken string
	tokens         *tokens.Service
	client         *http.Client
	log            logger.Logger

	baseURL string
}

// NewClient creates a Google Ads API client
func NewClient(apiVersion, developerToken string, tokenSupply *tokens.Service, log logger.Logger) *Client {
	return &Client{
		apiVersion:     apiVersion,
		developerToken: developerToken,
		tokens:         tokenSupply,
		client:         &http.Client{Timeout: 30 * time.Second},
		log:            log,
		baseURL:        "https://googleads.googleapis.com",
	}
}

// searchStream posts a GAQL query and returns the decoded result chunks.
// The REST transport returns the stream as a single JSON array.
func (c *Client) searchStream(ctx context.Context, store *models.Store, query string) ([]streamChunk, error) {
	token, err := c.tokens.AccessToken(ctx, store, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/customers/%s/googleAds:searchStream",
		c.baseURL, c.apiVersion, customerID(store.GoogleCustomerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("developer-token", c.developerToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google ads request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read google ads response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrAPIError, apiErr.Error.Message)
		}
		// Stream errors arrive as an array with the error in the first element
		var streamErr []struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &streamErr) == nil && len(streamErr) > 0 && streamErr[0].Error.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrAPIError, streamErr[0].Error.Message)
		}
		return nil, fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var chunks []streamChunk
	if err := json.Unmarshal(body, &chunks); err != nil {
		return nil, fmt.Errorf("failed to decode google ads stream: %w", err)
	}
	return chunks, nil
}

type streamChunk struct {
	Results []struct {
		Customer struct {
			DescriptiveName string `json:"descriptiveName"`
		} `json:"customer"`
		Segments struct {
			Date string `json:"date"`
		} `json:"segments"`
		Metrics struct {
			CostMicros string `json:"costMicros"`
		} `json:"metrics"`
	} `json:"results"`
}

// FetchDailySpend returns one row per civil date with the customer's ad spend
// over the inclusive date range, converted from cost micros to currency units.
func (c *Client) FetchDailySpend(ctx context.Context, store *models.Store, from, to string) ([]models.DailySpend, error) {
	query := fmt.Sprintf(
		"SELECT segments.date, metrics.cost_micros FROM customer WHERE segments.date BETWEEN '%s' AND '%s'",
		from, to)

	chunks, err := c.searchStream(ctx, store, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch google spend for store %d: %w", store.ID, err)
	}

	byDate := make(map[string]decimal.Decimal)
	for _, chunk := range chunks {
		for _, r := range chunk.Results {
			byDate[r.Segments.Date] = byDate[r.Segments.Date].Add(microsToAmount(r.Metrics.CostMicros))
		}
	}

	rows := make([]models.DailySpend, 0, len(byDate))
	for date, amount := range byDate {
		rows = append(rows, models.DailySpend{Date: date, Amount: amount})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

// TestConnection checks the customer account is reachable with a fresh token.
func (c *Client) TestConnection(ctx context.Context, store *models.Store) models.ConnectionStatus {
	chunks, err := c.searchStream(ctx, store, "SELECT customer.descriptive_name FROM customer LIMIT 1")
	if err != nil {
		return models.ConnectionStatus{Provider: models.ProviderGoogle, OK: false, Message: err.Error()}
	}

	name := ""
	for _, chunk := range chunks {
		for _, r := range chunk.Results {
			name = r.Customer.DescriptiveName
		}
	}

	return models.ConnectionStatus{
		Provider: models.ProviderGoogle,
		OK:       true,
		Message:  fmt.Sprintf("connected to customer %s", name),
	}
}

// microsToAmount converts a cost_micros string to currency units with a zero
// default for malformed values.
func microsToAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-6)
}

// customerID strips the dashes customers copy from the Ads UI.
func customerID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}
