package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/storepulse/backend/pkg/models"
)

// batchRequest is one sub-request inside a Graph API batch call.
type batchRequest struct {
	Method      string `json:"method"`
	RelativeURL string `json:"relative_url"`
}

// batchResult is one sub-response; Body is a JSON string to be re-parsed.
type batchResult struct {
	Code int    `json:"code"`
	Body string `json:"body"`
}

// postBatch issues a single POST to the Graph root carrying several
// sub-requests, saving a round trip per entity collection.
func (c *Client) postBatch(ctx context.Context, token string, requests []batchRequest) ([]batchResult, error) {
	encoded, err := json.Marshal(requests)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("access_token", token)
	form.Set("batch", string(encoded))

	body, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+c.apiVersion+"/",
			strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var results []batchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	return results, nil
}

type entityInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// FetchInsights returns per-entity performance at the requested level
// (campaign, adset, or ad) over a civil-date range. Entity metadata and
// insights are fetched in one batch round trip and joined by entity ID, with
// action types resolved to labels and the objective-specific primary result.
func (c *Client) FetchInsights(ctx context.Context, store *models.Store, from, to, level string) ([]models.InsightRecord, error) {
	token, err := c.tokens.AccessToken(ctx, store, models.ProviderFacebook)
	if err != nil {
		return nil, err
	}

	level = strings.ToLower(level)
	if level == "" {
		level = "campaign"
	}

	timeRange, _ := json.Marshal(map[string]string{"since": from, "until": to})

	entityURL := fmt.Sprintf("act_%s/%s?fields=id,name,status&limit=500",
		store.FacebookAdAccountID, levelPath(level))
	insightsURL := fmt.Sprintf("act_%s/insights?level=%s&fields=%s_id,objective,spend,impressions,clicks,actions&time_range=%s&limit=500",
		store.FacebookAdAccountID, level, level, url.QueryEscape(string(timeRange)))

	results, err := c.postBatch(ctx, token, []batchRequest{
		{Method: http.MethodGet, RelativeURL: entityURL},
		{Method: http.MethodGet, RelativeURL: insightsURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch facebook insights for store %d: %w", store.ID, err)
	}
	if len(results) != 2 {
		return nil, fmt.Errorf("%w: expected 2 batch results, got %d", ErrAPIError, len(results))
	}
	for _, r := range results {
		if r.Code != http.StatusOK {
			return nil, fmt.Errorf("%w: batch sub-request status %d", ErrAPIError, r.Code)
		}
	}

	var entities struct {
		Data []entityInfo `json:"data"`
	}
	if err := json.Unmarshal([]byte(results[0].Body), &entities); err != nil {
		return nil, fmt.Errorf("failed to decode entity metadata: %w", err)
	}

	var insights struct {
		Data []insightsRow `json:"data"`
	}
	if err := json.Unmarshal([]byte(results[1].Body), &insights); err != nil {
		return nil, fmt.Errorf("failed to decode insights rows: %w", err)
	}

	byID := make(map[string]entityInfo, len(entities.Data))
	for _, e := range entities.Data {
		byID[e.ID] = e
	}

	var records []models.InsightRecord
	for _, row := range insights.Data {
		id := row.entityID(level)
		entity := byID[id]

		actions := make([]models.ActionStat, 0, len(row.Actions))
		for _, a := range row.Actions {
			actions = append(actions, models.ActionStat{
				Type:  a.ActionType,
				Label: actionLabel(a.ActionType),
				Value: parseInt(a.Value),
			})
		}

		records = append(records, models.InsightRecord{
			EntityID:      id,
			EntityName:    entity.Name,
			Level:         level,
			Objective:     row.Objective,
			Status:        entity.Status,
			Spend:         parseAmount(row.Spend),
			Impressions:   parseInt(row.Impressions),
			Clicks:        parseInt(row.Clicks),
			Actions:       actions,
			PrimaryResult: primaryResult(row.Objective, actions),
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].EntityID < records[j].EntityID })
	return records, nil
}

// entityID returns the row's ID field for the requested level.
func (r insightsRow) entityID(level string) string {
	switch level {
	case "adset":
		return r.AdsetID
	case "ad":
		return r.AdID
	default:
		return r.CampaignID
	}
}
