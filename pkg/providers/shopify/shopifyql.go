package shopify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/storepulse/backend/pkg/models"
)

// shopifyqlPayload carries the tabular result of a shopifyqlQuery call.
// Row cells are positionally typed, so they arrive as raw JSON and are
// converted at this boundary.
type shopifyqlPayload struct {
	ShopifyqlQuery struct {
		TableData struct {
			Columns []struct {
				Name string `json:"name"`
			} `json:"columns"`
			RowData [][]json.RawMessage `json:"rowData"`
		} `json:"tableData"`
		ParseErrors []struct {
			Message string `json:"message"`
		} `json:"parseErrors"`
	} `json:"shopifyqlQuery"`
}

func (c *Client) shopifyql(ctx context.Context, store *models.Store, query string) ([][]json.RawMessage, error) {
	wrapped := fmt.Sprintf(`{
  shopifyqlQuery(query: %q) {
    ... on TableResponse {
      tableData {
        columns { name }
        rowData
      }
    }
    parseErrors { message }
  }
}`, query)

	var payload shopifyqlPayload
	if err := c.graphql(ctx, store, wrapped, &payload); err != nil {
		return nil, err
	}
	if len(payload.ShopifyqlQuery.ParseErrors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrAPIError, payload.ShopifyqlQuery.ParseErrors[0].Message)
	}
	return payload.ShopifyqlQuery.TableData.RowData, nil
}

// FetchTraffic returns sessions grouped by landing page type and path over a
// civil-date window.
func (c *Client) FetchTraffic(ctx context.Context, store *models.Store, window models.Window) ([]models.TrafficStat, error) {
	query := fmt.Sprintf(
		"FROM sessions SHOW sessions BY landing_page_type, landing_page_path SINCE %s UNTIL %s ORDER BY sessions DESC",
		window.From, window.To,
	)

	rows, err := c.shopifyql(ctx, store, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch traffic for store %d: %w", store.ID, err)
	}

	var stats []models.TrafficStat
	for _, row := range rows {
		if len(row) < 3 {
			continue
		}
		stats = append(stats, models.TrafficStat{
			PageType: cellString(row[0]),
			PagePath: cellString(row[1]),
			Sessions: cellInt(row[2]),
		})
	}
	return stats, nil
}

// FetchGeography returns order counts and value grouped by country and region
// over a civil-date window.
func (c *Client) FetchGeography(ctx context.Context, store *models.Store, window models.Window) ([]models.GeoStat, error) {
	query := fmt.Sprintf(
		"FROM sales SHOW orders, total_sales BY billing_country, billing_region SINCE %s UNTIL %s ORDER BY total_sales DESC",
		window.From, window.To,
	)

	rows, err := c.shopifyql(ctx, store, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch geography for store %d: %w", store.ID, err)
	}

	var stats []models.GeoStat
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		stats = append(stats, models.GeoStat{
			Country:    cellString(row[0]),
			Region:     cellString(row[1]),
			OrderCount: cellInt(row[2]),
			OrderValue: parseAmount(cellNumber(row[3])),
		})
	}
	return stats, nil
}

// cellString decodes a string cell, defaulting to "" on mismatch.
func cellString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// cellInt decodes a numeric cell, defaulting to zero on mismatch.
func cellInt(raw json.RawMessage) int {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return int(f)
}

// cellNumber decodes a numeric cell as its string form for decimal parsing.
func cellNumber(raw json.RawMessage) string {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}
