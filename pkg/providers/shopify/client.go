package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/pkg/dates"
	"github.com/storepulse/backend/pkg/logger"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/tokens"
)

// ErrAPIError is returned when the Admin API responds with GraphQL errors
var ErrAPIError = errors.New("shopify API error")

const ordersPageSize = 100

// Client talks to the Shopify Admin GraphQL API for one API version.
// Pagination is cursor-based and strictly sequential: each page's cursor comes
// from the previous response.
type Client struct {
	apiVersion string
	tokens     *tokens.Service
	client     *http.Client
	log        logger.Logger

	// baseURL overrides the per-store admin URL in tests
	baseURL string
}

// NewClient creates a Shopify Admin API client
func NewClient(apiVersion string, tokenSupply *tokens.Service, log logger.Logger) *Client {
	return &Client{
		apiVersion: apiVersion,
		tokens:     tokenSupply,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

func (c *Client) endpoint(store *models.Store) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", store.ShopifyDomain, c.apiVersion)
}

// graphql executes one GraphQL request and decodes the data payload into out.
func (c *Client) graphql(ctx context.Context, store *models.Store, query string, out any) error {
	token, err := c.tokens.AccessToken(ctx, store, models.ProviderShopify)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(store), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("shopify request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode shopify response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("%w: %s", ErrAPIError, envelope.Errors[0].Message)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode shopify data: %w", err)
	}
	return nil
}

type orderNode struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	TotalPriceSet struct {
		ShopMoney struct {
			Amount string `json:"amount"`
		} `json:"shopMoney"`
	} `json:"totalPriceSet"`
	LineItems struct {
		Edges []struct {
			Node lineItemNode `json:"node"`
		} `json:"edges"`
	} `json:"lineItems"`
}

type lineItemNode struct {
	Quantity int `json:"quantity"`
	Product  struct {
		ID             string `json:"id"`
		Title          string `json:"title"`
		OnlineStoreURL string `json:"onlineStoreUrl"`
		FeaturedImage  struct {
			URL string `json:"url"`
		} `json:"featuredImage"`
	} `json:"product"`
}

type ordersPayload struct {
	Orders struct {
		PageInfo struct {
			HasNextPage bool `json:"hasNextPage"`
		} `json:"pageInfo"`
		Edges []struct {
			Cursor string    `json:"cursor"`
			Node   orderNode `json:"node"`
		} `json:"edges"`
	} `json:"orders"`
}

func ordersQuery(from, to time.Time, cursor string) string {
	after := ""
	if cursor != "" {
		after = fmt.Sprintf(", after: %q", cursor)
	}
	filter := fmt.Sprintf("created_at:>='%s' AND created_at:<='%s'",
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))

	return fmt.Sprintf(`{
  orders(first: %d%s, query: %q) {
    pageInfo { hasNextPage }
    edges {
      cursor
      node {
        id
        createdAt
        totalPriceSet { shopMoney { amount } }
        lineItems(first: 50) {
          edges {
            node {
              quantity
              product { id title onlineStoreUrl featuredImage { url } }
            }
          }
        }
      }
    }
  }
}`, ordersPageSize, after, filter)
}

// fetchAllOrders walks the cursor loop and returns every order in the range.
func (c *Client) fetchAllOrders(ctx context.Context, store *models.Store, from, to time.Time) ([]orderNode, error) {
	var orders []orderNode
	cursor := ""

	for {
		var payload ordersPayload
		if err := c.graphql(ctx, store, ordersQuery(from, to, cursor), &payload); err != nil {
			return nil, err
		}

		for _, edge := range payload.Orders.Edges {
			orders = append(orders, edge.Node)
			cursor = edge.Cursor
		}

		if !payload.Orders.PageInfo.HasNextPage || len(payload.Orders.Edges) == 0 {
			break
		}
	}

	return orders, nil
}

// FetchOrders returns per-IST-day order aggregates for the instant range.
func (c *Client) FetchOrders(ctx context.Context, store *models.Store, from, to time.Time) ([]models.OrderStat, error) {
	orders, err := c.fetchAllOrders(ctx, store, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders for store %d: %w", store.ID, err)
	}

	byDate := make(map[string]*models.OrderStat)
	for _, o := range orders {
		date := dates.CivilDate(o.CreatedAt)
		stat, ok := byDate[date]
		if !ok {
			stat = &models.OrderStat{Date: date}
			byDate[date] = stat
		}

		stat.OrderCount++
		stat.OrderValue = stat.OrderValue.Add(parseAmount(o.TotalPriceSet.ShopMoney.Amount))
		for _, li := range o.LineItems.Edges {
			stat.ItemCount += li.Node.Quantity
		}
	}

	stats := make([]models.OrderStat, 0, len(byDate))
	for _, stat := range byDate {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Date < stats[j].Date })
	return stats, nil
}

// FetchProductSales returns cumulative per-product quantities and prorated
// revenue over the range. Shopify's order query does not expose per-line-item
// prices, so each order's total is prorated across its line items by quantity
// share.
func (c *Client) FetchProductSales(ctx context.Context, store *models.Store, from, to time.Time) ([]models.ProductSale, error) {
	orders, err := c.fetchAllOrders(ctx, store, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product sales for store %d: %w", store.ID, err)
	}

	byProduct := make(map[string]*models.ProductSale)
	for _, o := range orders {
		total := parseAmount(o.TotalPriceSet.ShopMoney.Amount)

		totalItems := 0
		for _, li := range o.LineItems.Edges {
			totalItems += li.Node.Quantity
		}
		if totalItems == 0 {
			continue
		}

		for _, li := range o.LineItems.Edges {
			p := li.Node.Product
			if p.ID == "" {
				continue
			}

			sale, ok := byProduct[p.ID]
			if !ok {
				sale = &models.ProductSale{
					ProductID:  p.ID,
					Title:      p.Title,
					ImageURL:   p.FeaturedImage.URL,
					ProductURL: p.OnlineStoreURL,
				}
				byProduct[p.ID] = sale
			}

			sale.QuantitySold += li.Node.Quantity
			share := total.
				Mul(decimal.NewFromInt(int64(li.Node.Quantity))).
				Div(decimal.NewFromInt(int64(totalItems)))
			sale.Revenue = sale.Revenue.Add(share)
		}
	}

	sales := make([]models.ProductSale, 0, len(byProduct))
	for _, sale := range byProduct {
		sales = append(sales, *sale)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].ProductID < sales[j].ProductID })
	return sales, nil
}

// TestConnection checks that the stored credential can reach the shop.
func (c *Client) TestConnection(ctx context.Context, store *models.Store) models.ConnectionStatus {
	var payload struct {
		Shop struct {
			Name string `json:"name"`
		} `json:"shop"`
	}

	err := c.graphql(ctx, store, `{ shop { name } }`, &payload)
	if err != nil {
		return models.ConnectionStatus{Provider: models.ProviderShopify, OK: false, Message: err.Error()}
	}
	return models.ConnectionStatus{
		Provider: models.ProviderShopify,
		OK:       true,
		Message:  fmt.Sprintf("connected to %s", payload.Shop.Name),
	}
}

// parseAmount parses a money string, defaulting to zero on absence or garbage
// so a malformed row never aborts the merge.
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
