package googleads

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storepulse/backend/pkg/logger"
	"github.com/storepulse/backend/pkg/models"
	"github.com/storepulse/backend/pkg/storage"
	"github.com/storepulse/backend/pkg/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *models.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	repo := storage.NewMemoryRepository()
	c := NewClient("v16", "dev-token-123", tokens.NewService(repo, "", ""), logger.Default())
	c.baseURL = srv.URL
	c.client = srv.Client()

	store := &models.Store{
		ID:                1,
		GoogleCustomerID:  "123-456-7890",
		GoogleAccessToken: "ga_test",
		GoogleTokenExpiry: time.Now().Add(time.Hour),
	}
	return c, store
}

func TestFetchDailySpend(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v16/customers/1234567890/googleAds:searchStream", r.URL.Path)
		assert.Equal(t, "Bearer ga_test", r.Header.Get("Authorization"))
		assert.Equal(t, "dev-token-123", r.Header.Get("developer-token"))

		var body struct {
			Query string `json:"query"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body.Query, "segments.date BETWEEN '2024-06-01' AND '2024-06-02'")

		fmt.Fprint(w, `[
			{"results": [
				{"segments": {"date": "2024-06-01"}, "metrics": {"costMicros": "1234567"}},
				{"segments": {"date": "2024-06-02"}, "metrics": {"costMicros": "500000"}}
			]},
			{"results": [
				{"segments": {"date": "2024-06-02"}, "metrics": {"costMicros": "250000"}}
			]}
		]`)
	})

	rows, err := c.FetchDailySpend(context.Background(), store, "2024-06-01", "2024-06-02")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "2024-06-01", rows[0].Date)
	assert.True(t, rows[0].Amount.Equal(decimal.RequireFromString("1.234567")), "got %s", rows[0].Amount)

	// Chunks for the same date are summed
	assert.Equal(t, "2024-06-02", rows[1].Date)
	assert.True(t, rows[1].Amount.Equal(decimal.RequireFromString("0.75")), "got %s", rows[1].Amount)
}

func TestFetchDailySpendEmptyStream(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	rows, err := c.FetchDailySpend(context.Background(), store, "2024-06-01", "2024-06-02")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchDailySpendSurfacesAPIErrors(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `[{"error": {"message": "The caller does not have permission"}}]`)
	})

	_, err := c.FetchDailySpend(context.Background(), store, "2024-06-01", "2024-06-02")
	require.ErrorIs(t, err, ErrAPIError)
	assert.Contains(t, err.Error(), "does not have permission")
}

func TestFetchDailySpendMissingToken(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without credentials")
	})

	_, err := c.FetchDailySpend(context.Background(), &models.Store{ID: 2, GoogleCustomerID: "1"}, "2024-06-01", "2024-06-02")
	assert.ErrorIs(t, err, tokens.ErrNoRefreshToken)
}

func TestMicrosToAmount(t *testing.T) {
	assert.True(t, microsToAmount("1500000").Equal(decimal.RequireFromString("1.5")))
	assert.True(t, microsToAmount("").IsZero())
	assert.True(t, microsToAmount("garbage").IsZero())
}

func TestTestConnection(t *testing.T) {
	c, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"results": [{"customer": {"descriptiveName": "Acme Ads"}}]}]`)
	})

	status := c.TestConnection(context.Background(), store)
	assert.True(t, status.OK)
	assert.Contains(t, status.Message, "Acme Ads")
}
