package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/storepulse/backend/pkg/cache"
	"github.com/storepulse/backend/pkg/models"
)

// ErrInvalidState is returned when a callback carries an unknown, expired, or
// already-consumed state token.
var ErrInvalidState = errors.New("invalid or expired OAuth state")

// stateTTL bounds how long a pending link attempt stays valid.
const stateTTL = 10 * time.Minute

// statePayload ties a state token to the store and provider that initiated
// the link.
type statePayload struct {
	StoreID  int             `json:"store_id"`
	Provider models.Provider `json:"provider"`
}

// StateStore issues and consumes single-use CSRF state tokens for the OAuth
// linking flow. Tokens live in Redis with a TTL, so expiry needs no sweeper
// and restarts do not orphan pending states.
type StateStore struct {
	cache *cache.Client
}

// NewStateStore creates a state store backed by Redis
func NewStateStore(c *cache.Client) *StateStore {
	return &StateStore{cache: c}
}

// Issue creates a new state token for a pending link attempt.
func (s *StateStore) Issue(ctx context.Context, storeID int, provider models.Provider) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := hex.EncodeToString(buf)

	payload, err := json.Marshal(statePayload{StoreID: storeID, Provider: provider})
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, stateKey(state), payload, stateTTL); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}
	return state, nil
}

// Consume validates a state token and removes it so it cannot be replayed.
func (s *StateStore) Consume(ctx context.Context, state string) (int, models.Provider, error) {
	raw, err := s.cache.GetDel(ctx, stateKey(state))
	if errors.Is(err, redis.Nil) {
		return 0, "", ErrInvalidState
	}
	if err != nil {
		return 0, "", fmt.Errorf("failed to consume state: %w", err)
	}

	var payload statePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return 0, "", ErrInvalidState
	}
	return payload.StoreID, payload.Provider, nil
}

func stateKey(state string) string {
	return "oauth:state:" + state
}
