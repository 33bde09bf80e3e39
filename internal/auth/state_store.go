package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"authcore/internal/cache"
)

const (
	oauthStateKeyPrefix = "oauth_state:"
	// StateTTL bounds how long a user may spend on the provider consent screen.
	StateTTL = 10 * time.Minute
)

// StateData is what the sign-in redirect remembers until the provider calls back.
type StateData struct {
	Provider string `json:"provider"`
	ReturnTo string `json:"return_to,omitempty"`
}

// StateStoreInterface defines the interface for OAuth state storage operations.
type StateStoreInterface interface {
	SaveState(ctx context.Context, state string, data StateData, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) (*StateData, error)
}

// StateStore keeps OAuth state values in Redis so each one is accepted once.
type StateStore struct {
	cache *cache.Client
}

// Ensure StateStore implements StateStoreInterface
var _ StateStoreInterface = (*StateStore)(nil)

// NewStateStore creates a new state store.
func NewStateStore(cache *cache.Client) *StateStore {
	return &StateStore{cache: cache}
}

// SaveState stores state data in Redis with TTL.
func (s *StateStore) SaveState(ctx context.Context, state string, data StateData, ttl time.Duration) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal state data: %w", err)
	}
	return s.cache.Set(ctx, oauthStateKeyPrefix+state, payload, ttl)
}

// ConsumeState returns and removes the state data.
// It returns nil without error when the state is unknown or Redis is unavailable.
func (s *StateStore) ConsumeState(ctx context.Context, state string) (*StateData, error) {
	data, err := s.cache.Take(ctx, oauthStateKeyPrefix+state)
	if err != nil || data == nil {
		return nil, nil
	}

	var stateData StateData
	if err := json.Unmarshal(data, &stateData); err != nil {
		return nil, fmt.Errorf("unmarshal state data: %w", err)
	}
	return &stateData, nil
}
