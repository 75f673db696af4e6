package stores

import (
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/forgeworks/authgate/internal/models"
)

// RelayState is one in-flight OAuth exchange: the PKCE verifier bound to the
// provider it was issued for.
type RelayState struct {
	CodeVerifier string
	Provider     string
	ExpiresAt    time.Time
}

// Expired reports whether the relay window has passed.
func (r RelayState) Expired() bool {
	return time.Now().After(r.ExpiresAt)
}

// RelayStore maps short-lived relay tokens to their PKCE state. The verifier
// itself never leaves the server; clients only ever see the relay token.
type RelayStore struct {
	ttl time.Duration
	mu  sync.Mutex
	c   *gocache.Cache
}

// NewRelayStore creates a relay store with the given validity window.
func NewRelayStore(ttl time.Duration) *RelayStore {
	return &RelayStore{
		ttl: ttl,
		c:   gocache.New(ttl+retention, 10*time.Minute),
	}
}

// Issue stores the verifier/provider pair behind a fresh relay token.
func (s *RelayStore) Issue(codeVerifier, provider string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.New().String()
	s.c.Set(token, RelayState{
		CodeVerifier: codeVerifier,
		Provider:     provider,
		ExpiresAt:    time.Now().Add(s.ttl),
	}, gocache.DefaultExpiration)

	return token
}

// Peek looks up relay state without consuming it. Missing and expired are
// distinct failures; expired entries are dropped on sight.
func (s *RelayStore) Peek(token string) (RelayState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.c.Get(token)
	if !ok {
		return RelayState{}, models.ErrOAuthStateInvalid
	}

	state := v.(RelayState)
	if state.Expired() {
		s.c.Delete(token)
		return RelayState{}, models.ErrOAuthStateExpired
	}

	return state, nil
}

// Delete removes relay state. Called unconditionally once a code exchange is
// attempted, whether or not it succeeds — relay tokens are one-time use.
func (s *RelayStore) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Delete(token)
}
