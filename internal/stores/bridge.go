// Package stores holds the process-wide ephemeral state backing the
// authentication flows: session bridges, per-principal 2FA workflow state,
// and OAuth relay records. Nothing here survives a restart; every entry is
// time-bounded and either consumed or evicted.
package stores

import (
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/forgeworks/authgate/internal/models"
)

// retention is how long an expired bridge stays around before the janitor
// removes it. Within that window an expired bridge id still reports
// "Token expired" rather than "Invalid token ID".
const retention = time.Hour

// SessionBridge correlates a completed primary-credential check with a
// pending second-factor check. The primary-auth token never leaves the
// bridge until the second factor succeeds.
type SessionBridge struct {
	ID        string
	Token     string
	OTPID     string
	ExpiresAt time.Time
}

// Expired reports whether the bridge validity window has passed.
func (b SessionBridge) Expired() bool {
	return time.Now().After(b.ExpiresAt)
}

// BridgeStore keys in-flight session bridges by their own generated id, so
// concurrent pending logins never clobber each other.
type BridgeStore struct {
	ttl time.Duration
	mu  sync.Mutex
	c   *gocache.Cache
}

// NewBridgeStore creates a bridge store with the given validity window.
func NewBridgeStore(ttl time.Duration) *BridgeStore {
	return &BridgeStore{
		ttl: ttl,
		c:   gocache.New(ttl+retention, 10*time.Minute),
	}
}

// Issue stores the primary-auth token behind a fresh random bridge id and
// returns the id. Only the id goes back to the client.
func (s *BridgeStore) Issue(token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.c.Set(id, SessionBridge{
		ID:        id,
		Token:     token,
		ExpiresAt: time.Now().Add(s.ttl),
	}, gocache.DefaultExpiration)

	return id
}

// Get looks up a bridge without consuming it. An unknown id and an expired
// bridge are distinct failures; expired entries are dropped on sight.
func (s *BridgeStore) Get(id string) (SessionBridge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

// AttachOTP records the identity-store OTP correlation id on a pending
// bridge (email second-factor flow).
func (s *BridgeStore) AttachOTP(id, otpID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bridge, err := s.getLocked(id)
	if err != nil {
		return err
	}

	bridge.OTPID = otpID
	s.c.Set(id, bridge, gocache.DefaultExpiration)
	return nil
}

// Consume removes a bridge and returns it. Called exactly once, on a
// successful second-factor check; after this the id is unusable.
func (s *BridgeStore) Consume(id string) (SessionBridge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bridge, err := s.getLocked(id)
	if err != nil {
		return SessionBridge{}, err
	}

	s.c.Delete(id)
	return bridge, nil
}

func (s *BridgeStore) getLocked(id string) (SessionBridge, error) {
	v, ok := s.c.Get(id)
	if !ok {
		return SessionBridge{}, models.ErrInvalidTokenID
	}

	bridge := v.(SessionBridge)
	if bridge.Expired() {
		s.c.Delete(id)
		return SessionBridge{}, models.ErrTokenExpired
	}

	return bridge, nil
}
