package stores

import (
	"sync"
	"time"

	"github.com/forgeworks/authgate/internal/models"
)

// TwoFactorState is the ephemeral 2FA workflow state for one principal.
// TempCode and the disable grant are capability grants with independent
// expiry windows, not storage of the permanent secret — the permanent secret
// is committed to the identity store only after verification succeeds.
type TwoFactorState struct {
	TempCode          string
	TempCodeExpiresAt time.Time

	CanDisable       bool
	DisableExpiresAt time.Time

	Challenge          string
	ChallengeExpiresAt time.Time
}

func (s *TwoFactorState) empty() bool {
	return s.TempCode == "" && !s.CanDisable && s.Challenge == ""
}

// TwoFAStore keeps per-principal 2FA workflow state. A plain mutex-guarded
// map rather than a TTL cache: one entry carries three independently
// expiring fields, and every mutation is a read-modify-write that must be
// atomic per principal.
type TwoFAStore struct {
	mu     sync.Mutex
	states map[string]*TwoFactorState
}

// NewTwoFAStore creates an empty 2FA state store.
func NewTwoFAStore() *TwoFAStore {
	return &TwoFAStore{states: make(map[string]*TwoFactorState)}
}

// SetTempCode stores a setup-in-progress TOTP secret for a principal.
func (s *TwoFAStore) SetTempCode(principalID, code string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.stateLocked(principalID)
	state.TempCode = code
	state.TempCodeExpiresAt = time.Now().Add(ttl)
}

// TempCode returns the setup-in-progress secret. A missing or expired secret
// is the same failure: the setup has to start over.
func (s *TwoFAStore) TempCode(principalID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[principalID]
	if !ok || state.TempCode == "" {
		return "", models.ErrSetupExpired
	}
	if time.Now().After(state.TempCodeExpiresAt) {
		delete(s.states, principalID)
		return "", models.ErrSetupExpired
	}

	return state.TempCode, nil
}

// SetChallenge stores the envelope challenge for a principal, replacing any
// previous one.
func (s *TwoFAStore) SetChallenge(principalID, challenge string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.stateLocked(principalID)
	state.Challenge = challenge
	state.ChallengeExpiresAt = time.Now().Add(ttl)
}

// Challenge returns the principal's current envelope challenge.
func (s *TwoFAStore) Challenge(principalID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[principalID]
	if !ok || state.Challenge == "" {
		return "", models.ErrChallengeExpired
	}
	if time.Now().After(state.ChallengeExpiresAt) {
		state.Challenge = ""
		s.dropIfEmptyLocked(principalID, state)
		return "", models.ErrChallengeExpired
	}

	return state.Challenge, nil
}

// GrantDisable grants the principal a time-bounded capability to disable 2FA.
// This is the only way the capability is ever set.
func (s *TwoFAStore) GrantDisable(principalID string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.stateLocked(principalID)
	state.CanDisable = true
	state.DisableExpiresAt = time.Now().Add(ttl)
}

// CheckDisable verifies the disable capability is present and in-window.
// An absent grant and an expired grant are distinct failures.
func (s *TwoFAStore) CheckDisable(principalID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[principalID]
	if !ok || !state.CanDisable {
		return models.ErrDisableNotAllowed
	}
	if time.Now().After(state.DisableExpiresAt) {
		delete(s.states, principalID)
		return models.ErrDisableWindowExpired
	}

	return nil
}

// Delete clears all 2FA workflow state for a principal. Called on the owning
// consumption transition (enable, disable) regardless of outcome.
func (s *TwoFAStore) Delete(principalID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, principalID)
}

// Sweep drops entries whose every capability has expired and returns how
// many were removed. Correctness never depends on it — all reads check
// expiry — it only bounds memory in a long-lived process.
func (s *TwoFAStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for id, state := range s.states {
		if state.TempCode != "" && now.After(state.TempCodeExpiresAt) {
			state.TempCode = ""
		}
		if state.CanDisable && now.After(state.DisableExpiresAt) {
			state.CanDisable = false
		}
		if state.Challenge != "" && now.After(state.ChallengeExpiresAt) {
			state.Challenge = ""
		}
		if state.empty() {
			delete(s.states, id)
			removed++
		}
	}

	return removed
}

func (s *TwoFAStore) stateLocked(principalID string) *TwoFactorState {
	state, ok := s.states[principalID]
	if !ok {
		state = &TwoFactorState{}
		s.states[principalID] = state
	}
	return state
}

func (s *TwoFAStore) dropIfEmptyLocked(principalID string, state *TwoFactorState) {
	if state.empty() {
		delete(s.states, principalID)
	}
}
