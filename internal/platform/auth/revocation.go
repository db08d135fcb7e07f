package auth

import (
	"sync"
	"time"
)

// revocationSweepInterval controls how often expired entries are purged.
const revocationSweepInterval = 5 * time.Minute

// tokenEntry tracks one JWT the server has seen or revoked, keyed by JTI.
type tokenEntry struct {
	ExpiresAt time.Time
	StaffID   string
	Revoked   bool
}

// RevocationInfo is the JSON shape of one revocation entry.
type RevocationInfo struct {
	JTI       string    `json:"jti"`
	StaffID   string    `json:"staff_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenRevocationStore is an in-memory deny list of JWT IDs, so a locked-out
// staff member loses access before their tokens naturally expire. The auth
// middleware also reports every token it validates via Observe, which is what
// lets RevokeAllForStaff catch sessions minted before the lockout. Safe for
// concurrent use.
type TokenRevocationStore struct {
	mu      sync.RWMutex
	tokens  map[string]*tokenEntry
	byStaff map[string][]string

	now  func() time.Time
	done chan struct{}
}

// NewTokenRevocationStore starts a store with a background sweeper that drops
// entries once the underlying tokens expire on their own.
func NewTokenRevocationStore() *TokenRevocationStore {
	s := &TokenRevocationStore{
		tokens:  make(map[string]*tokenEntry),
		byStaff: make(map[string][]string),
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Observe records a validated token without revoking it, making it a
// candidate for a later staff-wide lockout.
func (s *TokenRevocationStore) Observe(jti, staffID string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.tokens[jti]; seen {
		return
	}
	s.tokens[jti] = &tokenEntry{ExpiresAt: expiresAt, StaffID: staffID}
	s.indexStaff(staffID, jti)
}

// Revoke marks a single JTI as revoked until expiresAt, after which the
// sweeper forgets it.
func (s *TokenRevocationStore) Revoke(jti string, expiresAt time.Time) {
	s.RevokeForStaff(jti, "", expiresAt)
}

// RevokeForStaff revokes a JTI and ties it to a staff member so it also
// shows up in staff-wide revocations.
func (s *TokenRevocationStore) RevokeForStaff(jti, staffID string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, seen := s.tokens[jti]
	if !seen {
		e = &tokenEntry{ExpiresAt: expiresAt}
		s.tokens[jti] = e
	}
	e.Revoked = true
	if staffID != "" && e.StaffID == "" {
		e.StaffID = staffID
		s.indexStaff(staffID, jti)
	}
}

// RevokeAllForStaff revokes every token recorded for the staff member, both
// observed and already-revoked ones, and returns how many were newly revoked.
func (s *TokenRevocationStore) RevokeAllForStaff(staffID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for _, jti := range s.byStaff[staffID] {
		if e := s.tokens[jti]; e != nil && !e.Revoked {
			e.Revoked = true
			revoked++
		}
	}
	return revoked
}

// IsRevoked reports whether the JTI is on the deny list.
func (s *TokenRevocationStore) IsRevoked(jti string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.tokens[jti]
	return e != nil && e.Revoked
}

// Count returns how many tokens are currently revoked.
func (s *TokenRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.tokens {
		if e.Revoked {
			n++
		}
	}
	return n
}

// Entries snapshots the current revocations for the admin listing endpoint.
func (s *TokenRevocationStore) Entries() []RevocationInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]RevocationInfo, 0, len(s.tokens))
	for jti, e := range s.tokens {
		if e.Revoked {
			infos = append(infos, RevocationInfo{JTI: jti, StaffID: e.StaffID, ExpiresAt: e.ExpiresAt})
		}
	}
	return infos
}

// Close stops the sweeper. Safe to call more than once.
func (s *TokenRevocationStore) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// indexStaff records jti under staffID. Caller holds the write lock.
func (s *TokenRevocationStore) indexStaff(staffID, jti string) {
	if staffID != "" {
		s.byStaff[staffID] = append(s.byStaff[staffID], jti)
	}
}

func (s *TokenRevocationStore) sweepLoop() {
	ticker := time.NewTicker(revocationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep drops entries for tokens that have passed their natural expiry.
func (s *TokenRevocationStore) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for jti, e := range s.tokens {
		if !now.After(e.ExpiresAt) {
			continue
		}
		delete(s.tokens, jti)
		s.dropStaffIndex(e.StaffID, jti)
	}
}

// dropStaffIndex removes jti from the staff index. Caller holds the write lock.
func (s *TokenRevocationStore) dropStaffIndex(staffID, jti string) {
	if staffID == "" {
		return
	}
	jtis := s.byStaff[staffID]
	for i, id := range jtis {
		if id == jti {
			s.byStaff[staffID] = append(jtis[:i], jtis[i+1:]...)
			break
		}
	}
	if len(s.byStaff[staffID]) == 0 {
		delete(s.byStaff, staffID)
	}
}
