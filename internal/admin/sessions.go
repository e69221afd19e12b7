package admin

import (
	"sync"
	"time"

	"github.com/deninthomas/housewarming/internal/token"
)

// SessionTTL is the lifetime of an admin login.
const SessionTTL = 24 * time.Hour

// Sessions is an in-memory registry of minted admin session tokens. Sessions
// are flat bearer values; a restart logs every admin out.
type Sessions struct {
	mu     sync.Mutex
	expiry map[string]time.Time
}

func NewSessions() *Sessions {
	return &Sessions{expiry: make(map[string]time.Time)}
}

// Issue mints a session token valid for SessionTTL from now.
func (s *Sessions) Issue(now time.Time) string {
	tok := token.NewSessionToken()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiry[tok] = now.Add(SessionTTL)
	return tok
}

// Valid reports whether tok is a live session. Expired entries are pruned
// as they are seen.
func (s *Sessions) Valid(tok string, now time.Time) bool {
	if tok == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expiry[tok]
	if !ok {
		return false
	}
	if now.After(exp) {
		delete(s.expiry, tok)
		return false
	}
	return true
}

func (s *Sessions) Revoke(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expiry, tok)
}
