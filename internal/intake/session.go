package intake

import (
	"sync"
	"time"

	"github.com/harmonikprz/malibu-bot/internal/plan"
)

// State is the conversation position of an active session. A user with no
// session is idle; sessions exist only in the collecting states.
type State int

const (
	// StateCollectingHandle waits for the TradingView username. Plan is set.
	StateCollectingHandle State = iota + 1

	// StateCollectingPaymentRef waits for the transaction id. Plan and
	// Handle are set; only paid plans reach this state.
	StateCollectingPaymentRef
)

// Session is one user's in-flight intake conversation.
type Session struct {
	UserID    int64
	ChatID    int64
	Username  string
	FirstName string

	State  State
	Plan   plan.Plan
	Handle string

	UpdatedAt time.Time
}

// Sessions holds the active conversations, keyed by user id. At most one
// session exists per user; entry points overwrite (last-writer-wins). A
// session untouched for the TTL is discarded silently on next access.
type Sessions struct {
	mu  sync.Mutex
	m   map[int64]*Session
	ttl time.Duration
	now func() time.Time
}

// NewSessions creates an empty session table with the given inactivity TTL.
func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		m:   make(map[int64]*Session),
		ttl: ttl,
		now: time.Now,
	}
}

// Put inserts or overwrites the session for s.UserID.
func (t *Sessions) Put(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.UpdatedAt = t.now()
	t.m[s.UserID] = s
}

// Get returns the active session for userID, or nil. Expired sessions are
// removed on access.
func (t *Sessions) Get(userID int64) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.m[userID]
	if !ok {
		return nil
	}
	if t.now().Sub(s.UpdatedAt) > t.ttl {
		delete(t.m, userID)
		return nil
	}
	return s
}

// Touch bumps the session's activity timestamp.
func (t *Sessions) Touch(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.m[userID]; ok {
		s.UpdatedAt = t.now()
	}
}

// Delete removes the session for userID, reporting whether one existed.
func (t *Sessions) Delete(userID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.m[userID]
	delete(t.m, userID)
	return ok
}

// Len purges expired sessions and returns the number of live ones.
func (t *Sessions) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, s := range t.m {
		if now.Sub(s.UpdatedAt) > t.ttl {
			delete(t.m, id)
		}
	}
	return len(t.m)
}
