// Package store holds the pending-request ledger: intake records awaiting an
// admin decision, keyed by Telegram user id.
package store

import "sync"

// Pending is the ledger contract. An entry exists iff a completed intake
// record has no admin decision yet. TakeAndClear must be atomic so a decision
// delivered twice is applied once.
type Pending interface {
	// Put inserts or overwrites the entry for userID.
	Put(userID int64, req Request) error

	// TakeAndClear atomically removes and returns the entry for userID.
	// The second return is false when no entry exists.
	TakeAndClear(userID int64) (Request, bool, error)

	// Count returns the number of entries currently pending.
	Count() (int, error)
}

// MemoryStore is the default in-process ledger.
type MemoryStore struct {
	mu sync.Mutex
	m  map[int64]Request
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[int64]Request)}
}

func (s *MemoryStore) Put(userID int64, req Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = req
	return nil
}

func (s *MemoryStore) TakeAndClear(userID int64) (Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.m[userID]
	if ok {
		delete(s.m, userID)
	}
	return req, ok, nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m), nil
}
