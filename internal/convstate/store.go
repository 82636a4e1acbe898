// Package convstate tracks pending conversational state per chat peer.
//
// Entries are process-local and bounded by the number of concurrently
// chatting customers, so there is no background eviction: callers check the
// shared TTL policy before using an entry.
package convstate

import (
	"sync"
	"time"

	"github.com/pedezap/pedezap/internal/domain"
)

// TTL is how long a pending conversation survives without a follow-up.
const TTL = 5 * time.Minute

// Status tags what the bot is waiting for.
type Status string

const (
	AwaitingConfirmation  Status = "awaiting_confirmation"
	AwaitingClarification Status = "awaiting_clarification"
)

// State is the pending conversational state for one (tenant, sender) pair.
type State struct {
	Status         Status
	PendingOrder   *domain.PendingOrder
	LastBotMessage string
	CreatedAt      time.Time
}

// Expired reports whether the entry is past its TTL. This is the single
// definition of "expired" shared by the router and its tests.
func (s State) Expired(now time.Time) bool {
	return now.Sub(s.CreatedAt) > TTL
}

type key struct {
	tenant string
	sender string
}

// Store is an in-memory map of pending conversation states.
type Store struct {
	mu      sync.Mutex
	entries map[key]State
}

// NewStore creates an empty conversation state store.
func NewStore() *Store {
	return &Store{entries: make(map[key]State)}
}

// Get returns the stored state for (tenant, sender). Expiry is the caller's
// concern: a stale entry is still returned so the caller can delete it.
func (s *Store) Get(tenantID, sender string) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.entries[key{tenantID, sender}]
	return st, ok
}

// Set stores the state for (tenant, sender), overwriting any prior entry.
func (s *Store) Set(tenantID, sender string, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key{tenantID, sender}] = st
}

// Delete removes the entry for (tenant, sender). Missing entries are a no-op.
func (s *Store) Delete(tenantID, sender string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key{tenantID, sender})
}

// Len returns the number of live entries, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
