package storage

import (
	"context"
	"sync"
	"time"
)

type memorySlot struct {
	value     string
	expiresAt time.Time
}

// MemoryStore keeps pending slots in process memory. Slots are lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]map[string]memorySlot
	ttl   time.Duration
	now   func() time.Time
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithTTL expires each slot ttl after its last Put, matching RedisStore.
// Zero keeps slots until removed.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{slots: make(map[string]map[string]memorySlot), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores value in clientID's slot
func (s *MemoryStore) Put(ctx context.Context, clientID, slot, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	client, ok := s.slots[clientID]
	if !ok {
		client = make(map[string]memorySlot)
		s.slots[clientID] = client
	}
	entry := memorySlot{value: value}
	if s.ttl > 0 {
		entry.expiresAt = now.Add(s.ttl)
	}
	client[slot] = entry
	return nil
}

// Get returns the slot value, "" when unset or expired
func (s *MemoryStore) Get(ctx context.Context, clientID, slot string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.slots[clientID][slot]
	if !ok || entry.expired(s.now()) {
		return "", nil
	}
	return entry.value, nil
}

// Remove clears the given slots
func (s *MemoryStore) Remove(ctx context.Context, clientID string, slots ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.slots[clientID]
	if !ok {
		return nil
	}
	for _, slot := range slots {
		delete(client, slot)
	}
	if len(client) == 0 {
		delete(s.slots, clientID)
	}
	return nil
}

// Len returns the number of clients holding at least one live slot
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(s.now())
	return len(s.slots)
}

// sweep drops expired slots. Caller holds mu.
func (s *MemoryStore) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for clientID, client := range s.slots {
		for slot, entry := range client {
			if entry.expired(now) {
				delete(client, slot)
			}
		}
		if len(client) == 0 {
			delete(s.slots, clientID)
		}
	}
}

func (e memorySlot) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
