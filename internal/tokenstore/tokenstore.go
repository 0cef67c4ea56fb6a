// Package tokenstore keeps the caller's bearer token in a single named slot.
//
// Get returns nil when the slot is empty, which the intake controller treats
// as "not signed in". Writers are serialized.
package tokenstore

import (
	"context"
	"strings"
	"sync"
)

// Slot is the name under which the bearer token is stored.
const Slot = "medinauts_token"

// MemoryStore holds the token in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token *string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

// Set replaces the stored token. A blank token clears the slot.
func (s *MemoryStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(token) == "" {
		s.token = nil
		return nil
	}
	s.token = &token
	return nil
}

func (s *MemoryStore) Get(_ context.Context) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil, nil
	}
	token := *s.token
	return &token, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}
