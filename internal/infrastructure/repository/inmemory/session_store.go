// Package inmemory holds volatile store implementations used by the CLI, the
// MCP server, and tests, where a database would be overkill.
package inmemory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/avolkov/lead-intake-assistant/internal/core/domain"
)

type SessionStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewSessionStore() *SessionStore {
	return &SessionStore{states: map[string][]byte{}}
}

func (s *SessionStore) Load(_ context.Context, sessionID string) (*domain.ConversationState, error) {
	s.mu.RLock()
	raw, ok := s.states[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.WrapError(domain.ErrSessionNotFound, "load session", fmt.Errorf("%s", sessionID))
	}

	var state domain.ConversationState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func (s *SessionStore) Save(_ context.Context, state *domain.ConversationState) error {
	// Serialized copies keep callers from sharing mutable state.
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	s.mu.Lock()
	s.states[state.SessionID] = raw
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[sessionID]; !ok {
		return domain.WrapError(domain.ErrSessionNotFound, "delete session", fmt.Errorf("%s", sessionID))
	}
	delete(s.states, sessionID)
	return nil
}
