package transcript

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genzchat/genzchat/internal/model/chat"
)

var (
	ErrSessionRequired = errors.New("session id is required")
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the server-side view of a client conversation.
type Session struct {
	ID          string    `json:"id"`
	Personality string    `json:"personality"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Entry persists individual turns for audit/debug.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      chat.Role `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Service keeps transcripts keyed by the client-generated session id.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]Session
	entries  map[string][]Entry
}

// NewService bootstraps an empty in-memory store.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]Session),
		entries:  make(map[string][]Entry),
	}
}

// Ensure returns the session for id, creating it bound to personality on
// first use. The personality of an existing session never changes.
func (s *Service) Ensure(_ context.Context, id, personality string) (Session, bool, error) {
	if id == "" {
		return Session{}, false, ErrSessionRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		return session, false, nil
	}

	session := Session{
		ID:          id,
		Personality: personality,
		CreatedAt:   time.Now().UTC(),
	}
	s.sessions[id] = session
	s.entries[id] = make([]Entry, 0, 16)
	return session, true, nil
}

// Append adds one entry to the session transcript.
func (s *Service) Append(_ context.Context, sessionID string, role chat.Role, content string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return Entry{}, ErrSessionNotFound
	}

	entry := Entry{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.entries[sessionID] = append(s.entries[sessionID], entry)
	return entry, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// LoadTranscript returns stored entries for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, ok := s.entries[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return copied, nil
}

// Turns counts the user entries of a session.
func (s *Service) Turns(_ context.Context, sessionID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.entries[sessionID] {
		if e.Role == chat.RoleUser {
			n++
		}
	}
	return n
}
