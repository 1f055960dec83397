package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound indicates an unknown or already stopped session.
var ErrSessionNotFound = errors.New("session not found")

// Session is one remote attendance-taking run driven over the
// websocket. Frames and marks are tracked per session.
type Session struct {
	ID        string
	Subject   string
	StartedAt time.Time

	mu     sync.Mutex
	frames int
	marked []string
}

// AddFrame counts one received frame and any names it marked.
func (s *Session) AddFrame(marked []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	s.marked = append(s.marked, marked...)
}

// Frames returns how many frames the session has received.
func (s *Session) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Marked returns the names marked during the session, in order.
func (s *Session) Marked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.marked))
	copy(out, s.marked)
	return out
}

// SessionManager tracks active sessions by ID.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionManager creates an empty manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

// Start opens a new session and returns it with a fresh ID.
func (m *SessionManager) Start(subject string) *Session {
	session := &Session{
		ID:        uuid.New().String(),
		Subject:   subject,
		StartedAt: time.Now(),
	}
	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()
	return session
}

// Get returns the active session with the given ID.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return session, nil
}

// Stop removes the session and returns it for final reporting.
func (m *SessionManager) Stop(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	return session, nil
}

// Active returns the number of currently open sessions.
func (m *SessionManager) Active() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
