package memory

import (
	"sync"

	"telequiz/internal/app"
)

// SessionStore is the in-memory implementation of app.SessionStore: the
// process-wide table of in-flight sessions keyed by user id.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
	}
}

// Create stores the session unless the user already has one. The existence
// check and the insert happen under one lock, so two concurrent starts for
// the same user cannot both succeed.
func (s *SessionStore) Create(userID string, session *app.Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[userID]; ok {
		return false
	}
	s.sessions[userID] = session
	return true
}

func (s *SessionStore) Get(userID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *SessionStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
