package server

import (
	"sync"

	"gallery/internal/upload"
)

// sessionStore keeps one upload session per operator for the life of the
// process.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*upload.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*upload.Session)}
}

func (s *sessionStore) get(operator string) *upload.Session {
	s.mu.RLock()
	sess, ok := s.sessions[operator]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[operator]; ok {
		return sess
	}
	sess = upload.NewSession(operator)
	s.sessions[operator] = sess
	return sess
}
