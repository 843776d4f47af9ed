package memory

import (
	"sync"

	"telegram-pix-commerce/internal/domain/model"
	"telegram-pix-commerce/internal/domain/ports/repository"
)

var _ repository.SessionStore = (*SessionStore)(nil)

// SessionStore keeps per-chat flow state in process memory. No TTL: sessions
// end on confirmation, cancel, or restart, and a process restart drops them.
// One store exists per tenant; only that tenant's chat goroutines touch it,
// the mutex covers the map itself.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*model.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*model.Session)}
}

func (s *SessionStore) Get(chatID int64) (*model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[chatID]
	return sess, ok
}

func (s *SessionStore) Put(chatID int64, sess *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = sess
}

func (s *SessionStore) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}

// Len reports the number of live sessions (health/debug only).
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
