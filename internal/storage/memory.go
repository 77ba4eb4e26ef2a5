package storage

import (
	"sync"
	"time"

	"github.com/essy16/FL-BOT/internal/models"
)

// MemoryStore holds all sessions in memory. Sessions live for the
// process lifetime; only an explicit reset clears one.
type MemoryStore struct {
	sessions map[string]*models.Session
	mu       sync.RWMutex
	locks    *userLocks
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		locks:    newUserLocks(),
	}
}

func (m *MemoryStore) Get(phone string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[phone]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (m *MemoryStore) WithSession(phone string, fn func(*models.Session) error) error {
	lock := m.locks.lockFor(phone)
	lock.Lock()
	defer lock.Unlock()

	m.mu.RLock()
	session, exists := m.sessions[phone]
	m.mu.RUnlock()

	if !exists {
		now := time.Now()
		session = &models.Session{
			Phone:     phone,
			Step:      models.StepIdle,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	// fn works on a copy; only a successful return publishes it, so a
	// failed transition leaves the stored session exactly as it was.
	working := session.Clone()
	if err := fn(working); err != nil {
		return err
	}
	working.UpdatedAt = time.Now()

	m.mu.Lock()
	m.sessions[phone] = working
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Reset(phone string) error {
	return m.WithSession(phone, func(s *models.Session) error {
		s.Reset()
		return nil
	})
}

func (m *MemoryStore) Sessions() ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s.Clone())
	}
	return sessions, nil
}
