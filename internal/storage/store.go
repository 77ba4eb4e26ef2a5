package storage

import (
	"errors"
	"sync"

	"github.com/essy16/FL-BOT/internal/models"
)

// ErrSessionNotFound is returned by Get when no session exists for the user.
var ErrSessionNotFound = errors.New("session not found")

// Store defines session storage. All mutation goes through WithSession,
// which serializes access per user: two concurrent events for the same
// phone never interleave inside fn, while different users proceed in
// parallel.
type Store interface {
	// Get returns a snapshot of the user's session, or ErrSessionNotFound.
	Get(phone string) (*models.Session, error)

	// WithSession runs fn with exclusive access to the user's session,
	// creating it at the idle step if missing. Mutations fn makes are
	// persisted when fn returns nil; on error the prior state is kept.
	WithSession(phone string, fn func(*models.Session) error) error

	// Reset returns the user's session to the idle step (no-op if absent).
	Reset(phone string) error

	// Sessions returns snapshots of every known session, for monitoring
	// and the loan status watcher.
	Sessions() ([]*models.Session, error)
}

// userLocks hands out one mutex per user key. Shared by both store
// implementations; the lock itself always lives in process memory.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

func (u *userLocks) lockFor(key string) *sync.Mutex {
	u.mu.Lock()
	defer u.mu.Unlock()
	if l, ok := u.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	u.locks[key] = l
	return l
}
