package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/essy16/FL-BOT/internal/models"
)

// DatabaseStore persists sessions to Postgres via GORM so a restart does
// not drop in-flight conversations. Per-user serialization still happens
// through in-process locks; the database is a durability layer, not the
// concurrency mechanism.
type DatabaseStore struct {
	db    *gorm.DB
	locks *userLocks
}

// NewDatabaseStore creates a database-backed session store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{
		db:    db,
		locks: newUserLocks(),
	}
}

func (d *DatabaseStore) Get(phone string) (*models.Session, error) {
	var record models.SessionRecord
	err := d.db.Where("phone = ?", phone).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return record.ToSession(), nil
}

func (d *DatabaseStore) WithSession(phone string, fn func(*models.Session) error) error {
	lock := d.locks.lockFor(phone)
	lock.Lock()
	defer lock.Unlock()

	var record models.SessionRecord
	err := d.db.Where("phone = ?", phone).First(&record).Error

	var session *models.Session
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		now := time.Now()
		session = &models.Session{
			Phone:     phone,
			Step:      models.StepIdle,
			CreatedAt: now,
			UpdatedAt: now,
		}
	case err != nil:
		return err
	default:
		session = record.ToSession()
	}

	if err := fn(session); err != nil {
		return err
	}
	session.UpdatedAt = time.Now()

	record.FromSession(session)
	return d.db.Save(&record).Error
}

func (d *DatabaseStore) Reset(phone string) error {
	return d.WithSession(phone, func(s *models.Session) error {
		s.Reset()
		return nil
	})
}

func (d *DatabaseStore) Sessions() ([]*models.Session, error) {
	var records []models.SessionRecord
	if err := d.db.Find(&records).Error; err != nil {
		return nil, err
	}
	sessions := make([]*models.Session, 0, len(records))
	for i := range records {
		sessions = append(sessions, records[i].ToSession())
	}
	return sessions, nil
}
