package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// SessionRecord is the persisted form of a Session for the database store.
// The estimates are stored as JSON columns, mirroring how conversation
// context is serialized elsewhere in the codebase.
type SessionRecord struct {
	gorm.Model
	Phone          string    `json:"phone" gorm:"uniqueIndex"`
	AuthToken      string    `json:"-"`
	Step           string    `json:"step"`
	DraftEstimate  string    `json:"draft_estimate"`
	LatestEstimate string    `json:"latest_estimate"`
	CurrentLoanID  string    `json:"current_loan_id"`
	LastActive     time.Time `json:"last_active"`
}

// ToSession rehydrates the in-memory session from a stored row.
func (r *SessionRecord) ToSession() *Session {
	s := &Session{
		Phone:         r.Phone,
		AuthToken:     r.AuthToken,
		Step:          StepFromName(r.Step),
		CurrentLoanID: r.CurrentLoanID,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.LastActive,
	}
	if r.DraftEstimate != "" {
		var p EstimateParams
		if err := json.Unmarshal([]byte(r.DraftEstimate), &p); err == nil {
			s.DraftEstimate = &p
		}
	}
	if r.LatestEstimate != "" {
		var p EstimateParams
		if err := json.Unmarshal([]byte(r.LatestEstimate), &p); err == nil {
			s.LatestEstimate = &p
		}
	}
	return s
}

// FromSession copies the in-memory session into the row for saving.
func (r *SessionRecord) FromSession(s *Session) {
	r.Phone = s.Phone
	r.AuthToken = s.AuthToken
	r.Step = s.Step.String()
	r.CurrentLoanID = s.CurrentLoanID
	r.LastActive = s.UpdatedAt
	r.DraftEstimate = marshalEstimate(s.DraftEstimate)
	r.LatestEstimate = marshalEstimate(s.LatestEstimate)
}

func marshalEstimate(p *EstimateParams) string {
	if p == nil {
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}
