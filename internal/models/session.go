package models

import (
	"time"
)

// Step is the user's current position in the loan origination workflow.
// It is the sole source of truth for what input the bot expects next.
type Step int

const (
	StepIdle Step = iota
	StepCollateralCurrency
	StepCollateralNetwork
	StepCollateralAmount
	StepLoanCurrency
	StepLoanNetwork
	StepLtvSelection
	StepEstimateReady
	StepWalletPending
	StepConfirmed
	StepPledgePending
	StepComplete
)

var stepNames = map[Step]string{
	StepIdle:               "idle",
	StepCollateralCurrency: "collateral_currency",
	StepCollateralNetwork:  "collateral_network",
	StepCollateralAmount:   "collateral_amount",
	StepLoanCurrency:       "loan_currency",
	StepLoanNetwork:        "loan_network",
	StepLtvSelection:       "ltv_selection",
	StepEstimateReady:      "estimate_ready",
	StepWalletPending:      "wallet_pending",
	StepConfirmed:          "confirmed",
	StepPledgePending:      "pledge_pending",
	StepComplete:           "complete",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// StepFromName maps a stored step name back to its Step value.
// Unknown names fall back to idle so a corrupted row cannot strand a user.
func StepFromName(name string) Step {
	for step, n := range stepNames {
		if n == name {
			return step
		}
	}
	return StepIdle
}

// Session holds one user's conversation state. Mutated only by the
// orchestrator while that user's store lock is held.
type Session struct {
	Phone          string          `json:"phone"`
	AuthToken      string          `json:"-"`
	Step           Step            `json:"step"`
	DraftEstimate  *EstimateParams `json:"draft_estimate,omitempty"`
	LatestEstimate *EstimateParams `json:"latest_estimate,omitempty"`
	CurrentLoanID  string          `json:"current_loan_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Reset returns the session to the initial step, discarding any draft or
// committed estimate and the current loan. The auth token survives so the
// user does not have to re-authenticate after a reset.
func (s *Session) Reset() {
	s.Step = StepIdle
	s.DraftEstimate = nil
	s.LatestEstimate = nil
	s.CurrentLoanID = ""
	s.UpdatedAt = time.Now()
}

// Clone returns a snapshot safe to read outside the session lock.
func (s *Session) Clone() *Session {
	c := *s
	if s.DraftEstimate != nil {
		d := *s.DraftEstimate
		c.DraftEstimate = &d
	}
	if s.LatestEstimate != nil {
		l := *s.LatestEstimate
		c.LatestEstimate = &l
	}
	return &c
}
