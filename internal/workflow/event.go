package workflow

import (
	"github.com/essy16/FL-BOT/internal/models"
)

// EventKind is the shape of an inbound conversation event.
type EventKind int

const (
	// EventStart begins (or restarts after completion) the loan workflow.
	EventStart EventKind = iota
	// EventReset unconditionally returns the session to idle.
	EventReset
	// EventListLoans is a read-only side query; it never moves the step.
	EventListLoans
	// EventText is free-text user input for the current step.
	EventText
	// EventSelect is a discrete button/selection payload.
	EventSelect
)

// Event is one inbound user action. Payload carries the text or the
// selection value; it is empty for start/reset/list events.
type Event struct {
	Kind    EventKind
	Payload string
}

// Effect is the external call a transition requires before it may commit.
type Effect int

const (
	EffectNone Effect = iota
	EffectAuthenticate
	EffectEstimate
	EffectCreateLoan
	EffectConfirmLoan
	EffectPledge
	EffectListLoans
)

// Plan is the outcome of validating an event against the current step.
// Next only becomes the session's step once the effect (if any) succeeds;
// Argument carries event data the effect needs (e.g. a wallet address).
type Plan struct {
	Next     models.Step
	Effect   Effect
	Argument string
	// Reset asks the orchestrator to clear estimate/loan state before
	// committing (reset event, or start after completion).
	Reset bool
}
