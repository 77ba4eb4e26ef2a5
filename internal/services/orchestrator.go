package services

import (
	"log"

	"github.com/essy16/FL-BOT/internal/lending"
	"github.com/essy16/FL-BOT/internal/models"
	"github.com/essy16/FL-BOT/internal/storage"
	"github.com/essy16/FL-BOT/internal/workflow"
)

// LoanClient is the slice of the lending API the orchestrator drives.
// *lending.Client satisfies it; tests substitute stubs.
type LoanClient interface {
	Authenticate(externalID string) (string, error)
	Estimate(p models.EstimateParams) (*lending.Quote, error)
	CreateLoan(token string, p models.EstimateParams) (string, error)
	ConfirmLoan(token, loanID, receiveAddress string) error
	PledgeCollateral(token, loanID, address string) (string, error)
	ListLoans(token string) ([]models.LoanRecord, error)
}

// ResultKind says what the transport layer should render.
type ResultKind int

const (
	// ResultPrompt asks the user for the next input; Step says which.
	ResultPrompt ResultKind = iota
	// ResultStarted is authentication success, prompting the first input.
	ResultStarted
	// ResultEstimate carries a fresh quote; the estimate is committed.
	ResultEstimate
	// ResultLoanCreated carries the new loan id; a wallet address is due.
	ResultLoanCreated
	// ResultLoanConfirmed means terms were agreed; a collateral-return
	// address is due next.
	ResultLoanConfirmed
	// ResultPledged carries the deposit address the collateral must go to.
	ResultPledged
	// ResultComplete closes the workflow instance.
	ResultComplete
	// ResultReset confirms the session went back to idle.
	ResultReset
	// ResultLoanList carries the user's active loans.
	ResultLoanList
	// ResultError carries a classified failure; Step is unchanged.
	ResultError
)

// OutboundResult is the structured outcome of one inbound event, handed
// to the transport layer for rendering.
type OutboundResult struct {
	Kind           ResultKind
	Step           models.Step
	Params         *models.EstimateParams
	Quote          *lending.Quote
	LoanID         string
	DepositAddress string
	Loans          []models.LoanRecord
	Err            *lending.Error
}

// Orchestrator drives the workflow: it serializes events per user
// through the session store, asks the state machine for a transition,
// performs the external call the transition requires, and commits the
// step only when that call succeeds.
type Orchestrator struct {
	store   storage.Store
	client  LoanClient
	machine *workflow.Machine
}

// NewOrchestrator creates the workflow orchestrator.
func NewOrchestrator(store storage.Store, client LoanClient, machine *workflow.Machine) *Orchestrator {
	return &Orchestrator{
		store:   store,
		client:  client,
		machine: machine,
	}
}

// Machine exposes the state machine config for rendering prompts.
func (o *Orchestrator) Machine() *workflow.Machine {
	return o.machine
}

// Handle processes one inbound event for a user. The per-user store lock
// is held for the whole read-transition-call-commit cycle, so concurrent
// events for one user serialize; a failed external call rolls the
// session back untouched.
func (o *Orchestrator) Handle(phone string, ev workflow.Event) OutboundResult {
	var result OutboundResult
	err := o.store.WithSession(phone, func(sess *models.Session) error {
		res, stepErr := o.step(sess, ev)
		result = res
		return stepErr
	})
	if err != nil && result.Err == nil {
		// Store-level failure (e.g. database down), not a workflow one.
		log.Printf("Session store failure for %s: %v", phone, err)
		result = OutboundResult{
			Kind: ResultError,
			Err:  &lending.Error{Kind: lending.KindAPI, Message: "Something went wrong on our side. Please try again.", Raw: err.Error()},
		}
	}
	return result
}

// step runs inside the per-user lock. Returning a non-nil error makes the
// store discard every mutation made here.
func (o *Orchestrator) step(sess *models.Session, ev workflow.Event) (OutboundResult, error) {
	stepBefore := sess.Step

	plan, err := o.machine.Advance(sess, ev)
	if err != nil {
		le := lending.Classify(err)
		log.Printf("Rejected event for %s at %s: %v", sess.Phone, stepBefore, le)
		return OutboundResult{Kind: ResultError, Step: stepBefore, Err: le}, le
	}

	if plan.Reset {
		sess.Reset()
	}

	switch plan.Effect {
	case workflow.EffectNone:
		sess.Step = plan.Next
		if ev.Kind == workflow.EventReset {
			return OutboundResult{Kind: ResultReset, Step: plan.Next}, nil
		}
		if plan.Next == models.StepComplete {
			return OutboundResult{Kind: ResultComplete, Step: plan.Next, LoanID: sess.CurrentLoanID}, nil
		}
		return OutboundResult{Kind: ResultPrompt, Step: plan.Next}, nil

	case workflow.EffectAuthenticate:
		token, cerr := o.client.Authenticate(sess.Phone)
		if cerr != nil {
			return o.failure(sess.Phone, stepBefore, cerr)
		}
		sess.AuthToken = token
		sess.Step = plan.Next
		return OutboundResult{Kind: ResultStarted, Step: plan.Next}, nil

	case workflow.EffectEstimate:
		if sess.DraftEstimate == nil {
			le := lending.NewState("There is nothing to estimate yet. Send RESET to start over.")
			return OutboundResult{Kind: ResultError, Step: stepBefore, Err: le}, le
		}
		quote, cerr := o.client.Estimate(*sess.DraftEstimate)
		if cerr != nil {
			return o.failure(sess.Phone, stepBefore, cerr)
		}
		// Estimate success is the only path that commits the draft.
		committed := *sess.DraftEstimate
		sess.LatestEstimate = &committed
		sess.DraftEstimate = nil
		sess.Step = plan.Next
		return OutboundResult{Kind: ResultEstimate, Step: plan.Next, Params: &committed, Quote: quote}, nil

	case workflow.EffectCreateLoan:
		if sess.LatestEstimate == nil {
			le := lending.NewState("There is no committed estimate. Send RESET and try again.")
			return OutboundResult{Kind: ResultError, Step: stepBefore, Err: le}, le
		}
		loanID, cerr := o.client.CreateLoan(sess.AuthToken, *sess.LatestEstimate)
		if cerr != nil {
			return o.failure(sess.Phone, stepBefore, cerr)
		}
		sess.CurrentLoanID = loanID
		sess.Step = plan.Next
		return OutboundResult{Kind: ResultLoanCreated, Step: plan.Next, LoanID: loanID, Params: sess.LatestEstimate}, nil

	case workflow.EffectConfirmLoan:
		if cerr := o.client.ConfirmLoan(sess.AuthToken, sess.CurrentLoanID, plan.Argument); cerr != nil {
			return o.failure(sess.Phone, stepBefore, cerr)
		}
		sess.Step = plan.Next
		return OutboundResult{Kind: ResultLoanConfirmed, Step: plan.Next, LoanID: sess.CurrentLoanID}, nil

	case workflow.EffectPledge:
		depositAddress, cerr := o.client.PledgeCollateral(sess.AuthToken, sess.CurrentLoanID, plan.Argument)
		if cerr != nil {
			return o.failure(sess.Phone, stepBefore, cerr)
		}
		sess.Step = plan.Next
		return OutboundResult{Kind: ResultPledged, Step: plan.Next, LoanID: sess.CurrentLoanID, DepositAddress: depositAddress}, nil

	case workflow.EffectListLoans:
		loans, cerr := o.client.ListLoans(sess.AuthToken)
		if cerr != nil {
			return o.failure(sess.Phone, stepBefore, cerr)
		}
		return OutboundResult{Kind: ResultLoanList, Step: sess.Step, Loans: loans}, nil
	}

	le := lending.NewState("I did not expect that input here. Send RESET to start over.")
	return OutboundResult{Kind: ResultError, Step: stepBefore, Err: le}, le
}

// failure classifies an external call error and signals rollback. The
// raw upstream text goes to the log only.
func (o *Orchestrator) failure(phone string, step models.Step, err error) (OutboundResult, error) {
	le := lending.Classify(err)
	log.Printf("Lending call failed for %s at %s: kind=%s reason=%s raw=%s", phone, step, le.Kind, le.Reason, le.Raw)
	return OutboundResult{Kind: ResultError, Step: step, Err: le}, le
}
