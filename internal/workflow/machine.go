package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/essy16/FL-BOT/internal/lending"
	"github.com/essy16/FL-BOT/internal/models"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// Machine validates events against the current workflow step and decides
// the next step plus the external call required to get there. It mutates
// only the session's draft estimate (after validation succeeds); the step
// itself is committed by the orchestrator once the effect completes.
type Machine struct {
	cfg Config
}

// NewMachine creates a state machine with the given workflow config.
func NewMachine(cfg Config) *Machine {
	if len(cfg.LTVOptions) == 0 {
		cfg = DefaultConfig()
	}
	return &Machine{cfg: cfg}
}

// Config returns the workflow configuration the machine was built with.
func (m *Machine) Config() Config {
	return m.cfg
}

// Advance validates ev against sess.Step. On success it applies any
// draft-field update and returns the pending transition; on failure the
// session is untouched and the error is a typed *lending.Error
// (validation or state), so the caller can re-prompt without moving.
func (m *Machine) Advance(sess *models.Session, ev Event) (Plan, error) {
	// Reset short-circuits everything: valid from any step.
	if ev.Kind == EventReset {
		return Plan{Next: models.StepIdle, Reset: true}, nil
	}

	// Listing loans is a side query; the step never moves.
	if ev.Kind == EventListLoans {
		if sess.AuthToken == "" {
			return Plan{}, &lending.Error{Kind: lending.KindAuth, Message: "Please authenticate first by sending START."}
		}
		return Plan{Next: sess.Step, Effect: EffectListLoans}, nil
	}

	switch sess.Step {
	case models.StepIdle:
		if ev.Kind == EventStart {
			return Plan{Next: models.StepCollateralCurrency, Effect: EffectAuthenticate}, nil
		}
		return Plan{}, lending.NewState("Nothing in progress yet. Send START to begin a loan.")

	case models.StepComplete:
		if ev.Kind == EventStart {
			return Plan{Next: models.StepCollateralCurrency, Effect: EffectAuthenticate, Reset: true}, nil
		}
		return Plan{}, lending.NewState("This loan is complete. Send START to begin a new one.")

	case models.StepCollateralCurrency:
		code, err := m.code(ev, "collateral_currency", "a collateral currency code like BTC")
		if err != nil {
			return Plan{}, err
		}
		m.draft(sess).FromCode = code
		return Plan{Next: models.StepCollateralNetwork}, nil

	case models.StepCollateralNetwork:
		code, err := m.code(ev, "collateral_network", "a collateral network code like BTC or ERC20")
		if err != nil {
			return Plan{}, err
		}
		m.draft(sess).FromNetwork = code
		return Plan{Next: models.StepCollateralAmount}, nil

	case models.StepCollateralAmount:
		amount, err := m.amount(ev)
		if err != nil {
			return Plan{}, err
		}
		m.draft(sess).Amount = amount
		return Plan{Next: models.StepLoanCurrency}, nil

	case models.StepLoanCurrency:
		code, err := m.code(ev, "loan_currency", "a loan currency code like USDT")
		if err != nil {
			return Plan{}, err
		}
		m.draft(sess).ToCode = code
		return Plan{Next: models.StepLoanNetwork}, nil

	case models.StepLoanNetwork:
		code, err := m.loanNetwork(ev)
		if err != nil {
			return Plan{}, err
		}
		m.draft(sess).ToNetwork = code
		return Plan{Next: models.StepLtvSelection}, nil

	case models.StepLtvSelection:
		ltv, err := m.ltv(ev)
		if err != nil {
			return Plan{}, err
		}
		draft := m.draft(sess)
		draft.LTVPercent = ltv
		draft.Exchange = m.cfg.Exchange
		return Plan{Next: models.StepEstimateReady, Effect: EffectEstimate}, nil

	case models.StepEstimateReady:
		if !isAffirmative(ev) {
			return Plan{}, lending.NewValidation("choice",
				"Reply CREATE to open the loan with this estimate, or RESET to start over.")
		}
		if sess.LatestEstimate == nil {
			return Plan{}, lending.NewState("There is no committed estimate yet. Send RESET and try again.")
		}
		return Plan{Next: models.StepWalletPending, Effect: EffectCreateLoan}, nil

	case models.StepWalletPending:
		addr, err := m.address(ev, "receive_address", "the wallet address the borrowed funds should be sent to")
		if err != nil {
			return Plan{}, err
		}
		if sess.CurrentLoanID == "" {
			return Plan{}, lending.NewState("There is no loan to confirm. Send RESET and try again.")
		}
		return Plan{Next: models.StepConfirmed, Effect: EffectConfirmLoan, Argument: addr}, nil

	case models.StepConfirmed:
		addr, err := m.address(ev, "return_address", "the address your collateral should be returned to")
		if err != nil {
			return Plan{}, err
		}
		if sess.CurrentLoanID == "" {
			return Plan{}, lending.NewState("There is no loan to pledge collateral for. Send RESET and try again.")
		}
		return Plan{Next: models.StepPledgePending, Effect: EffectPledge, Argument: addr}, nil

	case models.StepPledgePending:
		if !isAcknowledgement(ev) {
			return Plan{}, lending.NewValidation("ack",
				"Send your collateral to the deposit address, then reply DONE.")
		}
		return Plan{Next: models.StepComplete}, nil
	}

	return Plan{}, lending.NewState("I did not expect that input here. Send RESET to start over.")
}

// draft returns the accumulating estimate, creating it on first use.
func (m *Machine) draft(sess *models.Session) *models.EstimateParams {
	if sess.DraftEstimate == nil {
		sess.DraftEstimate = &models.EstimateParams{Exchange: m.cfg.Exchange}
	}
	return sess.DraftEstimate
}

func (m *Machine) code(ev Event, reason, expected string) (string, error) {
	if ev.Kind != EventText && ev.Kind != EventSelect {
		return "", lending.NewState(fmt.Sprintf("I was expecting %s.", expected))
	}
	code := strings.ToUpper(strings.TrimSpace(ev.Payload))
	if !codePattern.MatchString(code) {
		return "", lending.NewValidation(reason, fmt.Sprintf("That doesn't look right. Please send %s.", expected))
	}
	return code, nil
}

func (m *Machine) amount(ev Event) (string, error) {
	if ev.Kind != EventText && ev.Kind != EventSelect {
		return "", lending.NewState("I was expecting a collateral amount, like 0.1.")
	}
	raw := strings.TrimSpace(ev.Payload)
	d, err := decimal.NewFromString(raw)
	if err != nil || d.Sign() <= 0 {
		return "", lending.NewValidation("amount", "Please send a positive amount, like 0.1.")
	}
	// Keep the user's decimal string as-is; it is never converted to a
	// float on its way to the API.
	return raw, nil
}

func (m *Machine) loanNetwork(ev Event) (string, error) {
	code, err := m.code(ev, "loan_network", "a loan network code")
	if err != nil {
		return "", err
	}
	for _, n := range m.cfg.LoanNetworks {
		if n == code {
			return code, nil
		}
	}
	return "", lending.NewValidation("loan_network",
		fmt.Sprintf("Network %s is not available for the loan. Choose one of: %s.", code, strings.Join(m.cfg.LoanNetworks, ", ")))
}

func (m *Machine) ltv(ev Event) (int, error) {
	if ev.Kind != EventText && ev.Kind != EventSelect {
		return 0, lending.NewState("I was expecting an LTV percentage.")
	}
	raw := strings.TrimSpace(ev.Payload)
	raw = strings.TrimPrefix(strings.ToLower(raw), "ltv_")
	raw = strings.TrimSuffix(raw, "%")
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, lending.NewValidation("ltv", fmt.Sprintf("Please pick an LTV from: %s.", m.ltvChoices()))
	}
	for _, opt := range m.cfg.LTVOptions {
		if opt == v {
			return v, nil
		}
	}
	return 0, lending.NewValidation("ltv", fmt.Sprintf("LTV %d%% is not offered. Please pick one of: %s.", v, m.ltvChoices()))
}

func (m *Machine) ltvChoices() string {
	parts := make([]string, len(m.cfg.LTVOptions))
	for i, opt := range m.cfg.LTVOptions {
		parts[i] = fmt.Sprintf("%d%%", opt)
	}
	return strings.Join(parts, ", ")
}

func (m *Machine) address(ev Event, reason, expected string) (string, error) {
	if ev.Kind != EventText && ev.Kind != EventSelect {
		return "", lending.NewState(fmt.Sprintf("I was expecting %s.", expected))
	}
	addr := strings.TrimSpace(ev.Payload)
	if len(addr) < 10 || len(addr) > 128 || strings.ContainsAny(addr, " \t\n") {
		return "", lending.NewValidation(reason, fmt.Sprintf("That address looks invalid. Please send %s.", expected))
	}
	return addr, nil
}

func isAffirmative(ev Event) bool {
	if ev.Kind != EventText && ev.Kind != EventSelect {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(ev.Payload)) {
	case "create", "create_loan", "yes", "confirm", "ok":
		return true
	}
	return false
}

func isAcknowledgement(ev Event) bool {
	if ev.Kind != EventText && ev.Kind != EventSelect {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(ev.Payload)) {
	case "done", "sent", "pledged":
		return true
	}
	return false
}
