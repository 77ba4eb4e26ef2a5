package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/essy16/FL-BOT/internal/lending"
	"github.com/essy16/FL-BOT/internal/models"
	"github.com/essy16/FL-BOT/internal/workflow"
)

func TestRenderEstimate(t *testing.T) {
	res := OutboundResult{
		Kind:   ResultEstimate,
		Step:   models.StepEstimateReady,
		Params: &models.EstimateParams{ToCode: "USDT"},
		Quote:  &lending.Quote{AmountTo: "1000", InterestYear: "12", InterestMonth: "1", InterestDay: "0.03"},
	}

	text := RenderResult(res, workflow.DefaultConfig())
	assert.Contains(t, text, "1000 USDT")
	assert.Contains(t, text, "12%")
	assert.Contains(t, text, "1%")
	assert.Contains(t, text, "0.03%")
}

func TestRenderValidationError(t *testing.T) {
	res := OutboundResult{
		Kind: ResultError,
		Step: models.StepCollateralAmount,
		Err:  lending.NewValidation("amount", "Please send a positive amount, like 0.1."),
	}

	text := RenderResult(res, workflow.DefaultConfig())
	assert.Contains(t, text, "positive amount")
}

func TestRenderUnsupportedSuggestsPair(t *testing.T) {
	res := OutboundResult{
		Kind: ResultError,
		Err:  &lending.Error{Kind: lending.KindEstimateUnsupported, Message: "This currency/network pair is not supported for estimates."},
	}

	text := RenderResult(res, workflow.DefaultConfig())
	assert.Contains(t, text, "BTC")
	assert.Contains(t, text, "USDT")
}

func TestRenderErrorNeverLeaksRawPayload(t *testing.T) {
	res := OutboundResult{
		Kind: ResultError,
		Err: &lending.Error{
			Kind:    lending.KindAPI,
			Message: "The lending service rejected the estimate request.",
			Raw:     `{"code":"SECRET_INTERNAL","trace":"stack"}`,
		},
	}

	text := RenderResult(res, workflow.DefaultConfig())
	assert.NotContains(t, text, "SECRET_INTERNAL")
	assert.NotContains(t, text, "stack")
}

func TestRenderLoanList(t *testing.T) {
	empty := RenderResult(OutboundResult{Kind: ResultLoanList}, workflow.DefaultConfig())
	assert.Contains(t, empty, "no active loans")

	withLoans := RenderResult(OutboundResult{
		Kind: ResultLoanList,
		Loans: []models.LoanRecord{
			{LoanID: "L-1", ExpectedAmount: "1000", Currency: "USDT", Status: "active"},
			{LoanID: "L-2", ExpectedAmount: "250", Currency: "USDC", Status: "waiting_for_collateral"},
		},
	}, workflow.DefaultConfig())
	assert.Contains(t, withLoans, "L-1")
	assert.Contains(t, withLoans, "1000 USDT")
	assert.Contains(t, withLoans, "waiting_for_collateral")
}

func TestParseMessage(t *testing.T) {
	cases := []struct {
		body   string
		button string
		kind   workflow.EventKind
	}{
		{"START", "", workflow.EventStart},
		{"/start", "", workflow.EventStart},
		{"hi", "", workflow.EventStart},
		{"reset", "", workflow.EventReset},
		{"CANCEL", "", workflow.EventReset},
		{"loans", "", workflow.EventListLoans},
		{"my loans", "", workflow.EventListLoans},
		{"BTC", "", workflow.EventText},
		{"0.1", "", workflow.EventText},
		{"", "ltv_50", workflow.EventSelect},
		{"", "reset", workflow.EventReset},
	}

	for _, tc := range cases {
		ev := ParseMessage(tc.body, tc.button)
		assert.Equal(t, tc.kind, ev.Kind, "body %q button %q", tc.body, tc.button)
	}
}

func TestIsHelpCommand(t *testing.T) {
	assert.True(t, IsHelpCommand("help"))
	assert.True(t, IsHelpCommand("/HELP"))
	assert.True(t, IsHelpCommand("menu"))
	assert.False(t, IsHelpCommand("BTC"))
}
