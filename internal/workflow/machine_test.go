package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/essy16/FL-BOT/internal/lending"
	"github.com/essy16/FL-BOT/internal/models"
)

func newTestMachine() *Machine {
	return NewMachine(DefaultConfig())
}

func text(payload string) Event {
	return Event{Kind: EventText, Payload: payload}
}

func kindOf(t *testing.T, err error) lending.ErrorKind {
	t.Helper()
	var le *lending.Error
	require.True(t, errors.As(err, &le), "expected a *lending.Error, got %v", err)
	return le.Kind
}

func TestAdvanceHappyPath(t *testing.T) {
	m := newTestMachine()
	sess := &models.Session{Phone: "+100", Step: models.StepIdle}

	plan, err := m.Advance(sess, Event{Kind: EventStart})
	require.NoError(t, err)
	assert.Equal(t, models.StepCollateralCurrency, plan.Next)
	assert.Equal(t, EffectAuthenticate, plan.Effect)
	sess.Step = plan.Next
	sess.AuthToken = "tok"

	steps := []struct {
		payload string
		next    models.Step
		effect  Effect
	}{
		{"BTC", models.StepCollateralNetwork, EffectNone},
		{"BTC", models.StepCollateralAmount, EffectNone},
		{"0.1", models.StepLoanCurrency, EffectNone},
		{"USDT", models.StepLoanNetwork, EffectNone},
		{"ETH", models.StepLtvSelection, EffectNone},
		{"50", models.StepEstimateReady, EffectEstimate},
	}
	for _, st := range steps {
		plan, err := m.Advance(sess, text(st.payload))
		require.NoError(t, err, "payload %q at %s", st.payload, sess.Step)
		assert.Equal(t, st.next, plan.Next)
		assert.Equal(t, st.effect, plan.Effect)
		sess.Step = plan.Next
	}

	require.NotNil(t, sess.DraftEstimate)
	assert.Equal(t, "BTC", sess.DraftEstimate.FromCode)
	assert.Equal(t, "BTC", sess.DraftEstimate.FromNetwork)
	assert.Equal(t, "0.1", sess.DraftEstimate.Amount)
	assert.Equal(t, "USDT", sess.DraftEstimate.ToCode)
	assert.Equal(t, "ETH", sess.DraftEstimate.ToNetwork)
	assert.Equal(t, 50, sess.DraftEstimate.LTVPercent)
	assert.Equal(t, "direct", sess.DraftEstimate.Exchange)
}

func TestAdvanceLowercaseInputUppercased(t *testing.T) {
	m := newTestMachine()
	sess := &models.Session{Step: models.StepCollateralCurrency}

	plan, err := m.Advance(sess, text("btc"))
	require.NoError(t, err)
	assert.Equal(t, models.StepCollateralNetwork, plan.Next)
	assert.Equal(t, "BTC", sess.DraftEstimate.FromCode)
}

func TestAdvanceBadAmountStays(t *testing.T) {
	m := newTestMachine()

	for _, bad := range []string{"abc", "-1", "0", "", "1,5"} {
		sess := &models.Session{Step: models.StepCollateralAmount, DraftEstimate: &models.EstimateParams{}}
		_, err := m.Advance(sess, text(bad))
		require.Error(t, err, "amount %q", bad)

		var le *lending.Error
		require.True(t, errors.As(err, &le))
		assert.Equal(t, lending.KindValidation, le.Kind)
		assert.Equal(t, "amount", le.Reason)
		assert.Empty(t, sess.DraftEstimate.Amount)
	}
}

func TestAdvanceLtvOutOfSetRejected(t *testing.T) {
	m := newTestMachine()
	sess := &models.Session{Step: models.StepLtvSelection, DraftEstimate: &models.EstimateParams{}}

	_, err := m.Advance(sess, text("45"))
	assert.Equal(t, lending.KindValidation, kindOf(t, err))
	assert.Zero(t, sess.DraftEstimate.LTVPercent)

	// Accepted forms of an in-set ratio.
	for _, ok := range []string{"50", "50%", "ltv_50"} {
		sess := &models.Session{Step: models.StepLtvSelection, DraftEstimate: &models.EstimateParams{}}
		plan, err := m.Advance(sess, text(ok))
		require.NoError(t, err, "payload %q", ok)
		assert.Equal(t, EffectEstimate, plan.Effect)
		assert.Equal(t, 50, sess.DraftEstimate.LTVPercent)
	}
}

func TestAdvanceLoanNetworkRestricted(t *testing.T) {
	m := newTestMachine()
	sess := &models.Session{Step: models.StepLoanNetwork, DraftEstimate: &models.EstimateParams{}}

	_, err := m.Advance(sess, text("DOGE"))
	assert.Equal(t, lending.KindValidation, kindOf(t, err))

	plan, err := m.Advance(sess, text("trx"))
	require.NoError(t, err)
	assert.Equal(t, models.StepLtvSelection, plan.Next)
	assert.Equal(t, "TRX", sess.DraftEstimate.ToNetwork)
}

func TestAdvanceCannotSkipSteps(t *testing.T) {
	m := newTestMachine()

	// Text input before starting is an out-of-sequence event.
	sess := &models.Session{Step: models.StepIdle}
	_, err := m.Advance(sess, text("BTC"))
	assert.Equal(t, lending.KindState, kindOf(t, err))

	// Start mid-flow is equally rejected.
	sess = &models.Session{Step: models.StepCollateralAmount}
	_, err = m.Advance(sess, Event{Kind: EventStart})
	assert.Equal(t, lending.KindState, kindOf(t, err))

	// Confirming at EstimateReady without a committed estimate never
	// reaches the loan-create effect.
	sess = &models.Session{Step: models.StepEstimateReady}
	_, err = m.Advance(sess, text("create"))
	assert.Equal(t, lending.KindState, kindOf(t, err))

	// An address at WalletPending without a loan id is likewise refused.
	sess = &models.Session{Step: models.StepWalletPending}
	_, err = m.Advance(sess, text("0xabcdef123456"))
	assert.Equal(t, lending.KindState, kindOf(t, err))
}

func TestAdvanceResetFromAnyStep(t *testing.T) {
	m := newTestMachine()

	for step := models.StepIdle; step <= models.StepComplete; step++ {
		sess := &models.Session{Step: step}
		plan, err := m.Advance(sess, Event{Kind: EventReset})
		require.NoError(t, err, "reset from %s", step)
		assert.Equal(t, models.StepIdle, plan.Next)
		assert.True(t, plan.Reset)
		assert.Equal(t, EffectNone, plan.Effect)
	}
}

func TestAdvanceListLoansNeedsToken(t *testing.T) {
	m := newTestMachine()

	sess := &models.Session{Step: models.StepLtvSelection}
	_, err := m.Advance(sess, Event{Kind: EventListLoans})
	assert.Equal(t, lending.KindAuth, kindOf(t, err))

	sess.AuthToken = "tok"
	plan, err := m.Advance(sess, Event{Kind: EventListLoans})
	require.NoError(t, err)
	assert.Equal(t, EffectListLoans, plan.Effect)
	assert.Equal(t, models.StepLtvSelection, plan.Next, "listing must not move the step")
}

func TestAdvanceAddressValidation(t *testing.T) {
	m := newTestMachine()
	sess := &models.Session{Step: models.StepWalletPending, CurrentLoanID: "L1"}

	_, err := m.Advance(sess, text("short"))
	assert.Equal(t, lending.KindValidation, kindOf(t, err))

	plan, err := m.Advance(sess, text("0x52908400098527886E0F7030069857D2E4169EE7"))
	require.NoError(t, err)
	assert.Equal(t, EffectConfirmLoan, plan.Effect)
	assert.Equal(t, models.StepConfirmed, plan.Next)
	assert.Equal(t, "0x52908400098527886E0F7030069857D2E4169EE7", plan.Argument)
}

func TestAdvancePledgeAcknowledgement(t *testing.T) {
	m := newTestMachine()
	sess := &models.Session{Step: models.StepPledgePending, CurrentLoanID: "L1"}

	_, err := m.Advance(sess, text("maybe"))
	assert.Equal(t, lending.KindValidation, kindOf(t, err))

	plan, err := m.Advance(sess, text("done"))
	require.NoError(t, err)
	assert.Equal(t, models.StepComplete, plan.Next)
	assert.Equal(t, EffectNone, plan.Effect)
}

func TestAdvanceStartAfterCompleteResets(t *testing.T) {
	m := newTestMachine()
	sess := &models.Session{Step: models.StepComplete, CurrentLoanID: "L1"}

	plan, err := m.Advance(sess, Event{Kind: EventStart})
	require.NoError(t, err)
	assert.True(t, plan.Reset)
	assert.Equal(t, EffectAuthenticate, plan.Effect)
	assert.Equal(t, models.StepCollateralCurrency, plan.Next)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("LOAN_LTV_OPTIONS", "20, 35")
	t.Setenv("LOAN_NETWORKS", "eth,bsc")
	t.Setenv("LOAN_EXCHANGE_MODE", "float")

	cfg := ConfigFromEnv()
	assert.Equal(t, []int{20, 35}, cfg.LTVOptions)
	assert.Equal(t, []string{"ETH", "BSC"}, cfg.LoanNetworks)
	assert.Equal(t, "float", cfg.Exchange)
}

func TestConfigFromEnvGarbageFallsBack(t *testing.T) {
	t.Setenv("LOAN_LTV_OPTIONS", "nope,,200")
	cfg := ConfigFromEnv()
	assert.Equal(t, DefaultConfig().LTVOptions, cfg.LTVOptions)
}
