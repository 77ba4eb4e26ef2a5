package services

import (
	"fmt"
	"strings"

	"github.com/essy16/FL-BOT/internal/lending"
	"github.com/essy16/FL-BOT/internal/models"
	"github.com/essy16/FL-BOT/internal/workflow"
)

// RenderResult turns an OutboundResult into the WhatsApp reply text.
// All user-visible wording lives here; the orchestrator stays structured.
func RenderResult(res OutboundResult, cfg workflow.Config) string {
	switch res.Kind {
	case ResultStarted:
		return "✅ Successfully authenticated!\n\n" + promptFor(res.Step, cfg)

	case ResultPrompt:
		return promptFor(res.Step, cfg)

	case ResultEstimate:
		loanCurrency := ""
		if res.Params != nil {
			loanCurrency = res.Params.ToCode
		}
		return fmt.Sprintf(
			"🎯 *Loan Estimate*\n"+
				"- Borrow Amount: %s %s\n"+
				"- Interest per Year: %s%%\n"+
				"- Interest per Month: %s%%\n"+
				"- Interest per Day: %s%%\n\n"+
				"Reply CREATE to open the loan, or RESET to start over.",
			res.Quote.AmountTo, loanCurrency,
			res.Quote.InterestYear, res.Quote.InterestMonth, res.Quote.InterestDay)

	case ResultLoanCreated:
		return fmt.Sprintf(
			"🎉 Loan created!\n"+
				"Loan ID: %s\n\n"+
				"Now send the wallet address the borrowed funds should be sent to.",
			res.LoanID)

	case ResultLoanConfirmed:
		return fmt.Sprintf(
			"✅ Loan %s confirmed.\n\n"+
				"Now send the address your collateral should be *returned* to after repayment.",
			res.LoanID)

	case ResultPledged:
		return fmt.Sprintf(
			"🔐 Collateral pledge registered.\n\n"+
				"Send your collateral to this deposit address:\n%s\n\n"+
				"Reply DONE once the transfer is on its way.",
			res.DepositAddress)

	case ResultComplete:
		return fmt.Sprintf(
			"🏁 All set! Loan %s is now waiting for your collateral to arrive.\n"+
				"Use LOANS any time to check its status, or START to open another loan.",
			res.LoanID)

	case ResultReset:
		return "🔄 Session reset. Send START whenever you want to begin a new loan."

	case ResultLoanList:
		return renderLoanList(res.Loans)

	case ResultError:
		return renderError(res, cfg)
	}
	return "Sorry, I didn't understand that. Send HELP to see what I can do."
}

// HelpMessage lists the commands the bot understands.
func HelpMessage() string {
	return "Here's what you can do:\n" +
		"- START — authenticate and begin a loan\n" +
		"- LOANS — view your active loans\n" +
		"- RESET — abandon the current flow\n" +
		"- HELP — show this message\n\n" +
		"During a loan I'll guide you step by step: collateral currency, " +
		"network, amount, loan currency, network and LTV."
}

func promptFor(step models.Step, cfg workflow.Config) string {
	switch step {
	case models.StepIdle:
		return "Send START to begin a loan."
	case models.StepCollateralCurrency:
		return "Which currency will you pledge as collateral?\nExample: BTC"
	case models.StepCollateralNetwork:
		return "Which network is your collateral on?\nExample: BTC"
	case models.StepCollateralAmount:
		return "How much collateral will you pledge?\nExample: 0.1"
	case models.StepLoanCurrency:
		return "Which currency do you want to borrow?\nExample: USDT"
	case models.StepLoanNetwork:
		return fmt.Sprintf("Which network should the loan be paid out on?\nChoose one of: %s", strings.Join(cfg.LoanNetworks, ", "))
	case models.StepLtvSelection:
		return fmt.Sprintf("Pick your loan-to-value ratio: %s", ltvChoices(cfg))
	case models.StepEstimateReady:
		return "Reply CREATE to open the loan with this estimate, or RESET to start over."
	case models.StepWalletPending:
		return "Send the wallet address the borrowed funds should be sent to."
	case models.StepConfirmed:
		return "Send the address your collateral should be returned to."
	case models.StepPledgePending:
		return "Send your collateral to the deposit address, then reply DONE."
	case models.StepComplete:
		return "This loan is complete. Send START to begin a new one."
	}
	return "Send HELP to see what I can do."
}

func renderLoanList(loans []models.LoanRecord) string {
	if len(loans) == 0 {
		return "You have no active loans. Send START to open one."
	}
	var b strings.Builder
	b.WriteString("📋 *Your loans*\n")
	for _, loan := range loans {
		amount := loan.ExpectedAmount
		if loan.Currency != "" {
			amount += " " + loan.Currency
		}
		fmt.Fprintf(&b, "- %s — %s (%s)\n", loan.LoanID, amount, loan.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderError(res OutboundResult, cfg workflow.Config) string {
	if res.Err == nil {
		return "❌ Something went wrong. Please try again."
	}
	switch res.Err.Kind {
	case lending.KindValidation, lending.KindState:
		return "⚠️ " + res.Err.Message
	case lending.KindAuth:
		return "❌ " + res.Err.Message + "\nSend START to try authenticating again, or RESET to clear the session."
	case lending.KindEstimateUnsupported:
		return "❌ " + res.Err.Message + "\nA known-good pair to try: collateral BTC on BTC, loan USDT on " + firstNetwork(cfg) + "."
	case lending.KindNetwork:
		return "📡 " + res.Err.Message
	default:
		return "❌ " + res.Err.Message + "\nYou can retry the same step, or send RESET to start over."
	}
}

func ltvChoices(cfg workflow.Config) string {
	parts := make([]string, len(cfg.LTVOptions))
	for i, opt := range cfg.LTVOptions {
		parts[i] = fmt.Sprintf("%d%%", opt)
	}
	return strings.Join(parts, ", ")
}

func firstNetwork(cfg workflow.Config) string {
	if len(cfg.LoanNetworks) > 0 {
		return cfg.LoanNetworks[0]
	}
	return "ETH"
}
