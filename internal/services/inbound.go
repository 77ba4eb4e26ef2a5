package services

import (
	"strings"

	"github.com/essy16/FL-BOT/internal/workflow"
)

// ParseMessage maps an inbound WhatsApp message (free text plus optional
// button payload) onto a workflow event. Commands are case-insensitive
// and tolerate a leading slash for users used to the Telegram-style
// command form.
func ParseMessage(body, buttonPayload string) workflow.Event {
	if buttonPayload != "" {
		switch strings.ToLower(strings.TrimSpace(buttonPayload)) {
		case "start":
			return workflow.Event{Kind: workflow.EventStart}
		case "reset", "cancel":
			return workflow.Event{Kind: workflow.EventReset}
		case "loans", "my_loans":
			return workflow.Event{Kind: workflow.EventListLoans}
		default:
			return workflow.Event{Kind: workflow.EventSelect, Payload: buttonPayload}
		}
	}

	msg := strings.TrimSpace(body)
	switch strings.ToUpper(strings.TrimPrefix(msg, "/")) {
	case "START", "HI", "HELLO", "BEGIN":
		return workflow.Event{Kind: workflow.EventStart}
	case "RESET", "CANCEL", "STOP":
		return workflow.Event{Kind: workflow.EventReset}
	case "LOANS", "MY LOANS", "MYLOANS":
		return workflow.Event{Kind: workflow.EventListLoans}
	}
	return workflow.Event{Kind: workflow.EventText, Payload: msg}
}

// IsHelpCommand reports whether the message asks for the command menu.
// Help is answered by the transport layer without touching the session.
func IsHelpCommand(body string) bool {
	switch strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(body), "/")) {
	case "HELP", "MENU", "?":
		return true
	}
	return false
}
