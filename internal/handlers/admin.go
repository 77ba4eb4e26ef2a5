package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/essy16/FL-BOT/internal/storage"
)

// AdminHandler exposes read-only monitoring endpoints.
type AdminHandler struct {
	store storage.Store
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store storage.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// Sessions returns session counts grouped by workflow step.
func (h *AdminHandler) Sessions(c *fiber.Ctx) error {
	sessions, err := h.store.Sessions()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list sessions",
		})
	}

	byStep := make(map[string]int)
	authenticated := 0
	withLoan := 0
	for _, s := range sessions {
		byStep[s.Step.String()]++
		if s.AuthToken != "" {
			authenticated++
		}
		if s.CurrentLoanID != "" {
			withLoan++
		}
	}

	return c.JSON(fiber.Map{
		"total":         len(sessions),
		"authenticated": authenticated,
		"with_loan":     withLoan,
		"by_step":       byStep,
	})
}
