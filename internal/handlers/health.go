package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/essy16/FL-BOT/internal/storage"
)

// HealthHandler reports service liveness plus a cheap read through the
// session store, so an unreachable database shows up here before it
// shows up in conversations.
type HealthHandler struct {
	version string
	store   storage.Store
}

func NewHealthHandler(version string, store storage.Store) *HealthHandler {
	return &HealthHandler{version: version, store: store}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	sessions, err := h.store.Sessions()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "DEGRADED",
			"service": "FL-BOT",
			"version": h.version,
			"storage": "unavailable",
		})
	}
	return c.JSON(fiber.Map{
		"status":   "OK",
		"service":  "FL-BOT",
		"version":  h.version,
		"sessions": len(sessions),
	})
}
