package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/essy16/FL-BOT/internal/handlers"
	"github.com/essy16/FL-BOT/internal/middleware"
	"github.com/essy16/FL-BOT/internal/services"
	"github.com/essy16/FL-BOT/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, orchestrator *services.Orchestrator, twilioService *services.TwilioService) {
	whatsappHandler := handlers.NewWhatsAppHandler(orchestrator, twilioService)
	adminHandler := handlers.NewAdminHandler(store)
	healthHandler := handlers.NewHealthHandler("1.0.0", store)

	app.Get("/health", healthHandler.Check)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// WhatsApp webhook - environment-aware validation
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: skip validation for ngrok
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		log.Println("⚠️  WhatsApp webhook validation DISABLED for development")
	} else {
		// Production: validate webhook signature
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	if os.Getenv("ENVIRONMENT") == "development" {
		app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)
	}

	// ========== ADMIN ROUTES ==========
	admin := app.Group("/admin")
	admin.Get("/sessions", adminHandler.Sessions)
}
