package handlers

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/essy16/FL-BOT/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	orchestrator  *services.Orchestrator
	twilioService *services.TwilioService
}

// NewWhatsAppHandler creates a new WhatsApp handler
func NewWhatsAppHandler(orchestrator *services.Orchestrator, twilioService *services.TwilioService) *WhatsAppHandler {
	return &WhatsAppHandler{
		orchestrator:  orchestrator,
		twilioService: twilioService,
	}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid    string `form:"MessageSid"`
	AccountSid    string `form:"AccountSid"`
	From          string `form:"From"` // WhatsApp number (whatsapp:+919876543210)
	To            string `form:"To"`   // Your Twilio number
	Body          string `form:"Body"` // Message text
	ButtonPayload string `form:"ButtonPayload"`
	ButtonText    string `form:"ButtonText"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	log.Printf("📱 WhatsApp message from %s: %q (button: %q)", payload.From, payload.Body, payload.ButtonPayload)

	// Status callbacks arrive without a body; nothing to do for those.
	if payload.From == "" || (payload.Body == "" && payload.ButtonPayload == "") {
		return c.SendStatus(fiber.StatusOK)
	}

	phone := strings.TrimPrefix(payload.From, "whatsapp:")
	response := h.respond(phone, payload.Body, payload.ButtonPayload)

	if h.twilioService != nil && response != "" {
		if err := h.twilioService.SendWhatsAppMessage(phone, response); err != nil {
			log.Printf("❌ Failed to send WhatsApp response: %v", err)
		}
	} else if response != "" {
		log.Printf("📤 Response (not sent - Twilio not configured): %s", response)
	}

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload is the JSON body for the development test endpoint.
type TestWebhookPayload struct {
	From          string `json:"from"`
	Message       string `json:"message"`
	ButtonPayload string `json:"button_payload"`
}

// HandleTestWebhook processes test messages without Twilio (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	response := h.respond(payload.From, payload.Message, payload.ButtonPayload)

	return c.JSON(fiber.Map{
		"success":  true,
		"response": response,
	})
}

// respond runs one conversational turn and renders the reply.
func (h *WhatsAppHandler) respond(phone, body, buttonPayload string) string {
	if services.IsHelpCommand(body) {
		return services.HelpMessage()
	}

	event := services.ParseMessage(body, buttonPayload)
	result := h.orchestrator.Handle(phone, event)
	return services.RenderResult(result, h.orchestrator.Machine().Config())
}
