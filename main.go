package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/essy16/FL-BOT/database"
	"github.com/essy16/FL-BOT/internal/jobs"
	"github.com/essy16/FL-BOT/internal/lending"
	"github.com/essy16/FL-BOT/internal/models"
	"github.com/essy16/FL-BOT/internal/routes"
	"github.com/essy16/FL-BOT/internal/services"
	"github.com/essy16/FL-BOT/internal/storage"
	"github.com/essy16/FL-BOT/internal/workflow"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory sessions (lost on restart)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		if err := database.DB.AutoMigrate(&models.SessionRecord{}); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL session storage")
	}

	// Lending API client
	lendingClient, err := lending.NewClientFromEnv()
	if err != nil {
		log.Fatal("Failed to initialize lending API client:", err)
	}
	log.Println("✅ Lending API client initialized")

	// Twilio service (WhatsApp replies)
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio not configured - replies will be logged only: %v", err)
		twilioService = nil
	} else {
		log.Println("✅ Twilio service initialized")
	}

	// Workflow machine and orchestrator
	machine := workflow.NewMachine(workflow.ConfigFromEnv())
	orchestrator := services.NewOrchestrator(store, lendingClient, machine)

	// Loan status watcher
	loanWatch := jobs.NewLoanWatchJob(store, lendingClient, twilioService)
	loanWatch.Start()

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "FL-BOT v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	// Root endpoint with service status
	app.Get("/", func(c *fiber.Ctx) error {
		sessions, _ := store.Sessions()
		return c.JSON(fiber.Map{
			"service":  "FL-BOT",
			"version":  "1.0.0",
			"status":   "healthy",
			"storage":  storageType(),
			"sessions": len(sessions),
			"whatsapp": fiber.Map{
				"configured": twilioService != nil,
			},
		})
	})

	routes.SetupRoutes(app, store, orchestrator, twilioService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		loanWatch.Stop()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 FL-BOT starting on port %s", port)
	log.Printf("📊 Storage: %s", storageType())
	log.Printf("📱 WhatsApp: %s", whatsappStatus(twilioService))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory"
	}
	return "PostgreSQL Database"
}

func whatsappStatus(ts *services.TwilioService) string {
	if ts == nil {
		return "Not configured"
	}
	return "Configured"
}
