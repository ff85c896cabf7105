package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/denizztt/bincard-routes/internal/api"
	"github.com/denizztt/bincard-routes/internal/cache"
	"github.com/denizztt/bincard-routes/internal/db"
	"github.com/denizztt/bincard-routes/internal/directions"
	"github.com/denizztt/bincard-routes/internal/middleware"
	"github.com/denizztt/bincard-routes/internal/planner"
	"github.com/denizztt/bincard-routes/internal/stations"
	"github.com/denizztt/bincard-routes/internal/store"
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	log.Println("Starting route planning API server...")

	// Initialize database connection
	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✓ Database connection established")

	// Initialize Redis connection
	rdb, err := cache.GetClient()
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer cache.Close()
	log.Println("✓ Redis connection established")

	// Load station catalogue into memory
	catalogue := stations.GetCatalogue()
	if err := catalogue.LoadFromDB(context.Background(), pool); err != nil {
		log.Fatalf("Failed to load station catalogue: %v", err)
	}
	log.Println("✓ Station catalogue loaded into memory")

	// Wire the planning core
	routing := directions.NewClient(directions.LoadConfigFromEnv())
	p := planner.NewPlanner(routing)
	pairs := planner.NewPairSource(routing, cache.NewLegs())
	handlers := api.New(catalogue, p, pairs, store.NewStore(pool))

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Bincard Routes API",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	planLimit, _ := strconv.Atoi(getEnv("PLAN_RATE_LIMIT_PER_MINUTE", "30"))
	planGuard := middleware.PlanRateLimit(rdb, planLimit)

	// Routes
	app.Get("/health", handlers.Health)
	app.Get("/v2/stations/nearby", handlers.StationsNearby)
	app.Get("/v2/stations/search", handlers.StationsSearch)
	app.Post("/v2/routes/plan", planGuard, handlers.PlanPreview)
	app.Post("/v2/routes", planGuard, handlers.CreateRoute)
	app.Get("/v2/routes/:id", handlers.GetRoute)
	app.Post("/v2/routes/:id/stations", planGuard, handlers.AddStation)
	app.Delete("/v2/routes/:id/stations", planGuard, handlers.RemoveStation)
	app.Put("/v2/routes/:id/slots", handlers.UpdateSlots)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "endpoint not found",
		})
	})

	port := getEnv("API_PORT", "8080")
	addr := fmt.Sprintf(":%s", port)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("🚀 Server listening on http://localhost%s", addr)
	log.Printf("🗺  Plan preview: POST http://localhost%s/v2/routes/plan", addr)
	log.Printf("❤️  Health check: http://localhost%s/health", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// customErrorHandler handles errors returned from handlers
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error: %v", err)

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
