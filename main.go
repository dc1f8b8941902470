package main

import (
	"log"

	"shifa-quality/app/config"
	"shifa-quality/app/database"
	"shifa-quality/app/routes/auth"
	"shifa-quality/app/routes/capas"
	"shifa-quality/app/routes/dashboard"
	"shifa-quality/app/routes/departments"
	"shifa-quality/app/routes/rounds"
	"shifa-quality/app/services"
	"shifa-quality/app/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// customErrorHandler reports HTTP errors as JSON envelopes
func customErrorHandler(c *fiber.Ctx, err error) error {
	// Status code defaults to 500
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a *fiber.Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    code,
	})
}

func main() {
	// Initialize database
	config.InitDB()
	defer config.GetDB().Close()

	// Run database migrations
	if err := database.RunMigrations(config.GetDB()); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Start background scheduler
	services.StartScheduler(config.GetDB())

	// Wire the CAPA workflow over the Postgres stores
	evaluations := database.NewEvaluationStore(config.GetDB())
	registry := database.NewCapaStore(config.GetDB())
	orchestrator := workflow.NewOrchestrator(evaluations, registry)
	aggregator := workflow.NewAggregator(evaluations, registry)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Setup auth routes
	auth.SetupAuthRoutes(app)

	// Setup dashboard routes
	dashboard.SetupDashboardRoutes(app, aggregator)

	// Setup rounds and evaluation routes
	rounds.SetupRoundsRoutes(app, orchestrator, evaluations)

	// Setup CAPA routes
	capas.SetupCapaRoutes(app, orchestrator, registry)

	// Setup departments routes
	departments.SetupDepartmentsRoutes(app)

	// Catch-all route for 404 errors (must be last)
	app.Use("*", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not found")
	})

	// Start server
	log.Println("Server starting on :8080")
	log.Fatal(app.Listen(":8080"))
}
