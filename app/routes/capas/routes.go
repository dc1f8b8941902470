package capas

import (
	"shifa-quality/app/routes/auth"
	"shifa-quality/app/workflow"

	"github.com/gofiber/fiber/v2"
)

func SetupCapaRoutes(app *fiber.App, orch *workflow.Orchestrator, registry workflow.CapaRegistry) {
	api := app.Group("/api/capas", auth.AuthMiddleware)

	api.Get("/", GetCapasAPI(registry))
	api.Post("/", CreateCapaAPI(orch))
	api.Get("/:id", GetCapaAPI(registry))
	api.Get("/:id/events", GetCapaEventsAPI(registry))
	api.Post("/:id/transition", TransitionCapaAPI(orch))
}
