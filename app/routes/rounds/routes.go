package rounds

import (
	"shifa-quality/app/routes/auth"
	"shifa-quality/app/workflow"

	"github.com/gofiber/fiber/v2"
)

func SetupRoundsRoutes(app *fiber.App, orch *workflow.Orchestrator, evals workflow.EvaluationStore) {
	api := app.Group("/api/rounds", auth.AuthMiddleware)

	api.Get("/", GetRoundsAPI)
	api.Post("/", CreateRoundAPI)
	api.Get("/:id", GetRoundAPI)
	api.Put("/:id/status", UpdateRoundStatusAPI)
	api.Get("/:id/items-needing-capa", GetItemsNeedingCapaAPI(evals))

	evaluations := app.Group("/api/evaluations", auth.AuthMiddleware)
	evaluations.Put("/:id", RecordEvaluationAPI(evals))
	evaluations.Post("/:id/needs-capa", MarkNeedsCapaAPI(orch))
	evaluations.Post("/:id/capa", CreateCapaForItemAPI(orch))
}
