package dashboard

import (
	"errors"
	"time"

	"shifa-quality/app/config"
	"shifa-quality/app/database"
	"shifa-quality/app/routes/auth"
	"shifa-quality/app/workflow"

	"github.com/gofiber/fiber/v2"
)

func SetupDashboardRoutes(app *fiber.App, agg *workflow.Aggregator) {
	api := app.Group("/api/dashboard", auth.AuthMiddleware)

	api.Get("/stats", GetDashboardStatsAPI(agg))
	api.Get("/rounds/:id/summary", GetRoundSummaryAPI(agg))
}

// GetDashboardStatsAPI returns dashboard statistics as JSON
func GetDashboardStatsAPI(agg *workflow.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		db := config.GetDB()

		stats, err := database.GetDashboardCounts(db)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error":   "Failed to fetch dashboard statistics",
				"details": err.Error(),
			})
		}

		capaStats, err := agg.GlobalCapaStats(time.Now())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{
				"error":   "Failed to fetch CAPA statistics",
				"details": err.Error(),
			})
		}
		stats.Capas = *capaStats

		return c.JSON(stats)
	}
}

func GetRoundSummaryAPI(agg *workflow.Aggregator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := agg.RoundSummary(c.Params("id"))
		if err != nil {
			if errors.Is(err, workflow.ErrNotFound) {
				return c.Status(404).JSON(fiber.Map{"error": "Round not found"})
			}
			return c.Status(500).JSON(fiber.Map{"error": "Failed to compute round summary"})
		}
		return c.JSON(summary)
	}
}
