package rounds

import (
	"database/sql"
	"errors"
	"time"

	"shifa-quality/app/config"
	"shifa-quality/app/database"
	"shifa-quality/app/models"
	"shifa-quality/app/workflow"

	"github.com/gofiber/fiber/v2"
)

func statusForError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		return 404
	case errors.Is(err, workflow.ErrDuplicateCapa):
		return 409
	case errors.Is(err, workflow.ErrValidation):
		return 400
	}
	return 500
}

func GetRoundsAPI(c *fiber.Ctx) error {
	filters := database.RoundFilters{
		DepartmentID: c.Query("department_id"),
		Status:       c.Query("status"),
		Limit:        c.QueryInt("limit"),
		Offset:       c.QueryInt("offset"),
	}

	rounds, err := database.GetRounds(config.GetDB(), filters)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch rounds"})
	}
	return c.JSON(fiber.Map{
		"rounds": rounds,
		"count":  len(rounds),
	})
}

func GetRoundAPI(c *fiber.Ctx) error {
	round, err := database.GetRoundByID(config.GetDB(), c.Params("id"))
	if err != nil {
		if err == sql.ErrNoRows {
			return c.Status(404).JSON(fiber.Map{"error": "Round not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch round"})
	}
	return c.JSON(round)
}

func CreateRoundAPI(c *fiber.Ctx) error {
	type CreateRoundRequest struct {
		Name         string     `json:"name"`
		DepartmentID *string    `json:"department_id"`
		ScheduledFor *time.Time `json:"scheduled_for"`
		Items        []string   `json:"items"`
	}

	var req CreateRoundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Name is required"})
	}
	if len(req.Items) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "At least one checklist item is required"})
	}

	userID := c.Locals("user_id").(string)
	round := &models.Round{
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		Status:       models.RoundScheduled,
		ScheduledFor: req.ScheduledFor,
		CreatedBy:    &userID,
	}

	if err := database.CreateRound(config.GetDB(), round, req.Items); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to create round"})
	}
	return c.Status(201).JSON(round)
}

func UpdateRoundStatusAPI(c *fiber.Ctx) error {
	type StatusRequest struct {
		Status models.RoundStatus `json:"status"`
	}

	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
	}
	switch req.Status {
	case models.RoundScheduled, models.RoundInProgress, models.RoundCompleted, models.RoundCancelled:
	default:
		return c.Status(400).JSON(fiber.Map{"error": "Unknown round status"})
	}

	// Round status never cascades into linked CAPAs; open corrective
	// actions survive a cancelled or reopened round.
	if err := database.UpdateRoundStatus(config.GetDB(), c.Params("id"), req.Status); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": "Failed to update round status"})
	}
	return c.JSON(fiber.Map{"message": "Round status updated"})
}

// GetItemsNeedingCapaAPI returns the round's items flagged for corrective
// action or found non-compliant, in checklist order.
func GetItemsNeedingCapaAPI(store workflow.EvaluationStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		items, err := store.GetItemsNeedingCapa(c.Params("id"))
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{
			"items": items,
			"count": len(items),
		})
	}
}

func RecordEvaluationAPI(store workflow.EvaluationStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		type EvaluationRequest struct {
			Outcome models.ComplianceOutcome `json:"outcome"`
		}

		var req EvaluationRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}

		result, err := store.RecordOutcome(c.Params("id"), req.Outcome)
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(result)
	}
}

func MarkNeedsCapaAPI(orch *workflow.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		type MarkRequest struct {
			NeedsCapa bool    `json:"needs_capa"`
			Note      *string `json:"note"`
		}

		var req MarkRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}

		result, err := orch.MarkNeedsCapa(c.Params("id"), req.NeedsCapa, req.Note)
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(result)
	}
}

// CreateCapaForItemAPI is the composite mark-and-create operation: the item
// is flagged and, when create is set, a CAPA is raised and linked in the same
// step. A concurrent duplicate create surfaces as 409.
func CreateCapaForItemAPI(orch *workflow.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		type CompositeRequest struct {
			Create       bool       `json:"create"`
			Title        string     `json:"title"`
			Description  string     `json:"description"`
			DepartmentID string     `json:"department_id"`
			AssigneeID   *string    `json:"assignee_id"`
			Severity     int        `json:"severity"`
			TargetDate   *time.Time `json:"target_date"`
		}

		var req CompositeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}

		var in *workflow.CreateCapaInput
		if req.Create {
			in = &workflow.CreateCapaInput{
				Title:        req.Title,
				Description:  req.Description,
				DepartmentID: req.DepartmentID,
				AssigneeID:   req.AssigneeID,
				Severity:     req.Severity,
				TargetDate:   req.TargetDate,
			}
		}

		outcome, err := orch.MarkItemAndMaybeCreateCapa(c.Params("id"), req.Create, in)
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		status := 200
		if outcome.Capa != nil {
			status = 201
		}
		return c.Status(status).JSON(outcome)
	}
}
