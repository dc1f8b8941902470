package capas

import (
	"errors"
	"time"

	"shifa-quality/app/models"
	"shifa-quality/app/routes/auth"
	"shifa-quality/app/workflow"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps workflow failures to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return 404
	case errors.Is(err, workflow.ErrDuplicateCapa):
		return 409
	case errors.Is(err, workflow.ErrInvalidTransition), errors.Is(err, workflow.ErrTerminalState):
		return 409
	case errors.Is(err, workflow.ErrPermissionDenied):
		return 403
	case errors.Is(err, workflow.ErrValidation):
		return 400
	}
	return 500
}

type capaRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	DepartmentID string     `json:"department_id"`
	AssigneeID   *string    `json:"assignee_id"`
	Severity     int        `json:"severity"`
	TargetDate   *time.Time `json:"target_date"`
}

func (r capaRequest) toInput() workflow.CreateCapaInput {
	return workflow.CreateCapaInput{
		Title:        r.Title,
		Description:  r.Description,
		DepartmentID: r.DepartmentID,
		AssigneeID:   r.AssigneeID,
		Severity:     r.Severity,
		TargetDate:   r.TargetDate,
	}
}

// toResponse attaches the effective status at now.
func toResponse(c *models.Capa, now time.Time) models.CapaResponse {
	return models.CapaResponse{Capa: *c, EffectiveStatus: models.Classify(c, now)}
}

func GetCapasAPI(registry workflow.CapaRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := workflow.CapaFilter{
			DepartmentID: c.Query("department_id"),
			RoundID:      c.Query("round_id"),
			Status:       models.CapaStatus(c.Query("status")),
			OverdueOnly:  c.Query("overdue") == "true",
		}

		capas, err := registry.List(filter)
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}

		now := time.Now()
		out := make([]models.CapaResponse, len(capas))
		for i := range capas {
			out[i] = toResponse(&capas[i], now)
		}
		return c.JSON(fiber.Map{
			"capas": out,
			"count": len(out),
		})
	}
}

func GetCapaAPI(registry workflow.CapaRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		capa, err := registry.Get(c.Params("id"))
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(toResponse(capa, time.Now()))
	}
}

func GetCapaEventsAPI(registry workflow.CapaRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		events, err := registry.Events(c.Params("id"))
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{
			"events": events,
			"count":  len(events),
		})
	}
}

// CreateCapaAPI raises an ad-hoc CAPA with no origin item. CAPAs against a
// specific evaluation item go through the rounds package's composite endpoint.
func CreateCapaAPI(orch *workflow.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req capaRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}

		capa, err := orch.CreateCapa(req.toInput())
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(toResponse(capa, time.Now()))
	}
}

func TransitionCapaAPI(orch *workflow.Orchestrator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		type transitionRequest struct {
			Status models.CapaStatus `json:"status"`
			Note   *string           `json:"note"`
		}

		var req transitionRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}

		actor := auth.GetActor(c)
		capa, err := orch.AdvanceCapa(c.Params("id"), req.Status, req.Note, actor)
		if err != nil {
			return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(toResponse(capa, time.Now()))
	}
}
