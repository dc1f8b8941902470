package workflow

import (
	"fmt"
	"strings"
	"time"

	"shifa-quality/app/models"
)

// EvaluationStore holds the recorded outcomes of inspected checklist items.
// Implementations must serialize writes to the same result id.
type EvaluationStore interface {
	GetResult(resultID string) (*models.EvaluationResult, error)

	// ListByRound returns every result of a round ordered by item sequence.
	ListByRound(roundID string) ([]models.EvaluationResult, error)

	// GetItemsNeedingCapa returns the round's results where needs_capa is
	// set or the outcome is non_compliant, ordered by item sequence. An
	// empty slice is a valid result.
	GetItemsNeedingCapa(roundID string) ([]models.EvaluationResult, error)

	// MarkNeedsCapa sets the needs-capa flag and note. Setting the flag on
	// a compliant result fails with ErrValidation. Repeating the same flag
	// value is a no-op that still updates the note.
	MarkNeedsCapa(resultID string, needsCapa bool, note *string) (*models.EvaluationResult, error)

	// RecordOutcome stores the compliance outcome of an item.
	// Re-evaluating an item to compliant clears its needs-capa flag in
	// the same step, so the flag can never survive on a compliant item.
	RecordOutcome(resultID string, outcome models.ComplianceOutcome) (*models.EvaluationResult, error)

	// LinkCapa records the CAPA created from this result. The link is set
	// once and never changed; a second link fails with ErrDuplicateCapa.
	LinkCapa(resultID, capaID string) error
}

// CapaFilter narrows a registry listing. Zero values mean "any".
type CapaFilter struct {
	DepartmentID string
	RoundID      string
	Status       models.CapaStatus
	OverdueOnly  bool
}

// CreateCapaInput carries the caller-supplied fields of a new CAPA.
type CreateCapaInput struct {
	Title         string
	Description   string
	DepartmentID  string
	OriginRoundID *string
	OriginItemID  *string
	AssigneeID    *string
	Severity      int
	TargetDate    *time.Time
}

// Validate checks the create guards: required fields, severity range, and
// target date not in the past relative to creation time.
func (in CreateCapaInput) Validate(now time.Time) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.DepartmentID) == "" {
		return fmt.Errorf("%w: department is required", ErrValidation)
	}
	if in.Severity < 1 || in.Severity > 5 {
		return fmt.Errorf("%w: severity must be between 1 and 5", ErrValidation)
	}
	if in.TargetDate != nil && in.TargetDate.Before(now) {
		return fmt.Errorf("%w: target date cannot be in the past", ErrValidation)
	}
	return nil
}

// CapaRegistry owns CAPA records and enforces their lifecycle.
// Implementations must make Create's duplicate check and Transition's
// check-then-update atomic per record; reads take no locks.
type CapaRegistry interface {
	Get(capaID string) (*models.Capa, error)

	// Create inserts a new CAPA with status pending. If an origin item is
	// given and a non-cancelled CAPA is already linked to it, Create fails
	// with ErrDuplicateCapa; the check and the insert are one atomic step.
	Create(in CreateCapaInput) (*models.Capa, error)

	// Transition moves a CAPA along the transition table, stamps
	// updated_at, and records a CapaEvent.
	Transition(capaID string, to models.CapaStatus, note *string, actorID string) (*models.Capa, error)

	// List returns CAPAs matching the filter ordered by created_at
	// ascending. OverdueOnly classifies against the current clock.
	List(filter CapaFilter) ([]models.Capa, error)

	// Events returns a CAPA's transition history, oldest first.
	Events(capaID string) ([]models.CapaEvent, error)
}

// CheckTransition validates one stored-status edge for a CAPA. Shared by every
// registry implementation so the table lives in exactly one place.
func CheckTransition(c *models.Capa, to models.CapaStatus, note *string) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	if c.Status.Terminal() {
		return fmt.Errorf("%w: capa is %s", ErrTerminalState, c.Status)
	}
	if !models.CanTransition(c.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	if models.TransitionNeedsNote(to) && (note == nil || strings.TrimSpace(*note) == "") {
		return fmt.Errorf("%w: a note is required to move to %s", ErrValidation, to)
	}
	return nil
}
