package workflow

import (
	"fmt"

	"shifa-quality/app/models"
)

// Actor is the caller identity supplied by the auth layer: a set of
// department scopes plus a superuser override.
type Actor struct {
	ID          string
	Departments []string
	Superuser   bool
}

// CanEdit reports whether the actor may advance CAPAs of this department.
func (a Actor) CanEdit(departmentID string) bool {
	if a.Superuser {
		return true
	}
	for _, d := range a.Departments {
		if d == departmentID {
			return true
		}
	}
	return false
}

// Orchestrator is the use-case layer tying the evaluation store and the CAPA
// registry together. It holds no state of its own; every call is a complete
// request-response step.
type Orchestrator struct {
	Evaluations EvaluationStore
	Capas       CapaRegistry
}

// NewOrchestrator wires the orchestrator over its two stores.
func NewOrchestrator(evals EvaluationStore, capas CapaRegistry) *Orchestrator {
	return &Orchestrator{Evaluations: evals, Capas: capas}
}

// MarkNeedsCapa flags or unflags an item for corrective action. It never
// creates a CAPA; acknowledging a finding and committing to remediation are
// separate steps.
func (o *Orchestrator) MarkNeedsCapa(resultID string, needsCapa bool, note *string) (*models.EvaluationResult, error) {
	return o.Evaluations.MarkNeedsCapa(resultID, needsCapa, note)
}

// MarkOutcome is the result of the composite mark-and-create operation.
type MarkOutcome struct {
	Result *models.EvaluationResult `json:"result"`
	Capa   *models.Capa             `json:"capa,omitempty"`
}

// MarkItemAndMaybeCreateCapa flags an item as needing corrective action and,
// when create is set, raises a CAPA linked to it in the same step. The
// registry's atomic duplicate guard makes the composite safe under
// concurrency: of two racing calls for the same item, exactly one create
// succeeds and the other observes ErrDuplicateCapa.
func (o *Orchestrator) MarkItemAndMaybeCreateCapa(resultID string, create bool, in *CreateCapaInput) (*MarkOutcome, error) {
	if create && in == nil {
		return nil, fmt.Errorf("%w: capa fields are required when create is set", ErrValidation)
	}

	result, err := o.Evaluations.GetResult(resultID)
	if err != nil {
		return nil, err
	}

	var note *string
	if create && in != nil && in.Description != "" {
		note = &in.Description
	}
	result, err = o.Evaluations.MarkNeedsCapa(resultID, true, note)
	if err != nil {
		return nil, err
	}
	if !create {
		return &MarkOutcome{Result: result}, nil
	}

	// Force the linkage onto the new CAPA regardless of what the caller
	// sent; the CAPA originates from this result.
	fields := *in
	fields.OriginRoundID = &result.RoundID
	fields.OriginItemID = &result.ID

	capa, err := o.Capas.Create(fields)
	if err != nil {
		return nil, err
	}
	if err := o.Evaluations.LinkCapa(resultID, capa.ID); err != nil {
		return nil, err
	}
	result, err = o.Evaluations.GetResult(resultID)
	if err != nil {
		return nil, err
	}
	return &MarkOutcome{Result: result, Capa: capa}, nil
}

// CreateCapa raises an ad-hoc CAPA with no origin item. Creation against an
// origin item must go through MarkItemAndMaybeCreateCapa so the evaluation
// side stays consistent.
func (o *Orchestrator) CreateCapa(in CreateCapaInput) (*models.Capa, error) {
	in.OriginItemID = nil
	return o.Capas.Create(in)
}

// AdvanceCapa moves a CAPA along its lifecycle after checking the actor's
// department scope.
func (o *Orchestrator) AdvanceCapa(capaID string, to models.CapaStatus, note *string, actor Actor) (*models.Capa, error) {
	capa, err := o.Capas.Get(capaID)
	if err != nil {
		return nil, err
	}
	if !actor.CanEdit(capa.DepartmentID) {
		return nil, fmt.Errorf("%w: no edit scope on department %s", ErrPermissionDenied, capa.DepartmentID)
	}
	return o.Capas.Transition(capaID, to, note, actor.ID)
}
