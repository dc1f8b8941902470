package database

import (
	"database/sql"
	"fmt"

	"shifa-quality/app/models"
	"shifa-quality/app/workflow"
)

// EvaluationStore is the Postgres-backed workflow.EvaluationStore.
type EvaluationStore struct {
	DB *sql.DB
}

func NewEvaluationStore(db *sql.DB) *EvaluationStore {
	return &EvaluationStore{DB: db}
}

const evaluationColumns = `id, round_id, item_seq, item_text, outcome, needs_capa, capa_note, capa_id, created_at, updated_at`

func scanEvaluation(row interface{ Scan(...interface{}) error }) (*models.EvaluationResult, error) {
	var r models.EvaluationResult
	err := row.Scan(&r.ID, &r.RoundID, &r.ItemSeq, &r.ItemText, &r.Outcome,
		&r.NeedsCapa, &r.CapaNote, &r.CapaID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *EvaluationStore) GetResult(resultID string) (*models.EvaluationResult, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluation_results WHERE id = $1`
	r, err := scanEvaluation(s.DB.QueryRow(query, resultID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: evaluation result %s", workflow.ErrNotFound, resultID)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *EvaluationStore) ListByRound(roundID string) ([]models.EvaluationResult, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluation_results WHERE round_id = $1 ORDER BY item_seq ASC`
	return s.queryResults(query, roundID)
}

func (s *EvaluationStore) GetItemsNeedingCapa(roundID string) ([]models.EvaluationResult, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluation_results
			  WHERE round_id = $1 AND (needs_capa = true OR outcome = 'non_compliant')
			  ORDER BY item_seq ASC`
	return s.queryResults(query, roundID)
}

func (s *EvaluationStore) queryResults(query string, args ...interface{}) ([]models.EvaluationResult, error) {
	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]models.EvaluationResult, 0)
	for rows.Next() {
		r, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// MarkNeedsCapa flips the needs-capa flag in one guarded update so a
// compliant item can never end up flagged.
func (s *EvaluationStore) MarkNeedsCapa(resultID string, needsCapa bool, note *string) (*models.EvaluationResult, error) {
	query := `UPDATE evaluation_results
			  SET needs_capa = $2, capa_note = COALESCE($3, capa_note), updated_at = NOW()
			  WHERE id = $1 AND NOT ($2::boolean AND outcome = 'compliant')
			  RETURNING ` + evaluationColumns
	r, err := scanEvaluation(s.DB.QueryRow(query, resultID, needsCapa, note))
	if err == sql.ErrNoRows {
		// Distinguish unknown id from the compliant-item guard.
		if _, getErr := s.GetResult(resultID); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: a compliant item cannot need a capa", workflow.ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// RecordOutcome stores the outcome in one guarded update: re-evaluating an
// item to compliant also clears its needs-capa flag, so a compliant item can
// never stay flagged or keep showing up in GetItemsNeedingCapa.
func (s *EvaluationStore) RecordOutcome(resultID string, outcome models.ComplianceOutcome) (*models.EvaluationResult, error) {
	switch outcome {
	case models.Compliant, models.NotApplied, models.NonCompliant:
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", workflow.ErrValidation, outcome)
	}

	query := `UPDATE evaluation_results
			  SET outcome = $2,
				  needs_capa = CASE WHEN $2::text = 'compliant' THEN false ELSE needs_capa END,
				  updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + evaluationColumns
	r, err := scanEvaluation(s.DB.QueryRow(query, resultID, outcome))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: evaluation result %s", workflow.ErrNotFound, resultID)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// LinkCapa sets the result's CAPA reference. The link only moves off a
// cancelled CAPA, matching the registry's one-active-capa-per-item guard.
func (s *EvaluationStore) LinkCapa(resultID, capaID string) error {
	query := `UPDATE evaluation_results er
			  SET capa_id = $2, updated_at = NOW()
			  WHERE er.id = $1
			  AND (er.capa_id IS NULL OR EXISTS (
					SELECT 1 FROM capas c WHERE c.id = er.capa_id AND c.status = 'cancelled'))`
	res, err := s.DB.Exec(query, resultID, capaID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := s.GetResult(resultID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: result %s is already linked", workflow.ErrDuplicateCapa, resultID)
	}
	return nil
}
