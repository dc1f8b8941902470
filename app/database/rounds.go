package database

import (
	"database/sql"
	"fmt"
	"strings"

	"shifa-quality/app/models"
)

// RoundFilters represents filtering options for rounds
type RoundFilters struct {
	DepartmentID string
	Status       string
	Limit        int
	Offset       int
}

// GetRounds retrieves rounds matching the filters, newest first.
func GetRounds(db *sql.DB, filters RoundFilters) ([]models.Round, error) {
	query := `SELECT id, name, department_id, status, scheduled_for, created_by, created_at, updated_at
			  FROM rounds`

	var conditions []string
	var args []interface{}

	if filters.DepartmentID != "" {
		args = append(args, filters.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filters.Offset > 0 {
		args = append(args, filters.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []models.Round
	for rows.Next() {
		var r models.Round
		if err := rows.Scan(&r.ID, &r.Name, &r.DepartmentID, &r.Status, &r.ScheduledFor,
			&r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, nil
}

// GetRoundByID returns one round with its evaluation results in item order.
func GetRoundByID(db *sql.DB, roundID string) (*models.Round, error) {
	round := &models.Round{}
	query := `SELECT id, name, department_id, status, scheduled_for, created_by, created_at, updated_at
			  FROM rounds WHERE id = $1`
	err := db.QueryRow(query, roundID).Scan(&round.ID, &round.Name, &round.DepartmentID,
		&round.Status, &round.ScheduledFor, &round.CreatedBy, &round.CreatedAt, &round.UpdatedAt)
	if err != nil {
		return nil, err
	}

	itemQuery := `SELECT id, round_id, item_seq, item_text, outcome, needs_capa, capa_note, capa_id, created_at, updated_at
				  FROM evaluation_results WHERE round_id = $1 ORDER BY item_seq ASC`
	rows, err := db.Query(itemQuery, roundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r models.EvaluationResult
		if err := rows.Scan(&r.ID, &r.RoundID, &r.ItemSeq, &r.ItemText, &r.Outcome,
			&r.NeedsCapa, &r.CapaNote, &r.CapaID, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		round.Results = append(round.Results, r)
	}
	return round, nil
}

// CreateRound inserts a round together with one evaluation result per
// checklist item, all in one transaction.
func CreateRound(db *sql.DB, round *models.Round, items []string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO rounds (name, department_id, status, scheduled_for, created_by, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			  RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(query, round.Name, round.DepartmentID, round.Status,
		round.ScheduledFor, round.CreatedBy).Scan(&round.ID, &round.CreatedAt, &round.UpdatedAt); err != nil {
		return err
	}

	itemQuery := `INSERT INTO evaluation_results (round_id, item_seq, item_text, outcome, created_at, updated_at)
				  VALUES ($1, $2, $3, $4, NOW(), NOW())
				  RETURNING id`
	for i, text := range items {
		var r models.EvaluationResult
		if err := tx.QueryRow(itemQuery, round.ID, i+1, text, models.NotApplied).Scan(&r.ID); err != nil {
			return err
		}
		r.RoundID = round.ID
		r.ItemSeq = i + 1
		r.ItemText = text
		r.Outcome = models.NotApplied
		round.Results = append(round.Results, r)
	}

	return tx.Commit()
}

// UpdateRoundStatus changes the round-level status. Round status is
// independent of the CAPAs raised from the round; open CAPAs survive a round
// being cancelled or reopened.
func UpdateRoundStatus(db *sql.DB, roundID string, status models.RoundStatus) error {
	res, err := db.Exec(`UPDATE rounds SET status = $2, updated_at = NOW() WHERE id = $1`, roundID, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
