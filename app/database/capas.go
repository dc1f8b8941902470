package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shifa-quality/app/models"
	"shifa-quality/app/workflow"

	"github.com/lib/pq"
)

// CapaStore is the Postgres-backed workflow.CapaRegistry. The one-active-capa
//-per-item guarantee rests on the uq_capas_origin_item_active partial unique
// index, so a racing check-then-insert collapses to a single winner.
type CapaStore struct {
	DB *sql.DB
}

func NewCapaStore(db *sql.DB) *CapaStore {
	return &CapaStore{DB: db}
}

const capaColumns = `id, title, description, department_id, origin_round_id, origin_item_id, assignee_id, severity, target_date, status, created_at, updated_at`

func scanCapa(row interface{ Scan(...interface{}) error }) (*models.Capa, error) {
	var c models.Capa
	var description sql.NullString
	err := row.Scan(&c.ID, &c.Title, &description, &c.DepartmentID, &c.OriginRoundID,
		&c.OriginItemID, &c.AssigneeID, &c.Severity, &c.TargetDate, &c.Status,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	return &c, nil
}

func (s *CapaStore) Get(capaID string) (*models.Capa, error) {
	query := `SELECT ` + capaColumns + ` FROM capas WHERE id = $1`
	c, err := scanCapa(s.DB.QueryRow(query, capaID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: capa %s", workflow.ErrNotFound, capaID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CapaStore) Create(in workflow.CreateCapaInput) (*models.Capa, error) {
	if err := in.Validate(time.Now()); err != nil {
		return nil, err
	}

	query := `INSERT INTO capas (title, description, department_id, origin_round_id, origin_item_id,
				assignee_id, severity, target_date, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', NOW(), NOW())
			  RETURNING ` + capaColumns
	c, err := scanCapa(s.DB.QueryRow(query, in.Title, in.Description, in.DepartmentID,
		in.OriginRoundID, in.OriginItemID, in.AssigneeID, in.Severity, in.TargetDate))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation on the active-capa-per-item index
				return nil, fmt.Errorf("%w: item already has an active capa", workflow.ErrDuplicateCapa)
			case "23503": // foreign_key_violation
				return nil, fmt.Errorf("%w: %s", workflow.ErrNotFound, pqErr.Detail)
			}
		}
		return nil, err
	}
	return c, nil
}

// Transition locks the CAPA row, validates the edge, updates the status, and
// records the event, all in one transaction.
func (s *CapaStore) Transition(capaID string, to models.CapaStatus, note *string, actorID string) (*models.Capa, error) {
	tx, err := s.DB.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `SELECT ` + capaColumns + ` FROM capas WHERE id = $1 FOR UPDATE`
	c, err := scanCapa(tx.QueryRow(query, capaID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: capa %s", workflow.ErrNotFound, capaID)
	}
	if err != nil {
		return nil, err
	}

	if err := workflow.CheckTransition(c, to, note); err != nil {
		return nil, err
	}

	updateQuery := `UPDATE capas SET status = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at`
	if err := tx.QueryRow(updateQuery, capaID, to).Scan(&c.UpdatedAt); err != nil {
		return nil, err
	}

	var actor interface{}
	if actorID != "" {
		actor = actorID
	}
	eventQuery := `INSERT INTO capa_events (capa_id, from_status, to_status, note, actor_id, created_at)
				   VALUES ($1, $2, $3, $4, $5, NOW())`
	if _, err := tx.Exec(eventQuery, capaID, c.Status, to, note, actor); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	c.Status = to
	return c, nil
}

func (s *CapaStore) List(filter workflow.CapaFilter) ([]models.Capa, error) {
	query := `SELECT ` + capaColumns + ` FROM capas`

	var conditions []string
	var args []interface{}

	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.RoundID != "" {
		args = append(args, filter.RoundID)
		conditions = append(conditions, fmt.Sprintf("origin_round_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	capas := make([]models.Capa, 0)
	now := time.Now()
	for rows.Next() {
		c, err := scanCapa(rows)
		if err != nil {
			return nil, err
		}
		// Overdue is never stored, so the overdue filter classifies in
		// Go with the same function every other read uses.
		if filter.OverdueOnly && models.Classify(c, now) != models.EffectiveOverdue {
			continue
		}
		capas = append(capas, *c)
	}
	return capas, rows.Err()
}

func (s *CapaStore) Events(capaID string) ([]models.CapaEvent, error) {
	if _, err := s.Get(capaID); err != nil {
		return nil, err
	}

	query := `SELECT id, capa_id, from_status, to_status, note, actor_id, created_at
			  FROM capa_events WHERE capa_id = $1 ORDER BY created_at ASC`
	rows, err := s.DB.Query(query, capaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.CapaEvent, 0)
	for rows.Next() {
		var ev models.CapaEvent
		if err := rows.Scan(&ev.ID, &ev.CapaID, &ev.FromStatus, &ev.ToStatus,
			&ev.Note, &ev.ActorID, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
