package models

import "time"

// Capa represents a Corrective and Preventive Action record raised against a
// non-compliant inspection finding, or created ad hoc without an origin item.
type Capa struct {
	ID            string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()" validate:"required,uuid"`
	Title         string     `json:"title" gorm:"not null" validate:"required"`
	Description   string     `json:"description,omitempty"`
	DepartmentID  string     `json:"department_id" gorm:"not null;index;type:uuid" validate:"required,uuid"`
	OriginRoundID *string    `json:"origin_round_id,omitempty" gorm:"index;type:uuid"`
	OriginItemID  *string    `json:"origin_item_id,omitempty" gorm:"index;type:uuid"`
	AssigneeID    *string    `json:"assignee_id,omitempty" gorm:"type:uuid"`
	Severity      int        `json:"severity" gorm:"not null;default:3" validate:"required,min=1,max=5"`
	TargetDate    *time.Time `json:"target_date,omitempty" gorm:"type:date"`
	Status        CapaStatus `json:"status" gorm:"not null;type:varchar(20)" validate:"required,oneof=pending in_progress on_hold implemented cancelled"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// CapaEvent records one status transition for audit purposes.
type CapaEvent struct {
	ID         string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	CapaID     string     `json:"capa_id" gorm:"not null;index;type:uuid"`
	FromStatus CapaStatus `json:"from_status" gorm:"type:varchar(20)"`
	ToStatus   CapaStatus `json:"to_status" gorm:"not null;type:varchar(20)"`
	Note       *string    `json:"note,omitempty"`
	ActorID    *string    `json:"actor_id,omitempty" gorm:"type:uuid"`
	CreatedAt  time.Time  `json:"created_at" gorm:"autoCreateTime"`
}

// capaTransitions is the full stored-status transition table. Any edge not
// listed here is rejected.
var capaTransitions = map[CapaStatus][]CapaStatus{
	CapaPending:    {CapaInProgress, CapaOnHold, CapaCancelled},
	CapaInProgress: {CapaOnHold, CapaImplemented, CapaCancelled},
	CapaOnHold:     {CapaInProgress, CapaCancelled},
}

// Terminal reports whether no further stored-status transitions are accepted.
func (s CapaStatus) Terminal() bool {
	return s == CapaImplemented || s == CapaCancelled
}

// Valid reports whether s is one of the defined stored statuses.
func (s CapaStatus) Valid() bool {
	switch s {
	case CapaPending, CapaInProgress, CapaOnHold, CapaImplemented, CapaCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is an edge in the transition table.
func CanTransition(from, to CapaStatus) bool {
	for _, next := range capaTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionNeedsNote reports whether entering the given status requires a
// reason or completion note.
func TransitionNeedsNote(to CapaStatus) bool {
	return to == CapaOnHold || to == CapaCancelled || to == CapaImplemented
}

// Classify returns the effective status of a CAPA at the given instant. A
// pending or in-progress CAPA whose target date has passed classifies as
// overdue; a target date exactly equal to now is not overdue. Terminal and
// on-hold CAPAs keep their stored status. Overdue is recomputed on every read
// and never persisted.
func Classify(c *Capa, now time.Time) EffectiveStatus {
	if c.Status == CapaPending || c.Status == CapaInProgress {
		if c.TargetDate != nil && c.TargetDate.Before(now) {
			return EffectiveOverdue
		}
	}
	return EffectiveStatus(c.Status)
}
