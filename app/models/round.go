package models

import "time"

// Round represents one scheduled inspection session composed of evaluated
// checklist items.
type Round struct {
	ID           string             `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()" validate:"required,uuid"`
	Name         string             `json:"name" gorm:"not null" validate:"required"`
	DepartmentID *string            `json:"department_id,omitempty" gorm:"index;type:uuid"`
	Status       RoundStatus        `json:"status" gorm:"not null;type:varchar(20)" validate:"required,oneof=scheduled in_progress completed cancelled"`
	ScheduledFor *time.Time         `json:"scheduled_for,omitempty" gorm:"type:date"`
	CreatedBy    *string            `json:"created_by,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
	Results      []EvaluationResult `json:"results,omitempty" gorm:"-"`
}
