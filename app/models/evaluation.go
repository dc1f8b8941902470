package models

import "time"

// EvaluationResult is the recorded outcome of one inspected checklist item
// within one round. At most one non-cancelled CAPA may ever be linked to it.
type EvaluationResult struct {
	ID        string            `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()" validate:"required,uuid"`
	RoundID   string            `json:"round_id" gorm:"not null;index;type:uuid" validate:"required,uuid"`
	ItemSeq   int               `json:"item_seq" gorm:"not null"`
	ItemText  string            `json:"item_text" gorm:"not null" validate:"required"`
	Outcome   ComplianceOutcome `json:"outcome" gorm:"not null;type:varchar(20)" validate:"required,oneof=compliant not_applied non_compliant"`
	NeedsCapa bool              `json:"needs_capa" gorm:"default:false"`
	CapaNote  *string           `json:"capa_note,omitempty"`
	CapaID    *string           `json:"capa_id,omitempty" gorm:"index;type:uuid"`
	CreatedAt time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time         `json:"updated_at" gorm:"autoUpdateTime"`
}
