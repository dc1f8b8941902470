package models

import "time"

// Department represents a hospital department (e.g., ICU, pharmacy). CAPAs and
// edit permissions are scoped to departments.
type Department struct {
	ID          string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()" validate:"required,uuid"`
	Name        string     `json:"name" gorm:"uniqueIndex;not null" validate:"required"`
	Code        string     `json:"code" gorm:"uniqueIndex;not null" validate:"required"`
	Description *string    `json:"description,omitempty"`
	HeadUserID  *string    `json:"head_user_id,omitempty" gorm:"type:uuid"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" gorm:"index"`
	Users       []*User    `json:"users,omitempty" gorm:"many2many:user_departments;"`
}
