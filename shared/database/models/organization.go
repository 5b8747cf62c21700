package models

import (
	"time"

	"github.com/google/uuid"
)

// Organization is the tenant boundary. Every user, task and audit entry
// belongs to exactly one organization. ParentID builds a simple tree of
// sub-organizations.
type Organization struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string     `json:"name" gorm:"size:200;uniqueIndex;not null"`
	Description string     `json:"description" gorm:"type:text"`
	ParentID    *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	APIKey      string     `json:"-" gorm:"size:100;uniqueIndex"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Organization) TableName() string {
	return "organizations"
}
