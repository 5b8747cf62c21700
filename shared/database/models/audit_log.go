package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "success"
	AuditOutcomeFailure AuditOutcome = "failure"
)

// AuditLog is an immutable record of an authorization-relevant action.
// Failures are recorded with the same shape as successes. Rows are only
// ever inserted, never updated.
type AuditLog struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID         *uuid.UUID     `json:"user_id,omitempty" gorm:"type:uuid;index"`
	Action         string         `json:"action" gorm:"size:100;not null;index"`
	ResourceType   string         `json:"resource_type" gorm:"size:100;not null;index"`
	ResourceID     *uuid.UUID     `json:"resource_id,omitempty" gorm:"type:uuid"`
	OrganizationID *uuid.UUID     `json:"organization_id,omitempty" gorm:"type:uuid;index"`
	Outcome        AuditOutcome   `json:"outcome" gorm:"type:varchar(10);not null;index"`
	Details        map[string]interface{} `json:"details,omitempty" gorm:"type:jsonb;serializer:json"`
	IPAddress      string         `json:"ip_address" gorm:"type:varchar(45)"`
	UserAgent      string         `json:"user_agent" gorm:"type:text"`
	RequestID      string         `json:"request_id" gorm:"type:varchar(100);index"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime;index"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
