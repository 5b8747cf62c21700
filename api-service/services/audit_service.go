package services

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/apperrors"
	"taskmaster-backend/shared/utils/query"
)

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// RequestMeta carries the request-scoped context an audit entry records
type RequestMeta struct {
	IPAddress string
	UserAgent string
	RequestID string
}

// MetaFromContext extracts the request metadata for audit records
func MetaFromContext(c *gin.Context) RequestMeta {
	requestID, _ := c.Get("requestID")
	rid, _ := requestID.(string)
	return RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		RequestID: rid,
	}
}

// AuditEntry describes one authorization-relevant action
type AuditEntry struct {
	Action         string
	ResourceType   string
	ResourceID     *uuid.UUID
	ActorID        *uuid.UUID
	OrganizationID *uuid.UUID
	Outcome        models.AuditOutcome
	Details        map[string]interface{}
	Meta           RequestMeta
}

// Record persists an audit entry, best-effort. A failed write is logged
// locally and never aborts the business operation it describes.
func (s *AuditService) Record(entry AuditEntry) {
	row := models.AuditLog{
		UserID:         entry.ActorID,
		Action:         entry.Action,
		ResourceType:   entry.ResourceType,
		ResourceID:     entry.ResourceID,
		OrganizationID: entry.OrganizationID,
		Outcome:        entry.Outcome,
		Details:        entry.Details,
		IPAddress:      entry.Meta.IPAddress,
		UserAgent:      entry.Meta.UserAgent,
		RequestID:      entry.Meta.RequestID,
	}

	if err := s.db.Create(&row).Error; err != nil {
		log.Printf("❌ Failed to persist audit entry %s/%s: %v", entry.Action, entry.ResourceType, err)
	}
}

// AuditFilters narrows an audit query
type AuditFilters struct {
	OrganizationID *uuid.UUID
	ActorID        *uuid.UUID
	Action         string
	ResourceType   string
	From           *time.Time
	To             *time.Time
}

// Query returns audit entries newest-first with the total match count
func (s *AuditService) Query(filters AuditFilters, limit, offset int) ([]models.AuditLog, int64, error) {
	dbQuery := s.applyFilters(s.db.Model(&models.AuditLog{}), filters)

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count audit entries", err)
	}

	var entries []models.AuditLog
	err := dbQuery.Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, apperrors.Internal("failed to query audit entries", err)
	}
	return entries, total, nil
}

// ActionCount is one row of the per-action aggregate
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// ResourceCount is one row of the per-resource aggregate
type ResourceCount struct {
	ResourceType string `json:"resource_type"`
	Count        int64  `json:"count"`
}

// AuditStats is the aggregate compliance view
type AuditStats struct {
	TotalActions int64           `json:"total_actions"`
	SuccessRate  float64         `json:"success_rate"`
	TopActions   []ActionCount   `json:"top_actions"`
	TopResources []ResourceCount `json:"top_resources"`
}

// Stats aggregates audit activity. SuccessRate is 0 when there are no
// actions at all.
func (s *AuditService) Stats(filters AuditFilters) (*AuditStats, error) {
	baseQuery := func() *gorm.DB {
		return s.applyFilters(s.db.Model(&models.AuditLog{}), filters)
	}

	var total int64
	if err := baseQuery().Count(&total).Error; err != nil {
		return nil, apperrors.Internal("failed to count audit entries", err)
	}

	var successes int64
	if err := baseQuery().Where("outcome = ?", models.AuditOutcomeSuccess).Count(&successes).Error; err != nil {
		return nil, apperrors.Internal("failed to count audit successes", err)
	}

	var topActions []ActionCount
	err := baseQuery().
		Select("action, COUNT(*) AS count").
		Group("action").Order("count DESC").Limit(10).
		Scan(&topActions).Error
	if err != nil {
		return nil, apperrors.Internal("failed to aggregate audit actions", err)
	}

	var topResources []ResourceCount
	err = baseQuery().
		Select("resource_type, COUNT(*) AS count").
		Group("resource_type").Order("count DESC").Limit(10).
		Scan(&topResources).Error
	if err != nil {
		return nil, apperrors.Internal("failed to aggregate audit resources", err)
	}

	stats := &AuditStats{
		TotalActions: total,
		TopActions:   topActions,
		TopResources: topResources,
	}
	if total > 0 {
		stats.SuccessRate = float64(successes) / float64(total)
	}
	return stats, nil
}

func (s *AuditService) applyFilters(dbQuery *gorm.DB, filters AuditFilters) *gorm.DB {
	if filters.OrganizationID != nil {
		dbQuery = dbQuery.Where("organization_id = ?", *filters.OrganizationID)
	}
	if filters.ActorID != nil {
		dbQuery = dbQuery.Where("user_id = ?", *filters.ActorID)
	}
	if filters.Action != "" {
		dbQuery = dbQuery.Where("action = ?", filters.Action)
	}
	if filters.ResourceType != "" {
		dbQuery = dbQuery.Where("resource_type = ?", filters.ResourceType)
	}
	return query.ApplyDateRange(dbQuery, "created_at", filters.From, filters.To)
}
