package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/utils/query"
)

type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// auditFilters builds the query filters, pinning non-admin callers to
// their own organization
func (h *AuditHandler) auditFilters(c *gin.Context) (services.AuditFilters, bool) {
	principal := middleware.PrincipalFromContext(c)
	params := query.ParseListParams(c)

	filters := services.AuditFilters{
		Action:       params.Filters["action"],
		ResourceType: params.Filters["resource_type"],
		From:         params.From,
		To:           params.To,
	}

	if raw, ok := params.Filters["user_id"]; ok && raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id format"})
			return filters, false
		}
		filters.ActorID = &actorID
	}

	if principal.Role.CrossesTenants() {
		if raw, ok := params.Filters["organization_id"]; ok && raw != "" {
			orgID, err := uuid.Parse(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization_id format"})
				return filters, false
			}
			filters.OrganizationID = &orgID
		}
	} else {
		orgID := principal.OrganizationID
		filters.OrganizationID = &orgID
	}

	return filters, true
}

// GET /api/audit-logs
// @Summary Query audit trail
// @Description List audit entries newest-first. Non-admin callers only see their own organization.
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param filters[action] query string false "Filter by action"
// @Param filters[resource_type] query string false "Filter by resource type"
// @Param filters[user_id] query string false "Filter by acting user"
// @Param filters[organization_id] query string false "Filter by organization (admin only)"
// @Param from query string false "Start of time window (RFC3339)"
// @Param to query string false "End of time window (RFC3339)"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} map[string]interface{} "Audit entries"
// @Failure 403 {object} map[string]string "Access denied"
// @Router /audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filters, ok := h.auditFilters(c)
	if !ok {
		return
	}
	params := query.ParseListParams(c)

	entries, total, err := h.audit.Query(filters, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"audit_logs": entries,
		"pagination": query.BuildPaginationResponse(params.Limit, params.Offset, total),
	})
}

// GET /api/audit-logs/stats
// @Summary Audit trail statistics
// @Description Aggregate counts by action and resource type plus the overall success rate
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param filters[action] query string false "Filter by action"
// @Param filters[resource_type] query string false "Filter by resource type"
// @Param from query string false "Start of time window (RFC3339)"
// @Param to query string false "End of time window (RFC3339)"
// @Success 200 {object} services.AuditStats
// @Failure 403 {object} map[string]string "Access denied"
// @Router /audit-logs/stats [get]
func (h *AuditHandler) Stats(c *gin.Context) {
	filters, ok := h.auditFilters(c)
	if !ok {
		return
	}

	stats, err := h.audit.Stats(filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
