package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
)

type OrganizationHandler struct {
	orgService *services.OrganizationService
	audit      *services.AuditService
}

func NewOrganizationHandler(db *gorm.DB, audit *services.AuditService) *OrganizationHandler {
	return &OrganizationHandler{
		orgService: services.NewOrganizationService(db),
		audit:      audit,
	}
}

type CreateOrganizationRequest struct {
	Name        string     `json:"name" binding:"required" example:"Engineering"`
	Description string     `json:"description" example:"Engineering department"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

type UpdateOrganizationRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// POST /api/organizations
// @Summary Create organization
// @Description Create a new organization, optionally nested under a parent
// @Tags organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param organization body CreateOrganizationRequest true "Organization data"
// @Success 201 {object} models.Organization
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 409 {object} map[string]string "Organization name already exists"
// @Router /organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org, err := h.orgService.Create(principal, services.CreateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		h.recordOrgEvent(c, "organization.create", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"name": req.Name,
		})
		respondError(c, err)
		return
	}

	h.recordOrgEvent(c, "organization.create", org, models.AuditOutcomeSuccess, map[string]interface{}{
		"name": org.Name,
	})
	c.JSON(http.StatusCreated, org)
}

// GET /api/organizations
// @Summary List organizations
// @Description List organizations visible to the caller
// @Tags organizations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "List of organizations"
// @Router /organizations [get]
func (h *OrganizationHandler) List(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)

	orgs, err := h.orgService.List(principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organizations": orgs,
		"count":         len(orgs),
	})
}

// GET /api/organizations/:id
// @Summary Get organization
// @Tags organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} models.Organization
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	org, err := h.orgService.Get(principal, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

// PATCH /api/organizations/:id
// @Summary Update organization
// @Tags organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Param organization body UpdateOrganizationRequest true "Fields to update"
// @Success 200 {object} models.Organization
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Organization not found"
// @Failure 409 {object} map[string]string "Organization name already exists"
// @Router /organizations/{id} [patch]
func (h *OrganizationHandler) Update(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	org, err := h.orgService.Update(principal, id, services.UpdateOrganizationInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.recordOrgEvent(c, "organization.update", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"organization_id": id,
		})
		respondError(c, err)
		return
	}

	h.recordOrgEvent(c, "organization.update", org, models.AuditOutcomeSuccess, nil)
	c.JSON(http.StatusOK, org)
}

// DELETE /api/organizations/:id
// @Summary Deactivate organization
// @Description Logically delete an organization by marking it inactive
// @Tags organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} map[string]string "Organization deactivated"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/{id} [delete]
func (h *OrganizationHandler) Delete(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	org, err := h.orgService.Delete(principal, id)
	if err != nil {
		h.recordOrgEvent(c, "organization.delete", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"organization_id": id,
		})
		respondError(c, err)
		return
	}

	h.recordOrgEvent(c, "organization.delete", org, models.AuditOutcomeSuccess, nil)
	c.JSON(http.StatusOK, gin.H{"message": "Organization deactivated successfully"})
}

// GET /api/organizations/:id/users
// @Summary List organization users
// @Tags organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} map[string]interface{} "List of users"
// @Failure 403 {object} map[string]string "Access denied"
// @Router /organizations/{id}/users [get]
func (h *OrganizationHandler) Users(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	users, err := h.orgService.Users(principal, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GET /api/organizations/:id/children
// @Summary List child organizations
// @Tags organizations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Organization ID"
// @Success 200 {object} map[string]interface{} "Direct child organizations"
// @Failure 403 {object} map[string]string "Access denied"
// @Router /organizations/{id}/children [get]
func (h *OrganizationHandler) Children(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	children, err := h.orgService.Children(principal, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organizations": children,
		"count":         len(children),
	})
}

// GET /api/organizations/by-api-key/:apiKey
// @Summary Resolve organization by API key
// @Description Look up an organization using its service API key
// @Tags organizations
// @Produce json
// @Param apiKey path string true "Organization API key"
// @Success 200 {object} models.Organization
// @Failure 404 {object} map[string]string "Organization not found"
// @Router /organizations/by-api-key/{apiKey} [get]
func (h *OrganizationHandler) GetByAPIKey(c *gin.Context) {
	apiKey := c.Param("apiKey")
	if apiKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "API key is required"})
		return
	}

	org, err := h.orgService.GetByAPIKey(apiKey)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

func (h *OrganizationHandler) recordOrgEvent(c *gin.Context, action string, org *models.Organization, outcome models.AuditOutcome, details map[string]interface{}) {
	principal := middleware.PrincipalFromContext(c)
	entry := services.AuditEntry{
		Action:       action,
		ResourceType: "organization",
		Outcome:      outcome,
		Details:      details,
		Meta:         services.MetaFromContext(c),
	}
	if principal != nil {
		entry.ActorID = &principal.ID
		entry.OrganizationID = &principal.OrganizationID
	}
	if org != nil {
		entry.ResourceID = &org.ID
	}
	h.audit.Record(entry)
}
