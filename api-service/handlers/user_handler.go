package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/query"
)

type UserHandler struct {
	userService *services.UserService
	audit       *services.AuditService
}

func NewUserHandler(db *gorm.DB, audit *services.AuditService) *UserHandler {
	return &UserHandler{
		userService: services.NewUserService(db),
		audit:       audit,
	}
}

type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Role     *models.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// GET /api/users
// @Summary List users
// @Description List users in the caller's organization with filtering and pagination
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param filters[role] query string false "Filter by role"
// @Param filters[is_active] query string false "Filter by active flag"
// @Param search query string false "Search in name and email"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} map[string]interface{} "List of users"
// @Router /users [get]
func (h *UserHandler) List(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	params := query.ParseListParams(c)

	users, total, err := h.userService.List(principal, params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"pagination": query.BuildPaginationResponse(params.Limit, params.Offset, total),
	})
}

// GET /api/users/:id
// @Summary Get user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(principal, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// PATCH /api/users/:id
// @Summary Update user
// @Description Update a user's name, role, or active flag. Role grants are capped at the caller's own role.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param user body UpdateUserRequest true "Fields to update"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "User not found"
// @Router /users/{id} [patch]
func (h *UserHandler) Update(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.Update(principal, id, services.UpdateUserInput{
		Name:     req.Name,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.recordUserEvent(c, "user.update", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"target_user_id": id,
		})
		respondError(c, err)
		return
	}

	details := map[string]interface{}{}
	if req.Role != nil {
		details["new_role"] = *req.Role
	}
	h.recordUserEvent(c, "user.update", user, models.AuditOutcomeSuccess, details)
	c.JSON(http.StatusOK, user)
}

// DELETE /api/users/:id
// @Summary Deactivate user
// @Description Logically delete a user by marking them inactive. Users cannot deactivate themselves.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]string "User deactivated"
// @Failure 403 {object} map[string]string "Access denied"
// @Failure 404 {object} map[string]string "User not found"
// @Failure 400 {object} map[string]string "Cannot deactivate own account"
// @Router /users/{id} [delete]
func (h *UserHandler) Deactivate(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.Deactivate(principal, id)
	if err != nil {
		h.recordUserEvent(c, "user.deactivate", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"target_user_id": id,
		})
		respondError(c, err)
		return
	}

	h.recordUserEvent(c, "user.deactivate", user, models.AuditOutcomeSuccess, nil)
	c.JSON(http.StatusOK, gin.H{"message": "User deactivated successfully"})
}

func (h *UserHandler) recordUserEvent(c *gin.Context, action string, user *models.User, outcome models.AuditOutcome, details map[string]interface{}) {
	principal := middleware.PrincipalFromContext(c)
	entry := services.AuditEntry{
		Action:       action,
		ResourceType: "user",
		Outcome:      outcome,
		Details:      details,
		Meta:         services.MetaFromContext(c),
	}
	if principal != nil {
		entry.ActorID = &principal.ID
		entry.OrganizationID = &principal.OrganizationID
	}
	if user != nil {
		entry.ResourceID = &user.ID
	}
	h.audit.Record(entry)
}
