package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/apperrors"
	utils "taskmaster-backend/shared/utils/auth"
)

type AuthHandler struct {
	db    *gorm.DB
	users *services.UserService
	audit *services.AuditService
}

func NewAuthHandler(db *gorm.DB, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{db: db, users: services.NewUserService(db), audit: audit}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"admin@taskmaster.local"`
	Password string `json:"password" binding:"required" example:"admin123"`
}

type UserInfo struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	Name           string      `json:"name"`
	Role           models.Role `json:"role"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	IsActive       bool        `json:"is_active"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	User      UserInfo  `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email" example:"user@example.com"`
	Password string `json:"password" binding:"required,min=8" example:"securepassword123"`
	Name     string `json:"name" binding:"required" example:"Jane Doe"`
	// Exactly one of organization_id (join an existing organization as
	// VIEWER) or organization_name (bootstrap a new organization as its
	// OWNER) must be set.
	OrganizationID   *uuid.UUID `json:"organization_id"`
	OrganizationName string     `json:"organization_name"`
}

// POST /api/auth/login
// @Summary User login
// @Description Authenticate a user and return a signed access token
// @Tags auth
// @Accept json
// @Produce json
// @Param login body LoginRequest true "Login credentials"
// @Success 200 {object} handlers.LoginResponse "Successful login"
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Failure 429 {object} map[string]string "Too many login attempts"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.validateCredentials(req.Email, req.Password)
	if err != nil {
		// The audit record keeps the real cause; the response never
		// distinguishes unknown email from wrong password.
		h.recordAuthEvent(c, "auth.login", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"email":  req.Email,
			"reason": err.Error(),
		})
		if apperrors.IsKind(err, apperrors.KindForbidden) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, user.Name, user.OrganizationID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	h.recordAuthEvent(c, "auth.login", user, models.AuditOutcomeSuccess, nil)

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(utils.GetJWTExpireDuration()),
		User:      userInfo(user),
	})
}

// validateCredentials distinguishes causes internally while the HTTP
// boundary collapses them
func (h *AuthHandler) validateCredentials(email, password string) (*models.User, error) {
	user, err := h.users.FindByEmail(email)
	if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperrors.Forbidden("account is deactivated")
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		return nil, apperrors.Unauthorized("invalid password")
	}

	return user, nil
}

// POST /api/auth/register
// @Summary Register new user
// @Description Register a user, either joining an existing organization as VIEWER or creating a new organization as OWNER
// @Tags auth
// @Accept json
// @Produce json
// @Param register body RegisterRequest true "User registration data"
// @Success 201 {object} handlers.LoginResponse "User registered successfully"
// @Failure 400 {object} map[string]string "Invalid request format or validation error"
// @Failure 409 {object} map[string]string "Email or organization name already exists"
// @Failure 429 {object} map[string]string "Too many registration attempts"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateEmail(req.Email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.OrganizationID == nil) == (req.OrganizationName == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provide exactly one of organization_id or organization_name"})
		return
	}

	user, err := h.register(req)
	if err != nil {
		h.recordAuthEvent(c, "auth.register", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"email":  req.Email,
			"reason": apperrors.Message(err),
		})
		respondError(c, err)
		return
	}

	token, err := utils.GenerateJWT(user.ID, user.Email, user.Name, user.OrganizationID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	h.recordAuthEvent(c, "auth.register", user, models.AuditOutcomeSuccess, map[string]interface{}{
		"role": user.Role,
	})

	c.JSON(http.StatusCreated, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(utils.GetJWTExpireDuration()),
		User:      userInfo(user),
	})
}

// register creates the user, and the organization too when
// bootstrapping, in one transaction. Joining an existing organization
// grants least-privilege VIEWER; creating a fresh organization grants
// OWNER of that new tenant only.
func (h *AuthHandler) register(req RegisterRequest) (*models.User, error) {
	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return nil, apperrors.Conflict("Email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("failed to check email", err)
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	var user *models.User
	err = h.db.Transaction(func(tx *gorm.DB) error {
		var orgID uuid.UUID
		role := models.RoleViewer

		if req.OrganizationID != nil {
			var org models.Organization
			if err := tx.Where("id = ? AND is_active = ?", *req.OrganizationID, true).First(&org).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.InvalidInput("organization not found")
				}
				return apperrors.Internal("failed to load organization", err)
			}
			orgID = org.ID
		} else {
			var nameTaken models.Organization
			if err := tx.Where("name = ?", req.OrganizationName).First(&nameTaken).Error; err == nil {
				return apperrors.Conflict("Organization name already exists")
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Internal("failed to check organization name", err)
			}

			apiKey, err := utils.GenerateAPIKey()
			if err != nil {
				return apperrors.Internal("failed to generate API key", err)
			}
			org := models.Organization{
				Name:     req.OrganizationName,
				IsActive: true,
				APIKey:   apiKey,
			}
			if err := tx.Create(&org).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return apperrors.Conflict("Organization name already exists")
				}
				return apperrors.Internal("failed to create organization", err)
			}
			orgID = org.ID
			role = models.RoleOwner
		}

		created := models.User{
			Email:          req.Email,
			Name:           req.Name,
			Password:       hashedPassword,
			Role:           role,
			OrganizationID: orgID,
			IsActive:       true,
		}
		// The email check above races with concurrent registrations;
		// the unique index is the authority
		if err := tx.Create(&created).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("Email already registered")
			}
			return apperrors.Internal("failed to create user", err)
		}
		user = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GET /api/auth/me
// @Summary Current principal
// @Description Return the authenticated user's profile
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.UserInfo
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	if principal == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
		return
	}

	c.JSON(http.StatusOK, UserInfo{
		ID:             principal.ID,
		Email:          principal.Email,
		Name:           principal.Name,
		Role:           principal.Role,
		OrganizationID: principal.OrganizationID,
		IsActive:       true,
	})
}

func (h *AuthHandler) recordAuthEvent(c *gin.Context, action string, user *models.User, outcome models.AuditOutcome, details map[string]interface{}) {
	entry := services.AuditEntry{
		Action:       action,
		ResourceType: "user",
		Outcome:      outcome,
		Details:      details,
		Meta:         services.MetaFromContext(c),
	}
	if user != nil {
		entry.ActorID = &user.ID
		entry.ResourceID = &user.ID
		entry.OrganizationID = &user.OrganizationID
	}
	h.audit.Record(entry)
}

func userInfo(user *models.User) UserInfo {
	return UserInfo{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		IsActive:       user.IsActive,
	}
}
