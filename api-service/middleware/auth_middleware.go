package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmaster-backend/shared/database/models"
	utils "taskmaster-backend/shared/utils/auth"
	"taskmaster-backend/shared/utils/rbac"
)

const principalKey = "principal"

// AuthRequired validates the bearer token and reconstructs the
// principal. Claims are treated as a cache, not a source of truth: the
// current user record is re-fetched on every request so a deactivation
// or role/org change invalidates outstanding tokens immediately.
func AuthRequired(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}

		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			}
			c.Abort()
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
			c.Abort()
			return
		}

		// A stale token forces re-login after an email or org change
		if user.Email != claims.Email || user.OrganizationID.String() != claims.OrganizationID {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token no longer matches account"})
			c.Abort()
			return
		}

		c.Set(principalKey, &rbac.Principal{
			ID:             user.ID,
			Email:          user.Email,
			Name:           user.Name,
			OrganizationID: user.OrganizationID,
			Role:           user.Role,
		})

		c.Next()
	}
}

// extractToken reads the bearer token from the Authorization header,
// falling back to the token query parameter for WebSocket upgrades
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) == 2 && tokenParts[0] == "Bearer" {
			return tokenParts[1]
		}
		return ""
	}
	return c.Query("token")
}

// PrincipalFromContext returns the authenticated principal, if any
func PrincipalFromContext(c *gin.Context) *rbac.Principal {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil
	}
	principal, _ := value.(*rbac.Principal)
	return principal
}
