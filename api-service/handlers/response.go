package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskmaster-backend/shared/utils/apperrors"
)

// respondError writes the client-safe form of err. Internal detail
// never leaves the server.
func respondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.Message(err)})
}

// respondReadError hides foreign-tenant resource existence: a Forbidden
// result from a read is reported as 404 so callers cannot probe ids
// outside their organization. All other errors pass through unchanged.
func respondReadError(c *gin.Context, err error, notFoundMessage string) {
	if apperrors.IsKind(err, apperrors.KindForbidden) {
		respondError(c, apperrors.NotFound(notFoundMessage))
		return
	}
	respondError(c, err)
}

// parseIDParam reads a UUID path parameter, replying 400 itself when the
// value is malformed
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " format"})
		return uuid.Nil, false
	}
	return id, true
}
