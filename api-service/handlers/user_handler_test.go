package handlers

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/rbac"
)

func newUserHandler(t *testing.T) (*UserHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newHandlerDB(t)
	return NewUserHandler(db, services.NewAuditService(db)), mock
}

func TestDeactivateMissingUserRecordsAuditFailure(t *testing.T) {
	h, mock := newUserHandler(t)
	targetID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectAuditInsert(mock)

	c, w := handlerContext(t, "DELETE", "/api/users/"+targetID.String(), nil,
		gin.Params{{Key: "id", Value: targetID.String()}}, adminOrgPrincipal())
	h.Deactivate(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeactivateSelfRecordsAuditFailure(t *testing.T) {
	h, mock := newUserHandler(t)
	p := &rbac.Principal{
		ID:             uuid.New(),
		Email:          "admin@example.com",
		Name:           "Admin",
		OrganizationID: uuid.New(),
		Role:           models.RoleAdmin,
	}

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "role", "organization_id", "is_active"}).
			AddRow(p.ID, p.Email, p.Name, string(p.Role), p.OrganizationID, true))
	expectAuditInsert(mock)

	c, w := handlerContext(t, "DELETE", "/api/users/"+p.ID.String(), nil,
		gin.Params{{Key: "id", Value: p.ID.String()}}, p)
	h.Deactivate(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
