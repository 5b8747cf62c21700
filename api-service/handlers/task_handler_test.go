package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/rbac"
)

func newHandlerDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gdb, mock
}

func editorPrincipal() *rbac.Principal {
	return &rbac.Principal{
		ID:             uuid.New(),
		Email:          "editor@example.com",
		Name:           "Editor",
		OrganizationID: uuid.New(),
		Role:           models.RoleEditor,
	}
}

// handlerContext builds a request-bound gin context with an
// authenticated principal, the way the middleware chain would
func handlerContext(t *testing.T, method, path string, body interface{}, params gin.Params, p *rbac.Principal) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	if p != nil {
		c.Set("principal", p)
	}
	return c, w
}

func newTaskHandler(t *testing.T) (*TaskHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newHandlerDB(t)
	return NewTaskHandler(db, services.NewAuditService(db), services.NewEventService()), mock
}

func TestUpdateMissingTaskRecordsAuditFailure(t *testing.T) {
	h, mock := newTaskHandler(t)
	p := editorPrincipal()
	taskID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectAuditInsert(mock)

	title := "renamed"
	c, w := handlerContext(t, "PATCH", "/api/tasks/"+taskID.String(),
		UpdateTaskRequest{Title: &title},
		gin.Params{{Key: "id", Value: taskID.String()}}, p)
	h.Update(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingTaskRecordsAuditFailure(t *testing.T) {
	h, mock := newTaskHandler(t)
	p := editorPrincipal()
	taskID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectAuditInsert(mock)

	c, w := handlerContext(t, "DELETE", "/api/tasks/"+taskID.String(), nil,
		gin.Params{{Key: "id", Value: taskID.String()}}, p)
	h.Delete(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateForeignTenantTaskRecordsAuditFailure(t *testing.T) {
	h, mock := newTaskHandler(t)
	p := editorPrincipal()
	taskID := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "organization_id", "created_by", "is_deleted"}).
			AddRow(taskID, "other org task", string(models.TaskStatusTodo), uuid.New(), uuid.New(), false))
	expectAuditInsert(mock)

	title := "renamed"
	c, w := handlerContext(t, "PATCH", "/api/tasks/"+taskID.String(),
		UpdateTaskRequest{Title: &title},
		gin.Params{{Key: "id", Value: taskID.String()}}, p)
	h.Update(c)

	// Foreign-tenant tasks answer 404, the audit row keeps the truth
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
