package services

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/apperrors"
	"taskmaster-backend/shared/utils/query"
	"taskmaster-backend/shared/utils/rbac"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
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

func viewerPrincipal() *rbac.Principal {
	return &rbac.Principal{
		ID:             uuid.New(),
		Email:          "viewer@example.com",
		Name:           "Viewer",
		OrganizationID: uuid.New(),
		Role:           models.RoleViewer,
	}
}

func taskRows(id, orgID uuid.UUID, status models.TaskStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "status", "organization_id", "created_by", "is_deleted"}).
		AddRow(id, "Ship release", string(status), orgID, uuid.New(), false)
}

func TestTaskGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := service.Get(p, uuid.New(), nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskGetForeignTenantIsForbidden(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	taskID := uuid.New()
	foreignOrg := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(taskRows(taskID, foreignOrg, models.TaskStatusTodo))

	_, err := service.Get(p, taskID, nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskGetSameTenant(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	taskID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(taskRows(taskID, p.OrganizationID, models.TaskStatusTodo))

	task, err := service.Get(p, taskID, nil)
	require.NoError(t, err)
	assert.Equal(t, taskID, task.ID)
	assert.Equal(t, p.OrganizationID, task.OrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListConfinesNonAdminToOwnOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	// The count and the page query must both carry the caller's
	// organization even though the request asked for a foreign one
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks" WHERE is_deleted = \$1 AND organization_id = \$2`).
		WithArgs(false, p.OrganizationID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .* FROM "tasks" WHERE is_deleted = \$1 AND organization_id = \$2`).
		WillReturnRows(taskRows(uuid.New(), p.OrganizationID, models.TaskStatusTodo))

	params := query.ListParams{
		Filters: map[string]string{"organization_id": uuid.New().String()},
		Sort:    query.SortParams{Field: "created_at", Order: "desc"},
		Limit:   50,
	}
	tasks, total, err := service.List(p, params, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, tasks, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskListAdminMayFilterAnyOrganization(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()
	p.Role = models.RoleAdmin

	target := uuid.New()
	mock.ExpectQuery(`SELECT count\(\*\) FROM "tasks" WHERE is_deleted = \$1 AND organization_id = \$2`).
		WithArgs(false, target.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	params := query.ListParams{
		Filters: map[string]string{"organization_id": target.String()},
		Sort:    query.SortParams{Field: "created_at", Order: "desc"},
		Limit:   50,
	}
	_, total, err := service.List(p, params, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdateStatusRejectsIllegalTransition(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	taskID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(taskRows(taskID, p.OrganizationID, models.TaskStatusDone))

	_, err := service.UpdateStatus(p, taskID, models.TaskStatusInProgress)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdateStatusSameStatusIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	taskID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(taskRows(taskID, p.OrganizationID, models.TaskStatusInProgress))

	// No UPDATE expected
	task, err := service.UpdateStatus(p, taskID, models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdateStatusLegalTransition(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	taskID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(taskRows(taskID, p.OrganizationID, models.TaskStatusTodo))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := service.UpdateStatus(p, taskID, models.TaskStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusInProgress, task.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskUpdateStatusInvalidStatusValue(t *testing.T) {
	db, _ := newMockDB(t)
	service := NewTaskService(db)

	_, err := service.UpdateStatus(viewerPrincipal(), uuid.New(), "ARCHIVED")
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))
}

func TestTaskDeleteIsSoft(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	taskID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "tasks"`).
		WillReturnRows(taskRows(taskID, p.OrganizationID, models.TaskStatusTodo))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "tasks" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	task, err := service.Delete(p, taskID)
	require.NoError(t, err)
	assert.True(t, task.IsDeleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskCreateRejectsForeignAssignee(t *testing.T) {
	db, mock := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	assigneeID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id"}).
			AddRow(assigneeID, uuid.New()))

	_, err := service.Create(p, CreateTaskInput{
		Title:      "Cross-tenant assignment",
		AssignedTo: &assigneeID,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskCreateValidationErrors(t *testing.T) {
	db, _ := newMockDB(t)
	service := NewTaskService(db)
	p := viewerPrincipal()

	var err error
	_, err = service.Create(p, CreateTaskInput{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))

	_, err = service.Create(p, CreateTaskInput{Title: "x", Category: "WORK"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))

	_, err = service.Create(p, CreateTaskInput{Title: "x", Priority: "CRITICAL"})
	assert.True(t, apperrors.IsKind(err, apperrors.KindInvalidInput))
}
