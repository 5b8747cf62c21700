package handlers

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
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
	utils "taskmaster-backend/shared/utils/auth"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
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

	return NewAuthHandler(gdb, services.NewAuditService(gdb)), mock
}

func postJSON(t *testing.T, handler gin.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", path, bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")

	handler(c)
	return w
}

func expectAuditInsert(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()
}

func loginUserRows(t *testing.T, id, orgID uuid.UUID, email, password string, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)

	return sqlmock.NewRows([]string{"id", "email", "name", "password", "role", "organization_id", "is_active"}).
		AddRow(id, email, "Test User", hash, string(models.RoleEditor), orgID, active)
}

func TestLoginUnknownEmailAnswersGenerically(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectAuditInsert(mock)

	w := postJSON(t, h.Login, "/api/auth/login", LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever123",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
	assert.NotContains(t, w.Body.String(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginWrongPasswordAnswersGenerically(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(loginUserRows(t, uuid.New(), uuid.New(), "user@example.com", "correct-password", true))
	expectAuditInsert(mock)

	w := postJSON(t, h.Login, "/api/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLoginDeactivatedAccount(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(loginUserRows(t, uuid.New(), uuid.New(), "user@example.com", "correct-password", false))
	expectAuditInsert(mock)

	w := postJSON(t, h.Login, "/api/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "correct-password",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "deactivated")
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	utils.SetKeysForTesting(key)

	h, mock := newAuthHandler(t)

	userID := uuid.New()
	orgID := uuid.New()
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(loginUserRows(t, userID, orgID, "user@example.com", "correct-password", true))
	expectAuditInsert(mock)

	w := postJSON(t, h.Login, "/api/auth/login", LoginRequest{
		Email:    "user@example.com",
		Password: "correct-password",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, userID, resp.User.ID)
	assert.Equal(t, orgID, resp.User.OrganizationID)

	claims, err := utils.ValidateJWT(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}

func TestRegisterEmailConflictIssuesNoToken(t *testing.T) {
	h, mock := newAuthHandler(t)

	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(loginUserRows(t, uuid.New(), uuid.New(), "taken@example.com", "whatever123", true))
	expectAuditInsert(mock)

	w := postJSON(t, h.Register, "/api/auth/register", RegisterRequest{
		Email:            "taken@example.com",
		Password:         "securepass123",
		Name:             "Jane Doe",
		OrganizationName: "New Org",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already registered")
	assert.NotContains(t, w.Body.String(), "token")
}

func TestRegisterDuplicateInsertRaceAnswersConflict(t *testing.T) {
	h, mock := newAuthHandler(t)

	// Email check passes, then a concurrent registration wins the
	// insert; the unique index violation must surface as 409
	mock.ExpectQuery(`SELECT .* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "organizations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`INSERT INTO "organizations"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnError(gorm.ErrDuplicatedKey)
	mock.ExpectRollback()
	expectAuditInsert(mock)

	w := postJSON(t, h.Register, "/api/auth/register", RegisterRequest{
		Email:            "raced@example.com",
		Password:         "securepass123",
		Name:             "Jane Doe",
		OrganizationName: "Raced Org",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "Email already registered")
	assert.NotContains(t, w.Body.String(), "token")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRequiresExactlyOneOrganizationField(t *testing.T) {
	h, _ := newAuthHandler(t)

	orgID := uuid.New()

	// Both set
	w := postJSON(t, h.Register, "/api/auth/register", RegisterRequest{
		Email:            "user@example.com",
		Password:         "securepass123",
		Name:             "Jane Doe",
		OrganizationID:   &orgID,
		OrganizationName: "New Org",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Neither set
	w = postJSON(t, h.Register, "/api/auth/register", RegisterRequest{
		Email:    "user@example.com",
		Password: "securepass123",
		Name:     "Jane Doe",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	h, _ := newAuthHandler(t)

	w := postJSON(t, h.Register, "/api/auth/register", RegisterRequest{
		Email:            "user@example.com",
		Password:         "short",
		Name:             "Jane Doe",
		OrganizationName: "New Org",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
