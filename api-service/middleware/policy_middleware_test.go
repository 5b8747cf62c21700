package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/rbac"
)

func runPolicy(t *testing.T, policy Policy, principal *rbac.Principal, params gin.Params) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Params = params
	if principal != nil {
		c.Set(principalKey, principal)
	}

	reached := false
	RequirePolicy(policy, nil)(c)
	if !c.IsAborted() {
		reached = true
	}
	return w, reached
}

func testPrincipal(role models.Role) *rbac.Principal {
	return &rbac.Principal{
		ID:             uuid.New(),
		Email:          "user@example.com",
		OrganizationID: uuid.New(),
		Role:           role,
	}
}

func TestRequirePolicyNoPrincipal(t *testing.T) {
	w, reached := runPolicy(t, Policy{}, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, reached)
}

func TestRequirePolicyRoleThreshold(t *testing.T) {
	policy := Policy{MinRole: models.RoleAdmin}

	w, reached := runPolicy(t, policy, testPrincipal(models.RoleEditor), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)

	_, reached = runPolicy(t, policy, testPrincipal(models.RoleAdmin), nil)
	assert.True(t, reached)

	_, reached = runPolicy(t, policy, testPrincipal(models.RoleOwner), nil)
	assert.True(t, reached)
}

func TestRequirePolicyEmptyRoleAdmitsAnyPrincipal(t *testing.T) {
	_, reached := runPolicy(t, Policy{}, testPrincipal(models.RoleViewer), nil)
	assert.True(t, reached)
}

func TestRequirePolicyTenantParam(t *testing.T) {
	policy := Policy{TenantParam: "id"}
	p := testPrincipal(models.RoleViewer)

	// Own organization passes
	_, reached := runPolicy(t, policy, p, gin.Params{{Key: "id", Value: p.OrganizationID.String()}})
	assert.True(t, reached)

	// Foreign organization is denied for a non-admin
	w, reached := runPolicy(t, policy, p, gin.Params{{Key: "id", Value: uuid.New().String()}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)

	// Admins cross tenant boundaries
	_, reached = runPolicy(t, policy, testPrincipal(models.RoleAdmin), gin.Params{{Key: "id", Value: uuid.New().String()}})
	assert.True(t, reached)
}

func TestRequirePolicyTenantParamMalformed(t *testing.T) {
	w, reached := runPolicy(t, Policy{TenantParam: "id"}, testPrincipal(models.RoleOwner),
		gin.Params{{Key: "id", Value: "not-a-uuid"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, reached)
}

func runPolicyWithAudit(t *testing.T, policy Policy, principal *rbac.Principal, audit *services.AuditService) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("DELETE", "/api/tasks/123", nil)
	if principal != nil {
		c.Set(principalKey, principal)
	}

	RequirePolicy(policy, audit)(c)
	return w
}

func TestRequirePolicyRoleDenialIsAudited(t *testing.T) {
	db, mock := newAuthTestDB(t)
	audit := services.NewAuditService(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	w := runPolicyWithAudit(t, Policy{MinRole: models.RoleAdmin}, testPrincipal(models.RoleViewer), audit)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequirePolicyMissingPrincipalIsAudited(t *testing.T) {
	db, mock := newAuthTestDB(t)
	audit := services.NewAuditService(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "audit_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectCommit()

	w := runPolicyWithAudit(t, Policy{}, nil, audit)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequirePolicyGrantWritesNoAudit(t *testing.T) {
	db, mock := newAuthTestDB(t)
	audit := services.NewAuditService(db)

	w := runPolicyWithAudit(t, Policy{MinRole: models.RoleEditor}, testPrincipal(models.RoleAdmin), audit)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
