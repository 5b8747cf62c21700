package routes

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
)

func testTable(t *testing.T) []Route {
	t.Helper()

	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return apiTable(db, Services{
		Audit:  services.NewAuditService(db),
		Events: services.NewEventService(),
	})
}

func findRoute(t *testing.T, table []Route, method, path string) Route {
	t.Helper()
	for _, route := range table {
		if route.Method == method && route.Path == path {
			return route
		}
	}
	t.Fatalf("route %s %s not in table", method, path)
	return Route{}
}

// Organization mutations must share one policy shape so the table reads
// as the authorization model without cross-referencing service code.
func TestOrganizationMutationPoliciesMatch(t *testing.T) {
	table := testTable(t)

	update := findRoute(t, table, "PATCH", "/organizations/:id")
	remove := findRoute(t, table, "DELETE", "/organizations/:id")

	assert.Equal(t, update.Policy, remove.Policy)
	assert.Equal(t, models.RoleAdmin, remove.Policy.MinRole)
	assert.Equal(t, "id", remove.Policy.TenantParam)
}

func TestOnlyAuthRoutesArePublic(t *testing.T) {
	table := testTable(t)

	public := map[string]bool{
		"/auth/login":                       true,
		"/auth/register":                    true,
		"/organizations/by-api-key/:apiKey": true,
	}
	for _, route := range table {
		assert.Equal(t, public[route.Path], route.Policy.Public,
			"unexpected public flag on %s %s", route.Method, route.Path)
	}
}

func TestPrivilegedRoutesRequireAdmin(t *testing.T) {
	table := testTable(t)

	admin := []struct{ method, path string }{
		{"POST", "/organizations"},
		{"PATCH", "/organizations/:id"},
		{"DELETE", "/organizations/:id"},
		{"PATCH", "/users/:id"},
		{"DELETE", "/users/:id"},
		{"DELETE", "/tasks/:id"},
		{"GET", "/audit-logs"},
		{"GET", "/audit-logs/stats"},
	}
	for _, r := range admin {
		route := findRoute(t, table, r.method, r.path)
		assert.Equal(t, models.RoleAdmin, route.Policy.MinRole, "%s %s", r.method, r.path)
	}

	editor := []struct{ method, path string }{
		{"POST", "/tasks"},
		{"PATCH", "/tasks/:id"},
		{"POST", "/tasks/:id/attachments"},
		{"DELETE", "/tasks/:id/attachments/:filename"},
	}
	for _, r := range editor {
		route := findRoute(t, table, r.method, r.path)
		assert.Equal(t, models.RoleEditor, route.Policy.MinRole, "%s %s", r.method, r.path)
	}
}

func TestTenantGatedOrganizationReads(t *testing.T) {
	table := testTable(t)

	for _, path := range []string{"/organizations/:id", "/organizations/:id/users", "/organizations/:id/children"} {
		route := findRoute(t, table, "GET", path)
		assert.Equal(t, "id", route.Policy.TenantParam, "GET %s", path)
	}
}
