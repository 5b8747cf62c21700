// Package rbac is the authorization decision point. Both predicates are
// pure functions of the principal and the target, with no I/O, so every
// role and tenant combination can be tested exhaustively.
//
// Call sites translate a false result to 403 Forbidden; the absence of a
// principal entirely is 401 Unauthorized.
package rbac

import (
	"github.com/google/uuid"

	"taskmaster-backend/shared/database/models"
)

// Principal is the authenticated actor attached to one request. It
// carries exactly one active organization context even if the user holds
// memberships elsewhere.
type Principal struct {
	ID             uuid.UUID
	Email          string
	Name           string
	OrganizationID uuid.UUID
	Role           models.Role
}

// Authorize reports whether p satisfies the minimum role threshold.
// An empty minRole means the endpoint is open to any authenticated
// principal. Roles compare by rank, so OWNER implicitly passes every
// ADMIN gate.
func Authorize(p *Principal, minRole models.Role) bool {
	if p == nil {
		return false
	}
	if minRole == "" {
		return true
	}
	return p.Role.AtLeast(minRole)
}

// AuthorizeTenant reports whether p may act on resources belonging to
// targetOrganizationID. Principals are confined to their own
// organization unless their role crosses tenant boundaries.
func AuthorizeTenant(p *Principal, targetOrganizationID uuid.UUID) bool {
	if p == nil {
		return false
	}
	if p.OrganizationID == targetOrganizationID {
		return true
	}
	return p.Role.CrossesTenants()
}
