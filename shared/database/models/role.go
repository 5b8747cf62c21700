package models

// Role is the closed set of roles a user can hold. Roles form a total
// order: VIEWER < EDITOR < ADMIN < OWNER. All privilege checks compare
// ranks through AtLeast rather than string equality, so a higher role
// always implies the permissions of the roles below it.
type Role string

const (
	RoleViewer Role = "VIEWER"
	RoleEditor Role = "EDITOR"
	RoleAdmin  Role = "ADMIN"
	RoleOwner  Role = "OWNER"
)

var roleRanks = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Valid reports whether r is a member of the closed role set
func (r Role) Valid() bool {
	_, ok := roleRanks[r]
	return ok
}

// Rank returns the privilege rank of r. Unknown roles rank 0, below
// every valid role, so comparisons against them fail closed.
func (r Role) Rank() int {
	return roleRanks[r]
}

// AtLeast reports whether r is at least as privileged as min
func (r Role) AtLeast(min Role) bool {
	return r.Rank() >= min.Rank() && min.Rank() > 0
}

// CrossesTenants reports whether r may read and write resources outside
// its own organization. Only ADMIN and OWNER cross tenant boundaries.
func (r Role) CrossesTenants() bool {
	return r.AtLeast(RoleAdmin)
}
