// Package permission classifies requests into roles and resolves whether a
// user holds them.
package permission

import "github.com/Murabei-OpenSource-Codes/pumpwood-djangoauth-sub000/internal/models"

// Role is the normalized capability a request requires.
type Role string

// Roles produced by the classifier.
const (
	RoleAllowAny        Role = "allow_any"
	RoleIsAuthenticated Role = "is_authenticated"
	RoleIsStaff         Role = "is_staff"

	RoleCanList           Role = "can_list"
	RoleCanListWithoutPag Role = "can_list_without_pag"
	RoleCanRetrieve       Role = "can_retrieve"
	RoleCanRetrieveFile   Role = "can_retrieve_file"
	RoleCanDelete         Role = "can_delete"
	RoleCanDeleteMany     Role = "can_delete_many"
	RoleCanDeleteFile     Role = "can_delete_file"
	RoleCanSave           Role = "can_save"
	RoleCanRunActions     Role = "can_run_actions"
)

// Capability reports whether r is resolved through policy assignments.
func (r Role) Capability() bool {
	switch r {
	case RoleCanList, RoleCanListWithoutPag, RoleCanRetrieve, RoleCanRetrieveFile,
		RoleCanDelete, RoleCanDeleteMany, RoleCanDeleteFile, RoleCanSave, RoleCanRunActions:
		return true
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Capability() || r == RoleAllowAny || r == RoleIsAuthenticated || r == RoleIsStaff
}

// read reports whether a read general policy grants r.
func (r Role) read() bool {
	switch r {
	case RoleCanList, RoleCanListWithoutPag, RoleCanRetrieve, RoleCanRetrieveFile:
		return true
	}
	return false
}

// policyValue returns the decision a policy stores for r.
func (r Role) policyValue(p models.PermissionPolicy) models.PolicyValue {
	switch r {
	case RoleCanList:
		return p.CanList
	case RoleCanListWithoutPag:
		return p.CanListWithoutPag
	case RoleCanRetrieve:
		return p.CanRetrieve
	case RoleCanRetrieveFile:
		return p.CanRetrieveFile
	case RoleCanDelete:
		return p.CanDelete
	case RoleCanDeleteMany:
		return p.CanDeleteMany
	case RoleCanDeleteFile:
		return p.CanDeleteFile
	case RoleCanSave:
		return p.CanSave
	case RoleCanRunActions:
		return p.CanRunActions
	}
	return models.PolicyNoChange
}

// Decision is the outcome of one policy assignment for one capability.
type Decision int

// Decisions. NoChange defers to the next assignment in priority order.
const (
	NoChange Decision = iota
	Allow
	Deny
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "no_change"
	}
}

func decisionOf(v models.PolicyValue) Decision {
	switch v {
	case models.PolicyAllow:
		return Allow
	case models.PolicyDeny:
		return Deny
	default:
		return NoChange
	}
}
