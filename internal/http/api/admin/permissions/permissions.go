// Package permissions lists the access level of every admin route.
package permissions

import "strings"

// Level is the account flag an admin route requires.
type Level string

// Access levels.
const (
	LevelStaff     Level = "staff"
	LevelSuperuser Level = "superuser"
)

// Definition binds an admin route to its level.
type Definition struct {
	Method string
	Path   string
	Level  Level
}

var definitions = []Definition{
	{Method: "POST", Path: "/clear-cache", Level: LevelSuperuser},
	{Method: "POST", Path: "/services/register", Level: LevelSuperuser},
	{Method: "POST", Path: "/routes/register", Level: LevelSuperuser},
	{Method: "GET", Path: "/routes", Level: LevelStaff},
	{Method: "DELETE", Path: "/routes/:id", Level: LevelSuperuser},

	{Method: "POST", Path: "/policies", Level: LevelSuperuser},
	{Method: "GET", Path: "/policies", Level: LevelStaff},
	{Method: "GET", Path: "/policies/:id", Level: LevelStaff},
	{Method: "PUT", Path: "/policies/:id", Level: LevelSuperuser},
	{Method: "DELETE", Path: "/policies/:id", Level: LevelSuperuser},
	{Method: "POST", Path: "/policies/:id/assignments", Level: LevelSuperuser},
	{Method: "DELETE", Path: "/policy-users/:id", Level: LevelSuperuser},
	{Method: "DELETE", Path: "/policy-groups/:id", Level: LevelSuperuser},

	{Method: "POST", Path: "/groups", Level: LevelSuperuser},
	{Method: "DELETE", Path: "/groups/:id", Level: LevelSuperuser},
	{Method: "POST", Path: "/groups/:id/members", Level: LevelSuperuser},
	{Method: "DELETE", Path: "/groups/:id/members/:user_id", Level: LevelSuperuser},

	{Method: "POST", Path: "/row-permissions", Level: LevelSuperuser},
	{Method: "DELETE", Path: "/row-permissions/:id", Level: LevelSuperuser},
	{Method: "POST", Path: "/row-permissions/:id/grants", Level: LevelSuperuser},
	{Method: "DELETE", Path: "/row-permissions/:id/users/:user_id", Level: LevelSuperuser},
	{Method: "DELETE", Path: "/row-permissions/:id/groups/:group_id", Level: LevelSuperuser},
}

// Key returns the lookup key of a method and gin route path.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// DefinitionMap returns the definitions keyed by Key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		out[Key(d.Method, d.Path)] = d
	}
	return out
}

// Allows reports whether an account with the given flags meets level.
// Superusers meet every level.
func (l Level) Allows(isStaff, isSuperuser bool) bool {
	if isSuperuser {
		return true
	}
	return l == LevelStaff && isStaff
}
