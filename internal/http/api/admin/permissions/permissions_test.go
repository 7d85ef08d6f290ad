package permissions

import "testing"

func TestDefinitionMapIncludesRegistryWrites(t *testing.T) {
	t.Parallel()

	requiredKeys := []string{
		"POST /clear-cache",
		"POST /services/register",
		"POST /routes/register",
		"DELETE /routes/:id",
		"POST /policies",
		"PUT /policies/:id",
		"POST /policies/:id/assignments",
		"POST /groups/:id/members",
		"POST /row-permissions/:id/grants",
	}
	definitionMap := DefinitionMap()
	for _, key := range requiredKeys {
		d, ok := definitionMap[key]
		if !ok {
			t.Fatalf("DefinitionMap() missing permission key %q", key)
		}
		if d.Level != LevelSuperuser {
			t.Fatalf("expected %q to require superuser, got %s", key, d.Level)
		}
	}
}

func TestDefinitionMapRouteListIsStaff(t *testing.T) {
	t.Parallel()

	if d := DefinitionMap()[Key("get", "/routes")]; d.Level != LevelStaff {
		t.Fatalf("expected GET /routes to require staff, got %q", d.Level)
	}
}

func TestLevelAllows(t *testing.T) {
	t.Parallel()

	cases := []struct {
		level       Level
		staff, root bool
		want        bool
	}{
		{LevelStaff, true, false, true},
		{LevelStaff, false, false, false},
		{LevelStaff, false, true, true},
		{LevelSuperuser, true, false, false},
		{LevelSuperuser, false, true, true},
	}
	for _, tc := range cases {
		if got := tc.level.Allows(tc.staff, tc.root); got != tc.want {
			t.Fatalf("%s.Allows(staff=%v, superuser=%v) = %v, want %v", tc.level, tc.staff, tc.root, got, tc.want)
		}
	}
}
