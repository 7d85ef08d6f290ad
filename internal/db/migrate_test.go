package db

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestMigrateSQLiteCreatesTables(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{
		"users", "groups", "user_groups", "routes", "kong_services",
		"permission_policies", "policy_actions", "policy_users", "policy_groups",
		"row_permissions", "mfa_methods", "mfa_tokens", "mfa_codes", "auth_tokens", "login_audits",
	} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, errOpen := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	for i := 0; i < 2; i++ {
		if errMigrate := Migrate(conn); errMigrate != nil {
			t.Fatalf("migrate pass %d: %v", i, errMigrate)
		}
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/auth":  DialectPostgres,
		"host=localhost dbname=auth user=u":   DialectPostgres,
		"file:./data/auth.db":                 DialectSQLite,
		"./auth.db":                           DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := detectDialectFromDSN(dsn)
		if err != nil {
			t.Fatalf("detect %q: %v", dsn, err)
		}
		if got != want {
			t.Fatalf("expected %s for %q, got %s", want, dsn, got)
		}
	}
	if _, err := detectDialectFromDSN("mysql://localhost/auth"); err == nil {
		t.Fatalf("expected mysql dsn to be rejected")
	}
}

func TestSQLitePath(t *testing.T) {
	if got := sqlitePath("file:./data/auth.db?_busy_timeout=5000"); got != "./data/auth.db" {
		t.Fatalf("expected ./data/auth.db, got %q", got)
	}
	if got := sqlitePath("file::memory:?cache=shared"); got != "" {
		t.Fatalf("expected empty path for memory dsn, got %q", got)
	}
}
