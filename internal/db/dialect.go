package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Dialect identifiers supported by the database layer.
const (
	// DialectPostgres is the PostgreSQL dialect name.
	DialectPostgres = "postgres"
	// DialectSQLite is the SQLite dialect name.
	DialectSQLite = "sqlite"
)

// IsSQLite reports whether the connection uses SQLite.
func IsSQLite(conn *gorm.DB) bool {
	if conn == nil || conn.Dialector == nil {
		return false
	}
	return conn.Dialector.Name() == DialectSQLite
}

// CaseInsensitiveLike returns a case-insensitive LIKE condition and its pattern
// for the current dialect.
func CaseInsensitiveLike(conn *gorm.DB, column, value string) (string, string) {
	pattern := "%" + value + "%"
	if IsSQLite(conn) {
		return fmt.Sprintf("LOWER(%s) LIKE ?", column), strings.ToLower(pattern)
	}
	return fmt.Sprintf("%s ILIKE ?", column), pattern
}
