package database

import (
	"database/sql"
	"regexp"
	"strconv"
)

// Dialect is what differs between the client-state backends
type Dialect interface {
	DriverName() string
	DSN(config DialectConfig) string

	// RewriteQuery adapts ? placeholders to the driver
	RewriteQuery(query string) string

	ConfigureConnection(db *sql.DB) error

	// MigrationsSubdir names the migrations/<dialect> directory
	MigrationsSubdir() string
	CreateMigrationsTableQuery() string

	// UpsertStateQuery inserts or replaces a client_state row from
	// (key, value, expires_at, updated_at)
	UpsertStateQuery() string
}

// DialectConfig locates the client-state store: a file for sqlite, a URL otherwise
type DialectConfig struct {
	Path string
	URL  string
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// numberPlaceholders rewrites ? placeholders to $1, $2, ...
func numberPlaceholders(query string) string {
	n := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		n++
		return "$" + strconv.Itoa(n)
	})
}
