package sqldb

import (
	"errors"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures what differs between the supported SQL backends. Queries
// are written once with PostgreSQL $N placeholders and rebound per dialect.
type dialect struct {
	driverName        string
	gooseDialect      string
	migrationsDir     string
	rebind            func(query string) string
	isUniqueViolation func(err error) bool
}

const pgUniqueViolation = "23505"

var postgresDialect = dialect{
	driverName:    "pgx",
	gooseDialect:  "postgres",
	migrationsDir: "postgres",
	rebind:        func(query string) string { return query },
	isUniqueViolation: func(err error) bool {
		var pgErr *pgconn.PgError
		return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
	},
}

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

var sqliteDialect = dialect{
	driverName:    "sqlite",
	gooseDialect:  "sqlite3",
	migrationsDir: "sqlite",
	rebind: func(query string) string {
		return placeholderPattern.ReplaceAllString(query, `?$1`)
	},
	isUniqueViolation: func(err error) bool {
		var liteErr *sqlite.Error
		if !errors.As(err, &liteErr) {
			return false
		}
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		default:
			return false
		}
	},
}
