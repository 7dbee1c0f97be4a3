// Package storage implements the activity record store and the user directory
// on top of database/sql. SQLite is the default; PostgreSQL is used when the
// hook runs next to a production issue tracker database.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB wraps a database connection together with its SQL dialect
type DB struct {
	*sql.DB
	driver string
}

// Open creates a new database connection for the given driver
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// One connection keeps pragmas and :memory: databases consistent.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	return &DB{DB: db, driver: driver}, nil
}

// Driver returns the dialect in use
func (db *DB) Driver() string {
	return db.driver
}

// Migrate creates the tables used by the hook if they do not exist yet
func (db *DB) Migrate(ctx context.Context) error {
	ddl := sqliteSchema
	if db.driver == DriverPostgres {
		ddl = postgresSchema
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's form
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY,
    login TEXT NOT NULL,
    mail TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_mail ON users(lower(mail));

CREATE TABLE IF NOT EXISTS git_histories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    issue_id INTEGER,
    user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
    notes TEXT NOT NULL,
    created_on TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_git_histories_issue_id ON git_histories(issue_id);
CREATE INDEX IF NOT EXISTS idx_git_histories_user_id ON git_histories(user_id);
CREATE INDEX IF NOT EXISTS idx_git_histories_created_on ON git_histories(created_on);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    login TEXT NOT NULL,
    mail TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_mail ON users (lower(mail));

CREATE TABLE IF NOT EXISTS git_histories (
    id BIGSERIAL PRIMARY KEY,
    issue_id BIGINT,
    user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
    notes TEXT NOT NULL,
    created_on TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_git_histories_issue_id ON git_histories (issue_id);
CREATE INDEX IF NOT EXISTS idx_git_histories_user_id ON git_histories (user_id);
CREATE INDEX IF NOT EXISTS idx_git_histories_created_on ON git_histories (created_on);
`
