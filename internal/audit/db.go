// Package audit persists a durable trail of management-plane mutations and
// proxy connection lifecycle events to a SQLite database — a supplement
// beyond the line-oriented user-database file (internal/userdb), which only
// ever holds current state, not history. Grounded on the teacher's
// internal/database package: golang-migrate-driven schema setup over a
// modernc.org/sqlite (pure-Go, no cgo) connection.
package audit

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the audit SQLite connection. Writes are append-only; there is no
// mutation path back into live proxy state, so no extra locking is needed
// beyond what database/sql already serializes.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the audit database at path and brings its schema up
// to date.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	conn.SetMaxOpenConns(4)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("audit: migration source: %w", err)
	}
	dbDriver, err := sqlite.WithInstance(db.conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("audit: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("audit: migrator: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("audit: migrate up: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Health reports whether the database is reachable, used by the dashboard's
// health endpoint.
func (db *DB) Health() error {
	return db.conn.Ping()
}
