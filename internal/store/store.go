// ABOUTME: Core SQLite store for the teamhub server.
// ABOUTME: Handles database initialization, migrations and connection management for request and fetch logs.

package store

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Migration version constants
const (
	MigrationV1 = 1 // request_logs table
	MigrationV2 = 2 // composite indexes for area and viewer filtering
	MigrationV3 = 3 // permission_fetches table
)

// CurrentSchemaVersion is the target version for the database schema
const CurrentSchemaVersion = MigrationV3

type Store struct {
	db  *sql.DB
	log *logrus.Logger
}

// New opens the database at dbPath and applies pending migrations.
// A nil logger falls back to logrus.New().
func New(dbPath string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.New()
	}

	// Connection parameters apply to every pooled connection, not just the first
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	dsn := dbPath + sep + "_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL"

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration
func (s *Store) SchemaVersion() (int, error) {
	return s.getCurrentMigrationVersion()
}

type migration struct {
	version     int
	description string
	statements  []string
}

var migrations = []migration{
	{
		version:     MigrationV1,
		description: "Create request_logs table and indexes",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS request_logs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				request_id TEXT NOT NULL DEFAULT '',
				area TEXT NOT NULL DEFAULT 'unknown',
				server_id TEXT NOT NULL DEFAULT '',
				method TEXT NOT NULL,
				path TEXT NOT NULL,
				status_code INTEGER,
				duration_ms INTEGER,
				viewer TEXT NOT NULL DEFAULT '',
				ip_address TEXT,
				user_agent TEXT,
				error TEXT
			)`,
			"CREATE INDEX IF NOT EXISTS idx_request_logs_timestamp ON request_logs(timestamp DESC)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_path ON request_logs(path)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_status ON request_logs(status_code)",
		},
	},
	{
		version:     MigrationV2,
		description: "Add composite indexes for area and viewer filtering",
		statements: []string{
			"CREATE INDEX IF NOT EXISTS idx_request_logs_area_timestamp ON request_logs(area, timestamp DESC)",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_server ON request_logs(server_id, timestamp DESC) WHERE server_id != ''",
			"CREATE INDEX IF NOT EXISTS idx_request_logs_viewer ON request_logs(viewer) WHERE viewer != ''",
		},
	},
	{
		version:     MigrationV3,
		description: "Create permission_fetches table",
		statements: []string{`
			CREATE TABLE IF NOT EXISTS permission_fetches (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				server_id TEXT NOT NULL,
				viewer TEXT NOT NULL DEFAULT '',
				generation INTEGER NOT NULL,
				outcome TEXT NOT NULL,
				stale INTEGER NOT NULL DEFAULT 0,
				duration_ms INTEGER
			)`,
			"CREATE INDEX IF NOT EXISTS idx_permission_fetches_server ON permission_fetches(server_id, timestamp DESC)",
		},
	},
}

// migrate runs all pending migrations in order
func (s *Store) migrate() error {
	if err := s.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := s.getCurrentMigrationVersion()
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}
	s.log.WithFields(logrus.Fields{"current": current, "target": CurrentSchemaVersion}).Debug("database schema version")

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return fmt.Errorf("migration v%d failed: %w", m.version, err)
		}
		s.log.Infof("Applied migration v%d: %s", m.version, m.description)
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, m.version, m.description); err != nil {
		return err
	}
	return tx.Commit()
}

// createMigrationsTable creates the schema_migrations tracking table
func (s *Store) createMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			description TEXT
		)
	`)
	return err
}

func (s *Store) getCurrentMigrationVersion() (int, error) {
	var version int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}
