package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a schema migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations lists every schema change in order. The local store only holds
// the client's own bookkeeping: the transition audit trail and the last-seen
// loan snapshots; the remote service stays the writer of record for loans.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_loan_history",
		SQL: `
			CREATE TABLE IF NOT EXISTS loan_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				loan_id TEXT NOT NULL,
				previous_status TEXT NOT NULL,
				new_status TEXT NOT NULL,
				action TEXT NOT NULL,
				actor TEXT,
				notes TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_loan_history_loan_id ON loan_history(loan_id);
		`,
	},
	{
		Version: 2,
		Name:    "create_loan_snapshots",
		SQL: `
			CREATE TABLE IF NOT EXISTS loan_snapshots (
				loan_id TEXT PRIMARY KEY,
				status TEXT NOT NULL,
				stage TEXT NOT NULL,
				amount REAL NOT NULL DEFAULT 0,
				stage_entered_at DATETIME,
				payload TEXT NOT NULL,
				refreshed_at DATETIME DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_loan_snapshots_status ON loan_snapshots(status);
		`,
	},
}

// Migrator applies pending schema migrations
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a new migrator
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// RunMigrations applies every migration not yet recorded in schema_migrations
func (m *Migrator) RunMigrations() error {
	if err := m.createMigrationsTable(); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.getAppliedVersions()
	if err != nil {
		return fmt.Errorf("failed to read applied migrations: %w", err)
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}

		err := m.db.WithTransaction(func(tx *sql.Tx) error {
			if _, err := tx.Exec(migration.SQL); err != nil {
				return fmt.Errorf("migration %d (%s) failed: %w", migration.Version, migration.Name, err)
			}
			if _, err := tx.Exec(
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				migration.Version, migration.Name,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		m.logger.Info("Migration applied",
			zap.Int("version", migration.Version),
			zap.String("name", migration.Name))
	}

	return nil
}

func (m *Migrator) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`
	_, err := m.db.Exec(query)
	return err
}

func (m *Migrator) getAppliedVersions() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
