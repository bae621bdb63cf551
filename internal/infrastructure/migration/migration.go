package migration

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Migration represents a database migration. Statements must be safe to run
// again on a database that already has them applied.
type Migration struct {
	Name string
	Up   func(ctx context.Context, db *sql.DB) error
}

// Migrations lists the schema changes in the order they are applied.
var Migrations = []Migration{
	{Name: "create_submissions_table", Up: createSubmissionsTable},
	{Name: "add_submissions_status_index", Up: addSubmissionsStatusIndex},
}

// RunMigrations executes all migrations in order and stops at the first
// failure.
func RunMigrations(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("starting database migrations", zap.Int("count", len(Migrations)))

	for _, m := range Migrations {
		if err := m.Up(ctx, db); err != nil {
			logger.Error("migration failed", zap.String("name", m.Name), zap.Error(err))
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		logger.Info("migration completed", zap.String("name", m.Name))
	}

	logger.Info("all migrations completed successfully")
	return nil
}

func createSubmissionsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS submissions (
			id                UUID PRIMARY KEY,
			full_name         TEXT NOT NULL,
			email             TEXT NOT NULL,
			phone             TEXT NOT NULL DEFAULT '',
			position          TEXT NOT NULL,
			job_description   TEXT NOT NULL,
			cover_letter      TEXT NOT NULL DEFAULT '',
			portfolio_url     TEXT NOT NULL DEFAULT '',
			answers           JSONB NOT NULL DEFAULT '{}'::jsonb,
			doc_original_name TEXT NOT NULL DEFAULT '',
			doc_stored_key    TEXT NOT NULL DEFAULT '',
			doc_mime_type     TEXT NOT NULL DEFAULT '',
			doc_size          BIGINT NOT NULL DEFAULT 0,
			doc_page_count    INTEGER NOT NULL DEFAULT 0,
			status            TEXT NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
			pdf_key           TEXT NOT NULL DEFAULT '',
			failure_reason    TEXT NOT NULL DEFAULT '',
			attempts          INTEGER NOT NULL DEFAULT 0,
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

func addSubmissionsStatusIndex(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS submissions_status_created_idx
		ON submissions (status, created_at);
	`)
	return err
}
