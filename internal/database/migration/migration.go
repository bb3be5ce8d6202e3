package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"docvault/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created last, so its presence means every step has run.
const sentinelTable = "public.document_history"

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id                  TEXT        PRIMARY KEY,
  title               TEXT        NOT NULL,
  original_blob_key   TEXT        NOT NULL,
  current_blob_key    TEXT        NOT NULL,
  current_edit_number INTEGER     NOT NULL CHECK (current_edit_number >= 1),
  created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_modified       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_last_modified",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_last_modified ON documents (last_modified);`,
	},
	{
		Name: "create_table_document_history",
		SQL: `CREATE TABLE IF NOT EXISTS document_history (
  document_id        TEXT        NOT NULL,
  edit_number        INTEGER     NOT NULL CHECK (edit_number >= 1),
  blob_key           TEXT        NOT NULL,
  edited_at          TIMESTAMPTZ NOT NULL,
  edited_by          TEXT        NOT NULL,
  change_description TEXT        NOT NULL,
  PRIMARY KEY (document_id, edit_number)
);`,
	},
}

// EnsureMigrated checks whether the schema exists and runs the migration steps if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *logger.Logger, dbHost string) error {
	start := time.Now()

	log.Log(map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass($1) IS NOT NULL"
	if err := db.QueryRowContext(ctx, query, sentinelTable).Scan(&exists); err != nil {
		log.Log(map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Log(map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Log(map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Log(map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	log.Log(map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}
