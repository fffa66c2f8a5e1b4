package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_originals",
		SQL: `CREATE TABLE IF NOT EXISTS originals (
  id           UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  account_id   TEXT        NOT NULL,
  content_hash TEXT        NOT NULL,
  title        TEXT        NOT NULL,
  description  TEXT        NOT NULL,
  status       TEXT        NOT NULL DEFAULT 'active',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (account_id, content_hash)
);`,
	},
	{
		Name: "create_table_original_images",
		SQL: `CREATE TABLE IF NOT EXISTS original_images (
  original_id  UUID   NOT NULL REFERENCES originals (id) ON DELETE CASCADE,
  sha256       TEXT   NOT NULL,
  storage_path TEXT   NOT NULL,
  size         BIGINT NOT NULL CHECK (size >= 0),
  position     INT    NOT NULL,
  PRIMARY KEY (original_id, position)
);`,
	},
	{
		Name: "create_table_text_variants",
		SQL: `CREATE TABLE IF NOT EXISTS text_variants (
  id          BIGSERIAL   PRIMARY KEY,
  account_id  TEXT        NOT NULL,
  original_id UUID        NOT NULL,
  kind        TEXT        NOT NULL,
  text        TEXT        NOT NULL,
  strategy    TEXT        NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_unique_index_text_variants",
		SQL: `CREATE UNIQUE INDEX IF NOT EXISTS uq_text_variants_account_text
  ON text_variants (account_id, original_id, kind, md5(text));`,
	},
	{
		Name: "create_table_image_derivatives",
		SQL: `CREATE TABLE IF NOT EXISTS image_derivatives (
  id            BIGSERIAL        PRIMARY KEY,
  account_id    TEXT             NOT NULL,
  source_sha256 TEXT             NOT NULL,
  width         INT              NOT NULL CHECK (width > 0),
  height        INT              NOT NULL CHECK (height > 0),
  quality       INT              NOT NULL,
  transform     JSONB            NOT NULL,
  created_at    TIMESTAMPTZ      NOT NULL DEFAULT now(),
  UNIQUE (account_id, source_sha256, width, height, quality)
);`,
	},
	{
		Name: "create_index_originals_account_title",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_originals_account ON originals (account_id, created_at);`,
	},
	{
		Name: "create_index_text_variants_account",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_text_variants_account ON text_variants (account_id, original_id, kind);`,
	},
	{
		Name: "create_index_image_derivatives_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_image_derivatives_created_at ON image_derivatives (created_at);`,
	},
}

// EnsureMigrated checks if the 'originals' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.originals') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
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
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
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

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
