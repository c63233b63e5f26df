package db

import (
	"context"
	"database/sql"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Open connects to the sqlite database at path (or any file: DSN) and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	instance, err := sql.Open("sqlite", formatDSN(path))
	if err != nil {
		log.Error().Err(err).Msg("failed to open database")
		return nil, err
	}

	if err := instance.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("failed to ping database")
		return nil, err
	}

	log.Debug().Msg("database connection successful")

	if err := migrate(ctx, instance); err != nil {
		log.Error().Err(err).Msg("failed to run migrations")
		return nil, err
	}
	log.Info().Msg("migrations completed successfully")

	return instance, nil
}

func formatDSN(path string) string {
	if path == "" {
		path = "shrtnr.db"
	}

	// Already a DSN, e.g. the in-memory database used in tests.
	if u, err := url.Parse(path); err == nil && u.Scheme == "file" && u.RawQuery != "" {
		return path
	}
	path = strings.TrimPrefix(path, "file:")

	// Add pragmas for better performance and safety
	// See: https://pkg.go.dev/modernc.org/sqlite#pkg-overview
	params := url.Values{}
	params.Set("cache", "shared")
	params.Set("mode", "rwc")
	params.Set("_time_format", "sqlite")
	params.Set("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_busy_timeout", "5000")

	return "file:" + path + "?" + params.Encode()
}

func migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS links (
		code TEXT PRIMARY KEY NOT NULL,
		redirect_to TEXT NOT NULL,
		default_parameter TEXT,
		clicks INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT,
		deleted_at TEXT
	);

	CREATE TABLE IF NOT EXISTS clicks (
		id TEXT PRIMARY KEY NOT NULL,
		link_id TEXT NOT NULL,
		clicked_at TEXT NOT NULL,
		client_ip TEXT,
		referer TEXT,
		user_agent TEXT,
		source TEXT,
		medium TEXT,
		campaign TEXT,
		term TEXT,
		content TEXT,
		FOREIGN KEY(link_id) REFERENCES links(code)
	);

	CREATE INDEX IF NOT EXISTS idx_links_deleted_at ON links(deleted_at);
	CREATE INDEX IF NOT EXISTS idx_clicks_link_id ON clicks(link_id);
	CREATE INDEX IF NOT EXISTS idx_clicks_clicked_at ON clicks(clicked_at);
	`

	_, err := db.ExecContext(ctx, schema)
	return err
}
