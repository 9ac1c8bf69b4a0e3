package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

type Config struct {
	Path        string
	DialTimeout time.Duration
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
	id                 TEXT PRIMARY KEY,
	job_id             TEXT NOT NULL,
	user_id            TEXT NOT NULL,
	user_directory     TEXT NOT NULL,
	original_blob_name TEXT NOT NULL,
	ingested_path      TEXT NOT NULL,
	original_filename  TEXT NOT NULL,
	ingested_at        TIMESTAMP NOT NULL,
	status             TEXT NOT NULL,
	vendor             TEXT NOT NULL,
	product_or_service TEXT NOT NULL,
	price              REAL NOT NULL,
	tags_degraded      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_documents_blob_name ON documents(original_blob_name);
CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id);
`

// Open opens the sqlite document store and applies the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*sql.DB, error) {
	logger.Info("opening document store", "path", cfg.Path)
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		logger.Error("failed to open document store", "error", err)
		return nil, err
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping document store", "error", err)
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		logger.Error("failed to apply document store schema", "error", err)
		_ = db.Close()
		return nil, err
	}

	logger.Info("document store ready")
	return db, nil
}

// Close closes the document store gracefully
func Close(db *sql.DB, logger *slog.Logger) {
	logger.Info("closing document store")
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close document store", "error", err)
		}
	}
}

// HealthCheck pings the store to catch path/locking issues early.
func HealthCheck(ctx context.Context, db *sql.DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging document store")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.PingContext(ctx)
}
