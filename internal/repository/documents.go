package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shamsaravaiah/receiptdrop/constants"
	"github.com/shamsaravaiah/receiptdrop/internal/entity"
)

// DocumentRepository persists and queries metadata records. ExistsBySourcePath
// is the dedup gate: it answers whether any record references the given raw
// artifact storage path.
type DocumentRepository interface {
	Insert(ctx context.Context, rec *entity.MetadataRecord) error
	ExistsBySourcePath(ctx context.Context, sourcePath string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.MetadataRecord, error)
}

type documentRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentRepository(db *sql.DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

func (r *documentRepo) Insert(ctx context.Context, rec *entity.MetadataRecord) error {
	degraded := 0
	if rec.TagsDegraded {
		degraded = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (
			id, job_id, user_id, user_directory, original_blob_name,
			ingested_path, original_filename, ingested_at, status,
			vendor, product_or_service, price, tags_degraded
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.JobID.String(), rec.UserID, rec.UserDirectory, rec.SourcePath,
		rec.IngestedURL, rec.OriginalFilename, rec.IngestedAt.UTC(), string(rec.Status),
		rec.Tags.Vendor, rec.Tags.ProductOrService, rec.Tags.Price, degraded,
	)
	if err != nil {
		r.logger.Error("failed to insert document", "source_path", rec.SourcePath, "error", err)
		return err
	}
	return nil
}

func (r *documentRepo) ExistsBySourcePath(ctx context.Context, sourcePath string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM documents WHERE original_blob_name = ?`, sourcePath,
	).Scan(&n)
	if err != nil {
		r.logger.Error("dedup lookup failed", "source_path", sourcePath, "error", err)
		return false, err
	}
	return n > 0, nil
}

func (r *documentRepo) ListByUser(ctx context.Context, userID string) ([]*entity.MetadataRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, job_id, user_id, user_directory, original_blob_name,
		       ingested_path, original_filename, ingested_at, status,
		       vendor, product_or_service, price, tags_degraded
		FROM documents
		WHERE user_id = ?
		ORDER BY ingested_at DESC`, userID)
	if err != nil {
		r.logger.Error("failed to list documents", "user_id", userID, "error", err)
		return nil, err
	}
	defer rows.Close()

	var result []*entity.MetadataRecord
	for rows.Next() {
		var (
			rec               entity.MetadataRecord
			id, jobID, status string
			ingestedAt        time.Time
			degraded          int
		)
		if err := rows.Scan(
			&id, &jobID, &rec.UserID, &rec.UserDirectory, &rec.SourcePath,
			&rec.IngestedURL, &rec.OriginalFilename, &ingestedAt, &status,
			&rec.Tags.Vendor, &rec.Tags.ProductOrService, &rec.Tags.Price, &degraded,
		); err != nil {
			return nil, err
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if rec.JobID, err = uuid.Parse(jobID); err != nil {
			return nil, err
		}
		rec.IngestedAt = ingestedAt.UTC()
		rec.Status = constants.DocStatus(status)
		rec.TagsDegraded = degraded != 0
		result = append(result, &rec)
	}
	return result, rows.Err()
}
