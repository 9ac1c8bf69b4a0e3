package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shamsaravaiah/receiptdrop/constants"
	"github.com/shamsaravaiah/receiptdrop/internal/entity"
	"github.com/shamsaravaiah/receiptdrop/internal/repository"
)

// FileProcessor runs one file through the full extraction pipeline.
type FileProcessor interface {
	Process(ctx context.Context, r io.Reader, filename, userID, userDirectory string) (*entity.MetadataRecord, error)
}

// FSIngestor reads from the local filesystem and feeds files through the
// pipeline, persisting the resulting records.
type FSIngestor struct {
	proc   FileProcessor
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewFSIngestor(proc FileProcessor, docs repository.DocumentRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{proc: proc, docs: docs, logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, userID, userDirectory, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension: %q", ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rec, err := i.proc.Process(ctx, f, filepath.Base(abs), userID, userDirectory)
	if err != nil {
		return out, err
	}
	if rec == nil {
		out.Skipped = true
		return out, nil
	}

	if err := i.docs.Insert(ctx, rec); err != nil {
		return out, fmt.Errorf("save metadata: %w", err)
	}
	out.RecordID = rec.ID.String()
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each matching file. Returns per-file results + aggregate stats.
func (i *FSIngestor) IngestDirectory(
	ctx context.Context,
	userID, userDirectory, root string,
	skipHidden bool,
) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if !AllowedExt(ext) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, userID, userDirectory, path)
		if err != nil {
			i.logger.Error("ingest.path_failed", "path", path, "error", err)
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}

		results = append(results, r)
		if r.Skipped {
			stats.Skipped++
		} else {
			stats.Ingested++
		}
		return nil
	})

	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
