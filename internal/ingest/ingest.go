package ingest

import "context"

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath string
	RecordID   string
	Skipped    bool
	Err        string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned  uint32
	Matched  uint32
	Ingested uint32
	Skipped  uint32
	Failed   uint32
}

// Ingestor is the behavior the batch and watch commands depend on.
type Ingestor interface {
	// IngestPath ingests a single local file.
	IngestPath(ctx context.Context, userID, userDirectory, path string) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, userID, userDirectory, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
