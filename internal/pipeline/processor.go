package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shamsaravaiah/receiptdrop/constants"
	"github.com/shamsaravaiah/receiptdrop/internal/entity"
	"github.com/shamsaravaiah/receiptdrop/internal/ocr"
	"github.com/shamsaravaiah/receiptdrop/internal/repository"
	"github.com/shamsaravaiah/receiptdrop/internal/storage"
)

// TextExtractor yields raw OCR text for uploaded bytes.
type TextExtractor interface {
	ExtractBytes(ctx context.Context, data []byte, ext string) (string, error)
}

// TagExtractor yields a TagSet for normalized text. The second return reports
// whether the result is the degraded fallback; it is never an error.
type TagExtractor interface {
	Extract(ctx context.Context, normalizedText string) (entity.TagSet, bool)
}

// Processor sequences one upload end to end: store raw bytes, dedup check,
// OCR, normalize, extract tags, assemble the metadata record. The caller owns
// persisting the returned record.
type Processor struct {
	logger *slog.Logger
	blobs  storage.BlobStore
	docs   repository.DocumentRepository
	texts  TextExtractor
	tagger TagExtractor

	now   func() time.Time
	token func() string
}

func NewProcessor(
	logger *slog.Logger,
	blobs storage.BlobStore,
	docs repository.DocumentRepository,
	texts TextExtractor,
	tagger TagExtractor,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger: logger,
		blobs:  blobs,
		docs:   docs,
		texts:  texts,
		tagger: tagger,
		now:    time.Now,
		token:  randomToken,
	}
}

func randomToken() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Process runs the pipeline for a single uploaded file. It returns (nil, nil)
// for an unsupported extension or an already-processed storage path; storage
// and OCR errors propagate, extraction failures never do.
func (p *Processor) Process(ctx context.Context, r io.Reader, filename, userID, userDirectory string) (*entity.MetadataRecord, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !constants.IsAllowedExt(ext) {
		p.logger.Info("pipeline.skip.unsupported", "filename", filename, "ext", ext)
		return nil, nil
	}

	sourcePath := fmt.Sprintf("rawdrop/%s/%d_%s%s", userDirectory, p.now().Unix(), p.token(), ext)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	// The raw artifact is kept even when the upload later turns out to be a
	// duplicate: the generated path, not the content, is the dedup key.
	locator, err := p.blobs.Put(ctx, sourcePath, data)
	if err != nil {
		p.logger.Error("pipeline.store.failed", "source_path", sourcePath, "error", err)
		return nil, fmt.Errorf("store raw artifact: %w", err)
	}

	dup, err := p.docs.ExistsBySourcePath(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	if dup {
		p.logger.Info("pipeline.skip.duplicate", "source_path", sourcePath)
		return nil, nil
	}

	rawText, err := p.texts.ExtractBytes(ctx, data, ext)
	if err != nil {
		p.logger.Error("pipeline.ocr.failed", "source_path", sourcePath, "error", err)
		return nil, err
	}

	normalized := ocr.Normalize(rawText)
	p.logger.Debug("pipeline.normalize.ok",
		"source_path", sourcePath,
		"raw_bytes", len(rawText),
		"normalized_bytes", len(normalized),
	)

	tags, degraded := p.tagger.Extract(ctx, normalized)
	if degraded {
		p.logger.Warn("pipeline.tags.degraded", "source_path", sourcePath)
	}

	jobID := uuid.New()
	rec := &entity.MetadataRecord{
		ID:               jobID,
		JobID:            jobID,
		UserID:           userID,
		UserDirectory:    userDirectory,
		SourcePath:       sourcePath,
		IngestedURL:      locator,
		OriginalFilename: filename,
		IngestedAt:       p.now().UTC(),
		Status:           constants.DocStatusTagged,
		Tags:             tags,
		TagsDegraded:     degraded,
	}

	p.logger.Info("pipeline.processed",
		"source_path", sourcePath,
		"job_id", jobID,
		"vendor", tags.Vendor,
		"price", tags.Price,
		"degraded", degraded,
	)
	return rec, nil
}
