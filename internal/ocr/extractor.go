package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shamsaravaiah/receiptdrop/constants"
)

// NoTextMarker is substituted for a page or image the detector found no text in.
const NoTextMarker = "No text"

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI for PDFs, default 300
	MaxPages int    // 0 = no limit
}

// Extractor turns uploaded bytes into raw OCR text. PDFs are rasterized one
// page at a time and each page is OCRed in order; images go straight to the
// detector.
type Extractor struct {
	cfg      Config
	runner   Runner
	detector Detector
	logger   *slog.Logger
}

func NewExtractor(cfg Config, detector Detector, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{logger: logger}, detector: detector, logger: logger}
}

// ExtractBytes picks a strategy based on the declared extension.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte, ext string) (string, error) {
	start := time.Now()
	ext = constants.NormalizeExt(ext)
	e.logger.Debug("starting ocr extraction", "ext", ext, "bytes", len(data))

	var (
		text string
		err  error
	)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		text, err = e.extractPDF(ctx, data)
	case constants.IMAGE:
		text, err = e.extractImage(ctx, data)
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return "", fmt.Errorf("unsupported extension: %q", ext)
	}
	if err != nil {
		return "", err
	}
	e.logger.Debug("ocr extraction done",
		"ext", ext,
		"text_bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, error) {
	txt, err := e.detector.DetectText(ctx, data)
	if err != nil {
		return "", err
	}
	if txt == "" {
		return NoTextMarker, nil
	}
	return txt, nil
}

// extractPDF rasterizes every page via pdftoppm and OCRs them in order,
// keeping a per-page break marker.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) (string, error) {
	tmpDir, err := os.MkdirTemp("", "rd-pp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", rmErr)
		}
	}()

	in := filepath.Join(tmpDir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return "", err
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %s: %w", strings.TrimSpace(string(errb)), err)
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	for i, img := range matches {
		pageBytes, err := os.ReadFile(img)
		if err != nil {
			return "", err
		}
		txt, err := e.detector.DetectText(ctx, pageBytes)
		if err != nil {
			return "", err
		}
		if txt == "" {
			txt = NoTextMarker
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n", i+1)
		b.WriteString(txt)
	}
	return b.String(), nil
}
