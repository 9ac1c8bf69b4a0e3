package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Detector is the OCR collaborator contract: one call per page or image.
// An empty result means the service found no text in the image.
type Detector interface {
	DetectText(ctx context.Context, imageBytes []byte) (string, error)
}

// TesseractDetector shells out to tesseract for each page/image.
type TesseractDetector struct {
	binary string
	lang   string
	runner Runner
	logger *slog.Logger
}

func NewTesseractDetector(binary, lang string, logger *slog.Logger) *TesseractDetector {
	if binary == "" {
		binary = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractDetector{
		binary: binary,
		lang:   lang,
		runner: execRunner{logger: logger},
		logger: logger,
	}
}

func (d *TesseractDetector) DetectText(ctx context.Context, imageBytes []byte) (string, error) {
	tmp, err := os.CreateTemp("", "rd-ocr-*.png")
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			d.logger.Warn("failed to remove ocr temp file", "path", tmp.Name(), "error", rmErr)
		}
	}()
	if _, err := tmp.Write(imageBytes); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := d.runner.Run(ctx, d.binary, tmp.Name(), "stdout", "-l", d.lang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %s: %w", strings.TrimSpace(string(errb)), err)
	}
	return strings.TrimSpace(string(out)), nil
}
