package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shamsaravaiah/receiptdrop/internal/common"
	"github.com/shamsaravaiah/receiptdrop/internal/ocr"
)

// runocr OCRs a single local file and prints the normalized text.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := common.LoadConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	detector := ocr.NewTesseractDetector(cfg.OCR.Tesseract, cfg.OCR.TesseractLang, logger)
	extractor := ocr.NewExtractor(ocr.Config{
		Pdftoppm: cfg.OCR.Pdftoppm,
		DPI:      cfg.OCR.DPI,
		MaxPages: cfg.OCR.MaxPages,
	}, detector, logger)

	start := time.Now()
	raw, err := extractor.ExtractBytes(ctx, data, filepath.Ext(path))
	if err != nil {
		logger.Error("text extraction failed", "path", path, "error", err,
			"duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	normalized := ocr.Normalize(raw)
	logger.Info("text extraction OK",
		"path", path,
		"raw_chars", len(raw),
		"normalized_chars", len(normalized),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	fmt.Println(normalized)
}
