package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shamsaravaiah/receiptdrop/internal/async"
	"github.com/shamsaravaiah/receiptdrop/internal/common"
	"github.com/shamsaravaiah/receiptdrop/internal/export"
	"github.com/shamsaravaiah/receiptdrop/internal/ingest"
	"github.com/shamsaravaiah/receiptdrop/internal/llm"
	"github.com/shamsaravaiah/receiptdrop/internal/llm/gemini"
	"github.com/shamsaravaiah/receiptdrop/internal/llm/openai"
	"github.com/shamsaravaiah/receiptdrop/internal/ocr"
	"github.com/shamsaravaiah/receiptdrop/internal/pipeline"
	"github.com/shamsaravaiah/receiptdrop/internal/repository"
	"github.com/shamsaravaiah/receiptdrop/internal/storage"
)

// ingestdir ingests every receipt under a local directory, or watches it for
// new drops when -watch is set.
func main() {
	var (
		root       = flag.String("root", "", "directory to ingest")
		userID     = flag.String("user", "", "user id to ingest as")
		userDir    = flag.String("user-dir", "", "user directory segment for stored paths")
		watch      = flag.Bool("watch", false, "keep watching root for new files")
		workers    = flag.Int("workers", 2, "concurrent ingest workers in watch mode")
		skipHidden = flag.Bool("skip-hidden", true, "skip hidden files and directories")
		exportPath = flag.String("export", "", "write an XLSX summary here after a batch run")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *root == "" || *userID == "" || *userDir == "" {
		logger.Error("usage", "cmd", "ingestdir -root <dir> -user <id> -user-dir <dir> [-watch]")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		Path:        cfg.Store.Path,
		DialTimeout: 3 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("failed to open document store", "error", err, "path", cfg.Store.Path)
		os.Exit(1)
	}
	defer repository.Close(db, logger)

	docs := repository.NewDocumentRepository(db, logger)
	blobs := storage.NewAFSStore(cfg.Blob.BaseURL, logger)

	detector := ocr.NewTesseractDetector(cfg.OCR.Tesseract, cfg.OCR.TesseractLang, logger)
	texts := ocr.NewExtractor(ocr.Config{
		Pdftoppm: cfg.OCR.Pdftoppm,
		DPI:      cfg.OCR.DPI,
		MaxPages: cfg.OCR.MaxPages,
	}, detector, logger)

	var gen llm.Generator
	switch cfg.LLM.Provider {
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			ProjectID:   cfg.LLM.ProjectID,
			Region:      cfg.LLM.Region,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		}, logger)
		if err != nil {
			logger.Error("gemini client", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		gen = c
	case "openai":
		gen = openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
	}

	tagger := llm.NewTagExtractor(gen, logger)
	proc := pipeline.NewProcessor(logger, blobs, docs, texts, tagger)
	ing := ingest.NewFSIngestor(proc, docs, logger)

	if *watch {
		runWatch(ctx, ing, *root, *userID, *userDir, *workers, logger)
		return
	}

	start := time.Now()
	results, stats, err := ing.IngestDirectory(ctx, *userID, *userDir, *root, *skipHidden)
	if err != nil {
		logger.Error("directory ingest failed", "root", *root, "error", err)
		os.Exit(1)
	}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("file failed", "path", r.SourcePath, "error", r.Err)
		}
	}
	logger.Info("directory ingest done",
		"root", *root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"ingested", stats.Ingested,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if *exportPath != "" {
		exporter := export.NewService(docs, logger)
		data, err := exporter.UserDocumentsXLSX(ctx, *userID)
		if err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*exportPath, data, 0o644); err != nil {
			logger.Error("write export", "path", *exportPath, "error", err)
			os.Exit(1)
		}
		logger.Info("export written", "path", *exportPath)
	}
}

func runWatch(ctx context.Context, ing ingest.Ingestor, root, userID, userDir string, workers int, logger *slog.Logger) {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    500 * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Error("start watcher", "root", root, "error", err)
		os.Exit(1)
	}

	queue := async.NewWorkerQueue(workers, 0, ing, logger)
	logger.Info("watching", "root", root, "workers", workers)

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			queue.Shutdown(shutdownCtx)
			cancel()
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			if err := queue.Enqueue(ctx, async.Job{
				Path:          path,
				UserID:        userID,
				UserDirectory: userDir,
			}); err != nil {
				logger.Warn("enqueue failed", "path", path, "error", err)
			}
		case err, ok := <-errs:
			if ok && err != nil {
				logger.Error("watcher error", "error", err)
			}
		}
	}
}
