package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shamsaravaiah/receiptdrop/internal/common"
	"github.com/shamsaravaiah/receiptdrop/internal/export"
	"github.com/shamsaravaiah/receiptdrop/internal/llm"
	"github.com/shamsaravaiah/receiptdrop/internal/llm/gemini"
	"github.com/shamsaravaiah/receiptdrop/internal/llm/openai"
	"github.com/shamsaravaiah/receiptdrop/internal/ocr"
	"github.com/shamsaravaiah/receiptdrop/internal/pipeline"
	"github.com/shamsaravaiah/receiptdrop/internal/repository"
	"github.com/shamsaravaiah/receiptdrop/internal/server"
	"github.com/shamsaravaiah/receiptdrop/internal/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

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

	if err := repository.HealthCheck(ctx, db, 3*time.Second, logger); err != nil {
		logger.Error("document store health check failed", "error", err)
		os.Exit(1)
	}

	docs := repository.NewDocumentRepository(db, logger)
	blobs := storage.NewAFSStore(cfg.Blob.BaseURL, logger)

	detector := ocr.NewTesseractDetector(cfg.OCR.Tesseract, cfg.OCR.TesseractLang, logger)
	texts := ocr.NewExtractor(ocr.Config{
		Pdftoppm: cfg.OCR.Pdftoppm,
		DPI:      cfg.OCR.DPI,
		MaxPages: cfg.OCR.MaxPages,
	}, detector, logger)

	gen, cleanup, err := buildGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build generator", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}
	defer cleanup()
	tagger := llm.NewTagExtractor(gen, logger)

	proc := pipeline.NewProcessor(logger, blobs, docs, texts, tagger)
	exporter := export.NewService(docs, logger)

	handler := server.NewHandler(proc, docs, exporter, cfg.Server.MaxUploadBytes, logger)
	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.NewRouter(handler),
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
}

func buildGenerator(ctx context.Context, cfg *common.Config, logger *slog.Logger) (llm.Generator, func(), error) {
	switch cfg.LLM.Provider {
	case "gemini":
		c, err := gemini.NewClient(ctx, gemini.Config{
			ProjectID:   cfg.LLM.ProjectID,
			Region:      cfg.LLM.Region,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
		}, logger)
		if err != nil {
			return nil, func() {}, err
		}
		return c, func() { _ = c.Close() }, nil
	case "openai":
		c := openai.NewClient(openai.Config{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger)
		return c, func() {}, nil
	default:
		return nil, func() {}, errors.New("unknown LLM provider: " + cfg.LLM.Provider)
	}
}
