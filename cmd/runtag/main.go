package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shamsaravaiah/receiptdrop/internal/common"
	"github.com/shamsaravaiah/receiptdrop/internal/llm"
	"github.com/shamsaravaiah/receiptdrop/internal/llm/gemini"
	"github.com/shamsaravaiah/receiptdrop/internal/llm/openai"
)

// runtag extracts tags from a text file holding normalized receipt text.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runtag <text-file>")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	text, err := os.ReadFile(os.Args[1])
	if err != nil {
		logger.Error("read file", "path", os.Args[1], "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout)
	defer cancel()

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

	start := time.Now()
	tags, degraded := tagger.Extract(ctx, string(text))
	logger.Info("tag extraction done",
		"degraded", degraded,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	out, _ := json.MarshalIndent(tags, "", "  ")
	fmt.Println(string(out))
}
