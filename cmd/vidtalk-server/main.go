// Package main provides the vidtalk REST API server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/raphaelgruber/vidtalk/internal/config"
	"github.com/raphaelgruber/vidtalk/internal/embedding"
	"github.com/raphaelgruber/vidtalk/internal/index"
	"github.com/raphaelgruber/vidtalk/internal/llm"
	"github.com/raphaelgruber/vidtalk/internal/media"
	"github.com/raphaelgruber/vidtalk/internal/metrics"
	"github.com/raphaelgruber/vidtalk/internal/parser"
	"github.com/raphaelgruber/vidtalk/internal/server"
	"github.com/raphaelgruber/vidtalk/internal/service"
)

func main() {
	// Parse flags
	wipeDB := flag.Bool("wipe", false, "wipe all indexed data on startup (testing only)")
	flag.Parse()

	// Load .env before reading the environment
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()
	slog.SetDefault(logger)

	slog.Info("starting vidtalk-server", "addr", cfg.ListenAddr)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		slog.Error("failed to create data dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	// Connect to the vector index
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	idx, err := index.NewClient(ctx, index.Config{
		URL:       cfg.SurrealDBURL,
		Namespace: cfg.SurrealDBNamespace,
		Database:  cfg.SurrealDBDatabase,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		AuthLevel: cfg.SurrealDBAuthLevel,
	}, logger)
	if err != nil {
		cancel()
		slog.Error("failed to connect to index", "error", err)
		os.Exit(1)
	}
	if err := idx.InitSchema(ctx, cfg.ClipDimension); err != nil {
		cancel()
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}
	if *wipeDB || os.Getenv("VIDTALK_WIPE_DB") == "true" {
		if err := idx.WipeData(ctx); err != nil {
			cancel()
			slog.Error("failed to wipe index", "error", err)
			os.Exit(1)
		}
	}
	cancel()
	defer func() {
		if err := idx.Close(context.Background()); err != nil {
			slog.Error("failed to close index", "error", err)
		}
	}()

	// External collaborators
	embedder := embedding.NewClipClient(cfg.ClipHost, cfg.ClipModel, cfg.ClipDimension)
	extractor := media.NewExtractor()
	transcriber := media.NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.WhisperModel)

	// Answer generation is optional; without a key the server still
	// ingests, but queries report a configuration error.
	var answerer service.Answerer
	if cfg.GoogleAPIKey != "" {
		gemini, err := llm.NewGeminiAnswerer(context.Background(), cfg.GoogleAPIKey, cfg.VisionModel, cfg.TextModel)
		if err != nil {
			slog.Error("failed to create Gemini client", "error", err)
			os.Exit(1)
		}
		answerer = gemini
		slog.Info("answer generation configured",
			"vision_model", gemini.VisionModel(),
			"text_model", gemini.TextModel())
	} else {
		slog.Warn("GOOGLE_API_KEY not set, queries will be rejected")
	}

	// Services
	collector := metrics.NewCollector()
	jobs := service.NewJobManager()
	sessions := service.NewSessionStore(idx, cfg.SessionTimeout, cfg.ReapInterval)
	defer sessions.Close()

	ingestor := service.NewIngestor(jobs, sessions, extractor, transcriber, embedder, idx, collector,
		service.IngestorConfig{
			DataDir:       cfg.DataDir,
			FrameInterval: cfg.FrameInterval,
			Chunks: parser.ChunkConfig{
				MaxTokens:     cfg.ChunkTokens,
				OverlapTokens: cfg.ChunkOverlap,
			},
		})
	engine := service.NewAnswerEngine(sessions, idx, embedder, answerer, collector, cfg.TextTopK, cfg.ImageTopK).
		WithModels(cfg.VisionModel, cfg.TextModel)

	srv := server.New(jobs, sessions, ingestor, engine, collector, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Minute, // Long for LLM responses
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("API available", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
