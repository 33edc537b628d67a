package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/ytlailabs/llmkit/internal/client"
	"github.com/ytlailabs/llmkit/internal/config"
	"github.com/ytlailabs/llmkit/internal/server"
	"github.com/ytlailabs/llmkit/internal/storage"
	"github.com/ytlailabs/llmkit/internal/storage/sqlite"
	"github.com/ytlailabs/llmkit/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdown, err := telemetry.InitTracer("llmkit", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	var store storage.InvocationStore
	if cfg.Storage.Type == "sqlite" {
		s, err := sqlite.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
		defer s.Close()
		store = s
		logger.Info("invocation recording enabled", slog.String("path", cfg.Storage.SQLite.Path))
	}

	workDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Failed to resolve working directory: %v", err)
	}

	pipeline := client.New(cfg, workDir, logger)
	handler := server.NewHandler(pipeline, store, logger)

	srv := server.New(cfg.Server.Port, logger)
	srv.Router.Post("/v1/run", handler.HandleRun)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
