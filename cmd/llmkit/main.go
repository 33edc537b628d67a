// Command llmkit runs batch case files against the request pipeline.
//
// Usage:
//
//	llmkit run cases/basic.json [more-case-files...]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/ytlailabs/llmkit/internal/client"
	"github.com/ytlailabs/llmkit/internal/config"
	"github.com/ytlailabs/llmkit/internal/runner"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(args) < 2 || args[0] != "run" {
		fmt.Fprintln(os.Stderr, "usage: llmkit run <case-file> [case-file...]")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}

	r := &runner.Runner{
		OutDir: "output",
		Logger: logger,
		NewPipeline: func(fileBase string) runner.Pipeline {
			return client.New(cfg, fileBase, logger)
		},
	}

	exitCode := 0
	for _, path := range args[1:] {
		results, err := r.RunFile(context.Background(), path)
		if err != nil {
			logger.Error("case file failed", slog.String("path", path), slog.String("error", err.Error()))
			exitCode = 1
			continue
		}
		for _, res := range results {
			if res.Envelope.ParseError != "" {
				exitCode = 1
			}
		}
	}
	return exitCode
}
