// Package runner executes batch case files against the pipeline. A case
// file is a JSON document:
//
//	{
//	  "defaults": {"provider": "openai", "strict": "1"},
//	  "cases": [
//	    {"id": "basic", "user_prompt": "hi"},
//	    {"id": "rag", "user_prompt": "q", "rag_text": "@ctx.txt"}
//	  ]
//	}
//
// Defaults are merged under each case (the case wins); a file holding a
// single request object is treated as one anonymous case. @file references
// resolve relative to the case file's directory. Results are echoed to the
// console as one-line previews and appended as JSONL to
// <outDir>/<provider>_<model>_<timestamp>.jsonl.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ytlailabs/llmkit/internal/client"
	"github.com/ytlailabs/llmkit/internal/domain"
)

// Pipeline is the entry operation the runner drives.
type Pipeline interface {
	Run(ctx context.Context, raw map[string]any, requestID string) *domain.ResultEnvelope
}

// Runner drives case files through the pipeline.
type Runner struct {
	OutDir string
	Logger *slog.Logger

	// NewPipeline builds the pipeline rooted at the case file's
	// directory, so @file references resolve next to the cases.
	NewPipeline func(fileBase string) Pipeline
}

type caseFile struct {
	Defaults map[string]any   `json:"defaults"`
	Cases    []map[string]any `json:"cases"`
}

// Result pairs a case id with its envelope for output.
type Result struct {
	CaseID   string                 `json:"case_id"`
	Envelope *domain.ResultEnvelope `json:"result"`
}

// RunFile executes every case in the file and returns the results. A
// failing case does not stop the batch; its failure is in the envelope.
func (r *Runner) RunFile(ctx context.Context, path string) ([]Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case file: %w", err)
	}

	cases, err := parseCases(data)
	if err != nil {
		return nil, fmt.Errorf("invalid case file %s: %w", path, err)
	}

	pipeline := r.NewPipeline(filepath.Dir(path))
	runTS := time.Now().Format("20060102_150405")

	results := make([]Result, 0, len(cases))
	for i, req := range cases {
		caseID := strings.TrimSpace(asString(req["id"]))
		if caseID == "" {
			caseID = fmt.Sprintf("case_%02d", i+1)
		}
		delete(req, "id")

		envelope := pipeline.Run(ctx, req, uuid.New().String())
		results = append(results, Result{CaseID: caseID, Envelope: envelope})

		r.report(caseID, envelope)
		if err := r.append(envelope, caseID, runTS); err != nil {
			r.Logger.Warn("failed to write result", slog.String("case_id", caseID), slog.String("error", err.Error()))
		}
	}
	return results, nil
}

// parseCases accepts either the defaults+cases document or a bare request
// object.
func parseCases(data []byte) ([]map[string]any, error) {
	var doc caseFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	if len(doc.Cases) == 0 {
		single := client.DecodeRequest(data)
		if len(single) == 0 {
			return nil, fmt.Errorf("no cases found")
		}
		delete(single, "defaults")
		return []map[string]any{single}, nil
	}

	out := make([]map[string]any, 0, len(doc.Cases))
	for _, c := range doc.Cases {
		merged := make(map[string]any, len(doc.Defaults)+len(c))
		for k, v := range doc.Defaults {
			merged[k] = v
		}
		for k, v := range c {
			merged[k] = v
		}
		out = append(out, merged)
	}
	return out, nil
}

func (r *Runner) report(caseID string, envelope *domain.ResultEnvelope) {
	var text string
	if envelope.View != nil {
		text = envelope.View.Text
	}
	if envelope.ParseError != "" {
		r.Logger.Warn("case failed",
			slog.String("case_id", caseID),
			slog.String("where", envelope.Meta.Where),
			slog.String("error", oneLinePreview(envelope.ParseError, 200)),
		)
		return
	}
	r.Logger.Info("case completed",
		slog.String("case_id", caseID),
		slog.String("preview", oneLinePreview(text, 200)),
	)
}

func (r *Runner) append(envelope *domain.ResultEnvelope, caseID, runTS string) error {
	if r.OutDir == "" {
		return nil
	}

	provider, model := "unknown", "unknown"
	if envelope.View != nil {
		provider = string(envelope.View.Provider)
		model = envelope.View.Model
	}

	if err := os.MkdirAll(r.OutDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("%s_%s_%s.jsonl", safeFilename(provider), safeFilename(model), runTS)

	line, err := json.Marshal(Result{CaseID: caseID, Envelope: envelope})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(r.OutDir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(append(line, '\n'))
	return err
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeFilename replaces characters that are problematic in filenames on
// either Windows or Unix, and bounds the length.
func safeFilename(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	s = strings.ReplaceAll(s, " ", "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "_")
	if len(s) > 180 {
		s = s[:180]
	}
	return s
}

var collapseSpaces = regexp.MustCompile(`\s+`)

// oneLinePreview flattens text to a single trimmed line for console output.
func oneLinePreview(s string, limit int) string {
	t := strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ", "\t", " ").Replace(s)
	t = strings.TrimSpace(collapseSpaces.ReplaceAllString(t, " "))
	if len(t) > limit {
		return strings.TrimRight(t[:limit], " ") + " ..."
	}
	return t
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
