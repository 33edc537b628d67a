package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ytlailabs/llmkit/internal/client"
	"github.com/ytlailabs/llmkit/internal/domain"
	"github.com/ytlailabs/llmkit/internal/storage"
)

// Runner is the pipeline entry operation consumed by the handler.
type Runner interface {
	Run(ctx context.Context, raw map[string]any, requestID string) *domain.ResultEnvelope
}

// Handler serves the run endpoint. Diagnostic detail lives inside the
// envelope; the transport answer is 200 even when the pipeline failed.
type Handler struct {
	runner Runner
	store  storage.InvocationStore // nil when recording is disabled
	logger *slog.Logger
}

func NewHandler(runner Runner, store storage.InvocationStore, logger *slog.Logger) *Handler {
	return &Handler{runner: runner, store: store, logger: logger}
}

// HandleRun accepts a JSON object, or a JSON string encoding one, and
// responds with the ResultEnvelope verbatim.
func (h *Handler) HandleRun(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var body any
	if data, err := io.ReadAll(r.Body); err == nil {
		if err := json.Unmarshal(data, &body); err != nil {
			body = string(data)
		}
	}
	req := client.DecodeRequest(body)

	envelope := h.runner.Run(r.Context(), req, requestID)
	h.record(r.Context(), envelope)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		h.logger.Error("failed to write envelope", slog.String("request_id", requestID), slog.String("error", err.Error()))
	}
}

func (h *Handler) record(ctx context.Context, envelope *domain.ResultEnvelope) {
	if h.store == nil {
		return
	}

	inv := &storage.Invocation{
		RequestID:  envelope.Meta.RequestID,
		ParseError: envelope.ParseError,
		Where:      envelope.Meta.Where,
		CreatedAt:  time.Now().UTC(),
	}
	if envelope.View != nil {
		inv.Provider = string(envelope.View.Provider)
		inv.Model = envelope.View.Model
		inv.Text = envelope.View.Text
	}
	if total, ok := envelope.Meta.Steps["total_ms"].(int64); ok {
		inv.DurationMS = total
	}

	if err := h.store.Record(ctx, inv); err != nil {
		h.logger.Warn("failed to record invocation",
			slog.String("request_id", envelope.Meta.RequestID),
			slog.String("error", err.Error()),
		)
	}
}
