package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/run", nil))

		if seen == "" {
			t.Error("request id must be set in context")
		}
		if got := rec.Header().Get("X-Request-ID"); got != seen {
			t.Errorf("header = %q, context = %q; must match", got, seen)
		}
	})

	t.Run("preserves caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/run", nil)
		req.Header.Set("X-Request-ID", "caller-id")
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if seen != "caller-id" {
			t.Errorf("request id = %q, want caller-id", seen)
		}
	})
}

func TestLoggingMiddlewareStatusCapture(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want passthrough", rec.Code)
	}
}
