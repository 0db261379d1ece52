// Package logging configures log/slog for the server and carries the chi
// request id into every log entry written while serving a request.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup builds the process logger writing to stdout. It is passed down
// explicitly; the slog default is left alone.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) *slog.Logger {
	return New(os.Stdout, level, format)
}

// New returns a logger writing to w.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything. Components fall back to
// it when no logger is injected.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns base enriched with the chi request id of ctx, if any.
// A nil base discards everything.
//
//	func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context(), s.logger)
//	    logger.Info("rendering table", "table", key)
//	}
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = Discard()
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return base.With("request_id", reqID)
	}
	return base
}

// WithFields returns a request logger carrying args on every entry, for
// operations logging several steps such as a save.
func WithFields(ctx context.Context, base *slog.Logger, args ...any) *slog.Logger {
	return FromContext(ctx, base).With(args...)
}
