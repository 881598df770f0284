package rest

import (
	"io"
	"log/slog"
)

// CallEvent records metadata about a single round trip to the hosted backend.
type CallEvent struct {
	Method    string
	Path      string
	Status    int
	LatencyMs int64
	Success   bool
	ErrorCode string
}

// Observer receives events about backend calls for logging.
type Observer interface {
	OnCallComplete(event CallEvent)
}

// LogObserver writes call events to a slog text handler.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an Observer that logs events to w.
func NewLogObserver(w io.Writer) *LogObserver {
	return &LogObserver{
		logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}
}

func (o *LogObserver) OnCallComplete(event CallEvent) {
	attrs := []any{
		"method", event.Method,
		"path", event.Path,
		"status", event.Status,
		"latency_ms", event.LatencyMs,
	}
	if !event.Success {
		o.logger.Warn("backend_call", append(attrs, "error_code", event.ErrorCode)...)
		return
	}
	o.logger.Debug("backend_call", attrs...)
}

// NoopObserver discards all events. Useful for tests.
type NoopObserver struct{}

func (NoopObserver) OnCallComplete(CallEvent) {}
