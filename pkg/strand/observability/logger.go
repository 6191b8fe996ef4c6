// Package observability provides structured logging, metrics, and tracing
// for strand: slog for logs, OpenTelemetry for metrics and traces.
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds per-run context to a logger.
// Returns a new logger with thread_id and namespace fields.
func EnrichLogger(logger *slog.Logger, threadID, namespace string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("thread_id", threadID),
		slog.String("namespace", namespace),
	)
}

// LogRunStart logs the start of an execution run.
func LogRunStart(logger *slog.Logger, threadID string) {
	if logger == nil {
		return
	}
	logger.Info("run starting",
		slog.String("thread_id", threadID),
	)
}

// LogRunComplete logs a clean run completion.
func LogRunComplete(logger *slog.Logger, threadID string, durationMs float64, toolsUsed int) {
	if logger == nil {
		return
	}
	logger.Info("run completed",
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("tools_used", toolsUsed),
	)
}

// LogRunError logs a run that ended in a terminal error event.
func LogRunError(logger *slog.Logger, threadID string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("run failed",
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRunCancelled logs a run cut short by client disconnect.
func LogRunCancelled(logger *slog.Logger, threadID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Warn("run cancelled",
		slog.String("thread_id", threadID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogAppendError logs a best-effort message-log append failure.
// The stream already completed; the client is never told.
func LogAppendError(logger *slog.Logger, threadID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("message log append failed",
		slog.String("thread_id", threadID),
		slog.String("error", err.Error()),
	)
}

// LogLateNotification logs an engine notification that arrived after the
// translator reached a terminal state.
func LogLateNotification(logger *slog.Logger, threadID string) {
	if logger == nil {
		return
	}
	logger.Warn("dropped notification after terminal event",
		slog.String("thread_id", threadID),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
