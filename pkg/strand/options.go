package strand

import "log/slog"

// config holds coordinator construction settings.
type config struct {
	namespace    string
	allowedTools []string
	eventBuffer  int
	logger       *slog.Logger
	metrics      bool
	tracing      bool
}

// defaultConfig returns the default coordinator configuration.
func defaultConfig() config {
	return config{
		eventBuffer: 16,
	}
}

// Option configures a Coordinator.
type Option func(*config)

// WithNamespace scopes every run to a checkpoint namespace. The default is
// the root namespace (empty string). Subgraph or subtask executions use a
// distinct namespace so their checkpoints never shadow the parent thread's.
func WithNamespace(ns string) Option {
	return func(c *config) {
		c.namespace = ns
	}
}

// WithAllowedTools restricts which tool invocations become wire events.
// Tools outside the list still run and still checkpoint; they are only
// hidden from the external protocol. An empty call allows all tools.
func WithAllowedTools(names ...string) Option {
	return func(c *config) {
		c.allowedTools = names
	}
}

// WithEventBuffer sets the event channel capacity. Default: 16.
//
// A larger buffer lets the engine run ahead of a slow consumer; zero makes
// delivery fully synchronous.
func WithEventBuffer(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.eventBuffer = n
		}
	}
}

// WithLogger enables structured logging for run lifecycle events.
// Pass nil to disable (the default).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics collection.
// Metrics are recorded via the global OTel meter provider; configure the
// provider before the first run.
func WithMetrics(enabled bool) Option {
	return func(c *config) {
		c.metrics = enabled
	}
}

// WithTracing enables OpenTelemetry trace spans around each run.
// Spans are created via the global OTel tracer provider.
func WithTracing(enabled bool) Option {
	return func(c *config) {
		c.tracing = enabled
	}
}
