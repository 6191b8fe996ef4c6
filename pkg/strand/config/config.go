// Package config provides file-based settings for wiring a strand service.
package config

import "fmt"

// Settings describes one strand deployment: where durable state lives and
// how the coordinator behaves. Zero values fall back to defaults; see
// Default for the baseline.
type Settings struct {
	// CheckpointPath is the SQLite file backing the checkpoint store.
	// Empty selects the in-memory store.
	CheckpointPath string `yaml:"checkpoint_path" json:"checkpoint_path"`

	// MessagePath is the SQLite file backing the conversation log.
	// Empty selects the in-memory log.
	MessagePath string `yaml:"message_path" json:"message_path"`

	// Namespace scopes every run's checkpoints. Empty is the root namespace.
	Namespace string `yaml:"namespace" json:"namespace"`

	// AllowedTools restricts which tool invocations become wire events.
	// Empty allows all tools.
	AllowedTools []string `yaml:"allowed_tools" json:"allowed_tools"`

	// EventBuffer is the event channel capacity per run.
	EventBuffer int `yaml:"event_buffer" json:"event_buffer"`

	// Metrics enables OpenTelemetry metrics collection.
	Metrics bool `yaml:"metrics" json:"metrics"`

	// Tracing enables OpenTelemetry trace spans.
	Tracing bool `yaml:"tracing" json:"tracing"`
}

// Default returns the baseline settings: in-memory storage, root namespace,
// all tools visible, observability off.
func Default() Settings {
	return Settings{
		EventBuffer: 16,
	}
}

// Validate reports the first invalid field.
func (s Settings) Validate() error {
	if s.EventBuffer < 0 {
		return fmt.Errorf("event_buffer must be non-negative, got %d", s.EventBuffer)
	}
	for _, name := range s.AllowedTools {
		if name == "" {
			return fmt.Errorf("allowed_tools must not contain empty names")
		}
	}
	return nil
}
