package benchmarks

import (
	"context"
	"fmt"
	"testing"

	"github.com/strandkit/strand/pkg/strand"
	"github.com/strandkit/strand/pkg/strand/checkpoint"
	"github.com/strandkit/strand/pkg/strand/engine"
	"github.com/strandkit/strand/pkg/strand/message"
)

func buildScript(deltas, tools int) []engine.Notification {
	var script []engine.Notification
	for i := 0; i < tools; i++ {
		name := fmt.Sprintf("tool-%d", i)
		script = append(script,
			engine.ToolStart{Name: name, Input: map[string]any{"n": i}},
			engine.ToolEnd{Name: name, Output: "ok"},
		)
	}
	for i := 0; i < deltas; i++ {
		script = append(script, engine.TokenDelta{Text: "token "})
	}
	return append(script, engine.Done{})
}

func benchCoordinator(b *testing.B, script []engine.Notification) *strand.Coordinator {
	b.Helper()
	coord, err := strand.New(
		engine.NewScripted(script...),
		checkpoint.NewMemoryStore(),
		message.NewMemoryLog(),
	)
	if err != nil {
		b.Fatal(err)
	}
	return coord
}

func drainRun(b *testing.B, coord *strand.Coordinator, threadID string) {
	b.Helper()
	events, err := coord.Run(context.Background(), threadID, "input")
	if err != nil {
		b.Fatal(err)
	}
	for range events {
	}
}

// BenchmarkRun_Short measures a 5-delta turn end to end.
func BenchmarkRun_Short(b *testing.B) {
	coord := benchCoordinator(b, buildScript(5, 0))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		drainRun(b, coord, fmt.Sprintf("thread-%d", i))
	}
}

// BenchmarkRun_Long measures a 100-delta turn end to end.
func BenchmarkRun_Long(b *testing.B) {
	coord := benchCoordinator(b, buildScript(100, 0))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		drainRun(b, coord, fmt.Sprintf("thread-%d", i))
	}
}

// BenchmarkRun_WithTools measures a turn with tool traffic.
func BenchmarkRun_WithTools(b *testing.B) {
	coord := benchCoordinator(b, buildScript(20, 5))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		drainRun(b, coord, fmt.Sprintf("thread-%d", i))
	}
}

// BenchmarkRun_ResumedThread measures turns that keep extending one lineage.
func BenchmarkRun_ResumedThread(b *testing.B) {
	coord := benchCoordinator(b, buildScript(5, 0))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		drainRun(b, coord, "thread-1")
	}
}
