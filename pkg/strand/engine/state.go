package engine

import (
	"github.com/strandkit/strand/pkg/strand/codec"
)

// Type tags for the payloads the scripted engine checkpoints.
const (
	StateTag      = "engine.state/v1"
	StepTag       = "engine.step/v1"
	ToolResultTag = "engine.tool_result/v1"
)

// State is the execution state the scripted engine snapshots into each
// checkpoint payload: the conversation so far plus internal scratch.
type State struct {
	Messages []StateMessage `json:"messages"`
	Plan     []string       `json:"plan,omitempty"`
}

// StateMessage is one conversation entry inside a checkpoint payload.
type StateMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StepMetadata is the side information stored alongside each checkpoint.
type StepMetadata struct {
	Step   int    `json:"step"`
	Writer string `json:"writer"`
}

// ToolResult is the pending-write payload staged after a tool finishes.
type ToolResult struct {
	Tool   string `json:"tool"`
	Output string `json:"output"`
}

func init() {
	codec.MustRegister(StateTag, State{})
	codec.MustRegister(StepTag, StepMetadata{})
	codec.MustRegister(ToolResultTag, ToolResult{})
}
