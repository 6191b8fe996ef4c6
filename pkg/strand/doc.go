/*
Package strand coordinates checkpoint persistence and event streaming for
conversational agent executions.

# Overview

strand sits between an execution engine (planning, tool calls, token
generation) and the clients that consume its output. For each run it:

  - records the human message durably before any engine work begins
  - lends the engine a checkpoint store so execution state survives crashes
  - translates the engine's internal notification stream into an ordered,
    client-safe wire protocol (start, content_delta, tool_call_start,
    tool_call_end, end, error)
  - appends the assistant message to the conversation log on clean
    completion only

# Basic Usage

Build a Coordinator from an engine, a checkpoint store, and a message log,
then drive runs:

	store, err := checkpoint.NewSQLiteStore("./checkpoints.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	msgs, err := message.NewSQLiteLog("./messages.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer msgs.Close()

	coord, err := strand.New(eng, store, msgs,
	    strand.WithAllowedTools("search", "fetch_document"))
	if err != nil {
	    log.Fatal(err)
	}

	events, err := coord.Run(ctx, "thread-1", "summarize the contract")
	if err != nil {
	    log.Fatal(err)
	}
	for ev := range events {
	    fmt.Printf("%s: %s\n", ev.Kind, ev.Content)
	}

The events channel always terminates with exactly one end or error event,
unless the context is cancelled first, in which case the channel closes
without a terminal event and checkpoints written so far remain the
recovery point.

# Resume

Threads resume implicitly: the engine loads the latest checkpoint for the
thread from the store it was lent, so a second Run on the same thread
continues where the first left off. Concurrent runs on one thread are
rejected with ErrThreadBusy.

# Error Boundaries

Failures before the stream starts (message log unreachable, engine refused
to start) are returned from Run directly. Failures mid-stream become a
terminal error event and suppress the assistant log write. A failed
assistant log write after a clean stream is logged and never surfaced to
the client.

# Observability

Enable logging, metrics, and tracing:

	coord, err := strand.New(eng, store, msgs,
	    strand.WithLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil))),
	    strand.WithMetrics(true),
	    strand.WithTracing(true))

Logs include structured fields: thread_id, namespace, duration_ms,
tools_used. OpenTelemetry metrics: strand.runs, strand.run.latency_ms,
strand.stream.events, strand.message.appends. Tracing: strand.run spans
with thread attributes.

# Thread Safety

  - Coordinator IS safe for concurrent use across threads
  - Concurrent runs on the SAME thread fail fast with ErrThreadBusy
  - Store and Log implementations are safe for concurrent use

# Subpackages

  - codec: versioned payload encoding behind string type tags
  - checkpoint: checkpoint storage (memory, SQLite) with lineage and
    pending writes
  - engine: the execution-engine port and a deterministic scripted engine
  - stream: the notification-to-wire-event translator
  - message: the durable per-thread conversation log (memory, SQLite)
  - transport: server-sent events framing for the wire protocol
  - config: file-based settings (YAML or JSON)
  - observability: logging, metrics, and tracing helpers
*/
package strand
