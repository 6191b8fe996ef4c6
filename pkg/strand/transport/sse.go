// Package transport frames the wire protocol as server-sent events.
//
// The package covers framing only: one SSE frame per stream.Event, named by
// kind, JSON payload. Routing, authentication, and CORS belong to the
// embedding server.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/strandkit/strand/pkg/strand/stream"
)

// ErrStreamingUnsupported indicates the ResponseWriter cannot flush, so SSE
// delivery is impossible.
var ErrStreamingUnsupported = errors.New("response writer does not support streaming")

// WriteEvent writes one event frame and flushes it to the client:
//
//	event: <kind>
//	data: <json>
//
// followed by a blank line.
func WriteEvent(w http.ResponseWriter, flusher http.Flusher, ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
		return fmt.Errorf("write event frame: %w", err)
	}
	flusher.Flush()
	return nil
}

// Stream sets the SSE headers and forwards events until the channel closes
// or a write fails (the usual sign of a client disconnect). The caller owns
// cancellation: abandoning the run is done by cancelling the context passed
// to Run, which closes the channel.
func Stream(w http.ResponseWriter, events <-chan stream.Event) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return ErrStreamingUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for ev := range events {
		if err := WriteEvent(w, flusher, ev); err != nil {
			return err
		}
	}
	return nil
}
