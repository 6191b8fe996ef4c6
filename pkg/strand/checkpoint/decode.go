package checkpoint

import (
	"github.com/strandkit/strand/pkg/strand/codec"
)

// DecodePayload decodes a checkpoint's payload through the registry.
// A codec failure is reported as *CorruptError so callers fail the resume
// instead of continuing with partial state.
func DecodePayload(r *codec.Registry, cp *Checkpoint) (any, error) {
	v, err := r.Decode(cp.Payload)
	if err != nil {
		return nil, &CorruptError{Ref: cp.Ref(), Err: err}
	}
	return v, nil
}

// DecodeMetadata decodes a checkpoint's metadata through the registry.
// Failures are reported as *CorruptError, same as DecodePayload.
func DecodeMetadata(r *codec.Registry, cp *Checkpoint) (any, error) {
	v, err := r.Decode(cp.Metadata)
	if err != nil {
		return nil, &CorruptError{Ref: cp.Ref(), Err: err}
	}
	return v, nil
}
