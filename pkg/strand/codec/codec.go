// Package codec provides a reversible tagged encoding for execution payloads.
//
// The checkpoint store persists opaque blobs; it never branches on payload
// type. The codec is the single boundary where typed values become
// storage-safe bytes and back. Every payload type that crosses the boundary
// is registered under a stable type tag, so a blob written today can still
// be decoded (or refused loudly) after the type vocabulary evolves.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

// Blob is the storage-safe form of an encoded value.
// Data is a JSON document; TypeTag names the registered type it decodes to.
type Blob struct {
	TypeTag string `json:"type_tag"`
	Data    []byte `json:"data"`
}

// IsZero reports whether the blob carries no encoded value.
func (b Blob) IsZero() bool {
	return b.TypeTag == "" && len(b.Data) == 0
}

// DecodeError indicates a blob could not be decoded back into a value.
// Callers must treat this as a hard failure: resuming from wrong execution
// state is worse than refusing to resume.
type DecodeError struct {
	// TypeTag is the tag carried by the offending blob.
	TypeTag string
	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %q: %v", e.TypeTag, e.Err)
	}
	return fmt.Sprintf("decode %q: unrecognized type tag", e.TypeTag)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Registry maps type tags to Go types. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byTag  map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTag:  make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// Register binds tag to the type of proto. The zero value of proto's type is
// used as the decode target, so proto itself is never retained.
// Registering the same tag for a different type is an error; re-registering
// the identical binding is a no-op.
func (r *Registry) Register(tag string, proto any) error {
	if tag == "" {
		return fmt.Errorf("codec: type tag is required")
	}
	t := reflect.TypeOf(proto)
	if t == nil {
		return fmt.Errorf("codec: cannot register nil prototype for tag %q", tag)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byTag[tag]; ok {
		if existing == t {
			return nil
		}
		return fmt.Errorf("codec: tag %q already registered for %s", tag, existing)
	}
	if existing, ok := r.byType[t]; ok && existing != tag {
		return fmt.Errorf("codec: type %s already registered as %q", t, existing)
	}

	r.byTag[tag] = t
	r.byType[t] = tag
	return nil
}

// Encode serializes v into a tagged blob. The concrete type of v (pointers
// dereferenced) must have been registered.
func (r *Registry) Encode(v any) (Blob, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return Blob{}, fmt.Errorf("codec: cannot encode nil value")
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	r.mu.RLock()
	tag, ok := r.byType[t]
	r.mu.RUnlock()
	if !ok {
		return Blob{}, fmt.Errorf("codec: type %s is not registered", t)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Blob{}, fmt.Errorf("codec: encode %q: %w", tag, err)
	}
	return Blob{TypeTag: tag, Data: data}, nil
}

// Decode reconstructs the value carried by blob. The result is a value of
// the registered type (not a pointer), so decode(encode(v)) is semantically
// equal to v for value-typed payloads.
//
// An unrecognized tag or malformed data yields a *DecodeError; no partial
// value is ever returned.
func (r *Registry) Decode(blob Blob) (any, error) {
	r.mu.RLock()
	t, ok := r.byTag[blob.TypeTag]
	r.mu.RUnlock()
	if !ok {
		return nil, &DecodeError{TypeTag: blob.TypeTag}
	}

	target := reflect.New(t)
	dec := json.NewDecoder(bytes.NewReader(blob.Data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target.Interface()); err != nil {
		return nil, &DecodeError{TypeTag: blob.TypeTag, Err: err}
	}
	return target.Elem().Interface(), nil
}

// defaultRegistry backs the package-level functions.
var defaultRegistry = NewRegistry()

// Default returns the registry used by the package-level functions.
func Default() *Registry {
	return defaultRegistry
}

// Register binds tag to the type of proto in the default registry.
func Register(tag string, proto any) error {
	return defaultRegistry.Register(tag, proto)
}

// MustRegister is Register but panics on error.
// Intended for package init blocks where a conflict is a programming error.
func MustRegister(tag string, proto any) {
	if err := Register(tag, proto); err != nil {
		panic(err)
	}
}

// Encode serializes v using the default registry.
func Encode(v any) (Blob, error) {
	return defaultRegistry.Encode(v)
}

// Decode reconstructs a value using the default registry.
func Decode(blob Blob) (any, error) {
	return defaultRegistry.Decode(blob)
}
