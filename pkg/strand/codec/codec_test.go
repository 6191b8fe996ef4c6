package codec_test

import (
	"errors"
	"testing"

	"github.com/strandkit/strand/pkg/strand/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot struct {
	Messages []string       `json:"messages"`
	Scratch  map[string]int `json:"scratch,omitempty"`
	Step     int            `json:"step"`
}

type stepMeta struct {
	Step   int    `json:"step"`
	Writer string `json:"writer"`
}

func newTestRegistry(t *testing.T) *codec.Registry {
	t.Helper()
	r := codec.NewRegistry()
	require.NoError(t, r.Register("test.snapshot", snapshot{}))
	require.NoError(t, r.Register("test.step", stepMeta{}))
	return r
}

func TestRoundTrip(t *testing.T) {
	r := newTestRegistry(t)

	original := snapshot{
		Messages: []string{"What is Article 21?", "Article 21 guarantees..."},
		Scratch:  map[string]int{"searches": 2},
		Step:     3,
	}

	blob, err := r.Encode(original)
	require.NoError(t, err)
	assert.Equal(t, "test.snapshot", blob.TypeTag)
	assert.NotEmpty(t, blob.Data)

	decoded, err := r.Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestRoundTrip_PointerEncodesAsValue(t *testing.T) {
	r := newTestRegistry(t)

	original := &stepMeta{Step: 7, Writer: "planner"}
	blob, err := r.Encode(original)
	require.NoError(t, err)
	assert.Equal(t, "test.step", blob.TypeTag)

	decoded, err := r.Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, *original, decoded)
}

func TestDecode_UnknownTag(t *testing.T) {
	r := newTestRegistry(t)

	_, err := r.Decode(codec.Blob{TypeTag: "test.retired", Data: []byte(`{}`)})
	require.Error(t, err)

	var decodeErr *codec.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "test.retired", decodeErr.TypeTag)
}

func TestDecode_MalformedData(t *testing.T) {
	r := newTestRegistry(t)

	blob, err := r.Encode(snapshot{Step: 1})
	require.NoError(t, err)

	// Truncate the payload mid-document.
	blob.Data = blob.Data[:len(blob.Data)/2]

	_, err = r.Decode(blob)
	var decodeErr *codec.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestDecode_UnknownFieldsRejected(t *testing.T) {
	r := newTestRegistry(t)

	// A blob written by a newer vocabulary must not partially deserialize.
	blob := codec.Blob{
		TypeTag: "test.step",
		Data:    []byte(`{"step": 1, "writer": "x", "shard": 4}`),
	}

	_, err := r.Decode(blob)
	var decodeErr *codec.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestRegister_TagConflict(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Register("test.snapshot", stepMeta{})
	require.Error(t, err)

	// Re-registering the identical binding is allowed.
	require.NoError(t, r.Register("test.snapshot", snapshot{}))
}

func TestRegister_NilPrototype(t *testing.T) {
	r := codec.NewRegistry()
	assert.Error(t, r.Register("test.nil", nil))
	assert.Error(t, r.Register("", snapshot{}))
}

func TestEncode_UnregisteredType(t *testing.T) {
	r := codec.NewRegistry()
	_, err := r.Encode(snapshot{})
	require.Error(t, err)
	var decodeErr *codec.DecodeError
	assert.False(t, errors.As(err, &decodeErr), "encode failure is not a DecodeError")
}

func TestBlobIsZero(t *testing.T) {
	assert.True(t, codec.Blob{}.IsZero())
	assert.False(t, codec.Blob{TypeTag: "t"}.IsZero())
	assert.False(t, codec.Blob{Data: []byte("{}")}.IsZero())
}
