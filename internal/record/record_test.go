package record

import (
	"bytes"
	"io"
	"testing"

	"github.com/dreamerlzl/ignitekv/pkg/framing"
	"github.com/stretchr/testify/require"
)

func TestSetAndRemoveConstructors(t *testing.T) {
	s := Set("a", "1")
	require.True(t, s.IsSet())
	require.False(t, s.IsRemove())
	require.Equal(t, "1", s.Value)

	r := Remove("a")
	require.True(t, r.IsRemove())
	require.Equal(t, "", r.Value)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Set("key", "value")))
	require.NoError(t, Encode(&buf, Remove("key")))

	reader := NewReader(&buf)

	rec, offset, err := reader.Next()
	require.NoError(t, err)
	require.Equal(t, int64(0), offset)
	require.Equal(t, Set("key", "value"), rec)

	secondOffset := offset
	rec, secondOffset, err = reader.Next()
	require.NoError(t, err)
	require.Greater(t, secondOffset, offset)
	require.Equal(t, Remove("key"), rec)

	_, _, err = reader.Next()
	require.True(t, framing.Truncated(err))
}

func TestReaderStopsCleanlyOnTruncatedTail(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, Set("a", "1")))

	full := buf.Bytes()
	truncated := bytes.NewReader(full[:len(full)-2])

	reader := NewReader(truncated)
	_, _, err := reader.Next()
	require.Error(t, err)
	require.True(t, err == io.ErrUnexpectedEOF || framing.Truncated(err))
}
