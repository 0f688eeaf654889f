package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{Op: OpSet, Key: "a", Value: "1"}
	require.NoError(t, EncodeRequest(&buf, req))

	dec := NewRequestDecoder(&buf)
	got, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, req, got)
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	resp := OKValue("hello")
	require.NoError(t, EncodeResponse(&buf, resp))

	dec := NewResponseDecoder(&buf)
	got, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, resp, got)
}

func TestOKMissCarriesNoValue(t *testing.T) {
	resp := OKMiss()
	require.Equal(t, StatusOKValue, resp.Status)
	require.False(t, resp.Found)
	require.Empty(t, resp.Value)
}

func TestValidOp(t *testing.T) {
	require.True(t, ValidOp(OpSet))
	require.True(t, ValidOp(OpGet))
	require.True(t, ValidOp(OpRemove))
	require.False(t, ValidOp(Op("bogus")))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(Request{Op: OpGet, Key: "a"}))
	require.Error(t, Validate(Request{Op: Op("bogus"), Key: "a"}))
	require.Error(t, Validate(Request{Op: OpGet, Key: ""}))
}

func TestPipelinedRequestsDecodeIndependently(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeRequest(&buf, Request{Op: OpSet, Key: "a", Value: "1"}))
	require.NoError(t, EncodeRequest(&buf, Request{Op: OpGet, Key: "a"}))

	dec := NewRequestDecoder(&buf)

	first, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, OpSet, first.Op)

	second, err := dec.Next()
	require.NoError(t, err)
	require.Equal(t, OpGet, second.Op)
}
