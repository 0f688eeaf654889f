// Package framing provides a generic decoder for streams of self-delimiting
// JSON values concatenated back to back with no length prefix or separator
// — the technique both the request/response wire protocol (internal/codec)
// and the on-disk log record format (internal/record) use to frame their
// messages, the same forward-scan-until-the-stream-stops-yielding-whole-
// values technique a streaming JSON decoder gives for free.
package framing

import (
	"encoding/json"
	"io"
)

// Decoder streams successive JSON-encoded values of type T out of an
// io.Reader. Each call to Next consumes exactly the bytes of one value
// (plus any leading whitespace), leaving the remainder of the stream intact
// for the next call — the same decoder instance must be reused across
// calls, since it buffers ahead internally.
type Decoder[T any] struct {
	dec *json.Decoder
}

// NewDecoder wraps r in a Decoder for values of type T.
func NewDecoder[T any](r io.Reader) *Decoder[T] {
	return &Decoder[T]{dec: json.NewDecoder(r)}
}

// Next decodes the next value from the stream.
//
// io.EOF means the stream ended exactly on a frame boundary — a clean
// stop. io.ErrUnexpectedEOF means it ended partway through a value — a
// truncated tail. Recovery code that tolerates truncation (segment replay)
// treats both as "no more records"; code that must not (an open
// connection) treats both as a clean disconnect. Any other error means the
// bytes present do not form valid JSON and is a genuine protocol or
// corruption failure.
func (d *Decoder[T]) Next() (T, error) {
	var v T
	err := d.dec.Decode(&v)
	return v, err
}

// Offset returns the byte offset, relative to the start of the underlying
// reader, immediately after the most recently decoded value (0 before the
// first call).
func (d *Decoder[T]) Offset() int64 {
	return d.dec.InputOffset()
}

// Truncated reports whether err signals the stream ended without forming a
// complete value — either a clean EOF on a boundary or a partial value cut
// off mid-frame.
func Truncated(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}

// Encode writes v to w as a single JSON value, framed the same way Next
// expects to read it back.
func Encode[T any](w io.Writer, v T) error {
	return json.NewEncoder(w).Encode(v)
}
