// Package record defines the on-disk representation of a single
// log-structured engine write: a Set of a key to a value, or a Remove
// (tombstone) of a key. Records are framed with pkg/framing, the same
// self-delimiting JSON mechanism the wire codec uses.
package record

import (
	"io"

	"github.com/dreamerlzl/ignitekv/pkg/framing"
)

// Op names the kind of mutation a Record represents.
type Op string

const (
	OpSet    Op = "set"
	OpRemove Op = "remove"
)

// Record is a single log-structured engine write, as it appears in a
// segment file.
type Record struct {
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Set builds a Set record.
func Set(key, value string) Record {
	return Record{Op: OpSet, Key: key, Value: value}
}

// Remove builds a Remove (tombstone) record.
func Remove(key string) Record {
	return Record{Op: OpRemove, Key: key}
}

func (r Record) IsSet() bool    { return r.Op == OpSet }
func (r Record) IsRemove() bool { return r.Op == OpRemove }

// Encode serializes r to w as a single self-delimiting frame.
func Encode(w io.Writer, r Record) error {
	return framing.Encode(w, r)
}

// Reader streams records out of a segment file (or any io.Reader), tracking
// each record's starting byte offset so callers can build index entries
// while replaying.
type Reader struct {
	dec *framing.Decoder[Record]
}

// NewReader wraps r for sequential record replay.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: framing.NewDecoder[Record](r)}
}

// Next returns the next record along with the byte offset where it begins
// in the stream. For every record after the first, that offset is the
// newline the encoder wrote after the previous record, which decoding from
// it skips. A truncated tail (io.EOF or io.ErrUnexpectedEOF,
// see framing.Truncated) signals the end of readable records, which for
// the highest segment is an expected outcome of a crash mid-write rather
// than corruption.
func (rd *Reader) Next() (Record, int64, error) {
	start := rd.dec.Offset()
	rec, err := rd.dec.Next()
	return rec, start, err
}
