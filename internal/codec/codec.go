// Package codec implements the TCP wire protocol between internal/client
// and internal/server: a stream of self-delimiting JSON request and
// response frames, decoded with pkg/framing exactly as the original
// implementation decoded its serde_json stream — one JSON document per
// request, one per response, no length prefix, no separator.
package codec

import (
	"fmt"
	"io"

	ignerrors "github.com/dreamerlzl/ignitekv/pkg/errors"
	"github.com/dreamerlzl/ignitekv/pkg/framing"
)

// Op names the operation a Request carries.
type Op string

const (
	OpSet    Op = "set"
	OpGet    Op = "get"
	OpRemove Op = "remove"
)

// Request is one client call, framed as a single JSON document.
type Request struct {
	Op    Op     `json:"op"`
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// Status names the outcome a Response carries.
type Status string

const (
	StatusOK      Status = "ok"
	StatusOKValue Status = "ok_value"
	StatusErr     Status = "err"
)

// Response is the server's reply to one Request, framed as a single JSON
// document. Value/Found are populated only for StatusOKValue; Error only
// for StatusErr. Found distinguishes a Get miss from a hit whose value
// happens to be the empty string — a key miss is never an error response,
// per the engine's own Get contract.
type Response struct {
	Status Status `json:"status"`
	Found  bool   `json:"found,omitempty"`
	Value  string `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK builds a plain success response, used for Set and Remove.
func OK() Response { return Response{Status: StatusOK} }

// OKValue builds a Get-hit response carrying the stored value.
func OKValue(value string) Response { return Response{Status: StatusOKValue, Found: true, Value: value} }

// OKMiss builds a Get-miss response: no error, no value.
func OKMiss() Response { return Response{Status: StatusOKValue, Found: false} }

// Err builds an error response carrying a human-readable message.
func Err(msg string) Response { return Response{Status: StatusErr, Error: msg} }

// RequestDecoder streams Requests off a connection.
type RequestDecoder struct {
	dec *framing.Decoder[Request]
}

func NewRequestDecoder(r io.Reader) *RequestDecoder {
	return &RequestDecoder{dec: framing.NewDecoder[Request](r)}
}

// Next decodes the next request. A clean or truncated EOF (see
// framing.Truncated) means the client disconnected between requests and is
// not itself a protocol error; any other error is a malformed frame.
func (d *RequestDecoder) Next() (Request, error) {
	req, err := d.dec.Next()
	if err != nil && !framing.Truncated(err) {
		return req, ignerrors.NewMalformedFrameError(err, "DecodeRequest", "")
	}
	return req, err
}

// EncodeRequest writes a request frame to w.
func EncodeRequest(w io.Writer, req Request) error {
	return framing.Encode(w, req)
}

// ResponseDecoder streams Responses off a connection, used by internal/client.
type ResponseDecoder struct {
	dec *framing.Decoder[Response]
}

func NewResponseDecoder(r io.Reader) *ResponseDecoder {
	return &ResponseDecoder{dec: framing.NewDecoder[Response](r)}
}

func (d *ResponseDecoder) Next() (Response, error) {
	resp, err := d.dec.Next()
	if err != nil && !framing.Truncated(err) {
		return resp, ignerrors.NewMalformedFrameError(err, "DecodeResponse", "")
	}
	return resp, err
}

// EncodeResponse writes a response frame to w.
func EncodeResponse(w io.Writer, resp Response) error {
	return framing.Encode(w, resp)
}

// ValidOp reports whether op is a recognized request operation.
func ValidOp(op Op) bool {
	switch op {
	case OpSet, OpGet, OpRemove:
		return true
	default:
		return false
	}
}

// Validate checks req for the structural requirements the server enforces
// before dispatching it: a recognized op, and a non-empty key.
func Validate(req Request) error {
	if !ValidOp(req.Op) {
		return fmt.Errorf("unrecognized operation %q", req.Op)
	}
	if req.Key == "" {
		return fmt.Errorf("key must not be empty")
	}
	return nil
}
