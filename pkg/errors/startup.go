package errors

import "fmt"

// Startup errors are discovered before a server or client begins serving or
// issuing requests — an unparsable address, an unknown engine name, a dead
// connection. None need specialized fields beyond the base error, so they're
// built directly on baseError rather than a new embedding type.

// NewInvalidAddressError reports a listen or dial address that failed to parse.
func NewInvalidAddressError(cause error, addr string) error {
	return NewBaseError(cause, ErrorCodeInvalidAddress, fmt.Sprintf("invalid address %q", addr)).
		WithDetail("address", addr)
}

// NewInvalidEngineError reports an unrecognized engine name, or a requested
// engine that conflicts with the one recorded in the engine marker file.
func NewInvalidEngineError(requested, recorded string) error {
	msg := fmt.Sprintf("unknown engine %q", requested)
	if recorded != "" {
		msg = fmt.Sprintf("engine marker records engine %q, got %q", recorded, requested)
	}
	return NewBaseError(nil, ErrorCodeInvalidEngine, msg).
		WithDetail("requested_engine", requested).
		WithDetail("recorded_engine", recorded)
}

// NewServerConnFailError reports a client's failure to establish or maintain
// a connection to a server.
func NewServerConnFailError(cause error, addr string) error {
	return NewBaseError(cause, ErrorCodeServerConnFail, fmt.Sprintf("failed to connect to %q", addr)).
		WithDetail("address", addr)
}
