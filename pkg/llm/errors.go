package llm

import (
	"fmt"
	"time"
)

// TransportError is a network or connection level failure while talking to a
// backend. The cause is preserved for errors.Is/As matching, so a call torn
// down by cancellation still unwraps to context.Canceled.
type TransportError struct {
	Op       string // operation that failed, e.g. "chat"
	Endpoint string
	Cause    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure against %s: %v", e.Op, e.Endpoint, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// TimeoutError is a call that exceeded its per-call deadline. It is a
// distinct failure kind, never reported as a silent cancellation.
type TimeoutError struct {
	Op       string
	Endpoint string
	Timeout  time.Duration
	Cause    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s did not respond within %s", e.Op, e.Endpoint, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Cause }

// ProtocolError is a well-delivered but malformed or unexpected response:
// a non-200 status, an undecodable body, or an explicit done:false on a
// non-streaming call.
type ProtocolError struct {
	Op     string
	Reason string
	Cause  error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %s", e.Op, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Cause }

// UnsupportedError reports a capability the provider does not implement.
// It is a recoverable configuration outcome, not a crash.
type UnsupportedError struct {
	Provider string
	Op       string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Op)
}
