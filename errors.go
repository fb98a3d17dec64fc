package waverelay

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching. Typed errors below wrap these so
// callers can branch on the kind without inspecting concrete types.
var (
	ErrConnection = errors.New("connection error")
	ErrProtocol   = errors.New("protocol error")
	ErrOutOfRange = errors.New("channel index out of range")
	ErrValue      = errors.New("value out of range")
	ErrClosed     = errors.New("client is closed")
)

// ConnError reports a transport-level failure: refused, unreachable, reset,
// or deadline exceeded. After a ConnError the session is invalid and must be
// re-established before further requests.
type ConnError struct {
	Op      string // "dial", "write", "read"
	Addr    string
	Timeout bool
	Err     error
}

func (e *ConnError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("waverelay: %s %s: timeout: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("waverelay: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// Is reports true for ErrConnection so errors.Is(err, ErrConnection) works.
func (e *ConnError) Is(target error) bool { return target == ErrConnection }

// ProtocolError reports a malformed or mismatched Modbus response. The
// connection that produced it is desynchronized and is closed for reuse.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("waverelay: protocol error: %s", e.Reason)
}

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

func protocolErrorf(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// RangeError reports a channel index outside [0, Channels). It is returned
// before any wire I/O is performed.
type RangeError struct {
	Index    int
	Channels int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("waverelay: channel index %d out of range [0, %d)", e.Index, e.Channels)
}

func (e *RangeError) Is(target error) bool { return target == ErrOutOfRange }

// ValueError reports a register value outside the 16-bit range [0, 65535].
// It is returned before any wire I/O is performed.
type ValueError struct {
	Value int
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("waverelay: register value %d out of range [0, 65535]", e.Value)
}

func (e *ValueError) Is(target error) bool { return target == ErrValue }

// SlaveError is a Modbus exception PDU reported by the device itself.
type SlaveError struct {
	FunctionCode  uint8
	ExceptionCode uint8
}

func (e *SlaveError) Error() string {
	return fmt.Sprintf("waverelay: slave exception (func %02X): code 0x%02X - %s",
		e.FunctionCode, e.ExceptionCode, exceptionMessage(e.ExceptionCode))
}
