package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"runtime"
)

// ConnectionError reports an OS-level socket failure. It carries the
// failing operation and the source location that raised it, and wraps
// the OS error text.
type ConnectionError struct {
	// Op is the operation that failed ("dial", "listen", "send", ...).
	Op string

	// Loc is the file:line that raised the error.
	Loc string

	// Cause is the underlying OS error.
	Cause error
}

// Error implements the error interface.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("transport: %s failed at %s: %v", e.Op, e.Loc, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectionError) Unwrap() error { return e.Cause }

// connErr builds a ConnectionError tagged with the caller's location.
func connErr(op string, cause error) *ConnectionError {
	return &ConnectionError{Op: op, Loc: callerLoc(2), Cause: cause}
}

// TLSErrorKind is the closed set of security-layer failure categories.
type TLSErrorKind int

const (
	// TLSWantRead means the security layer needed more inbound data.
	TLSWantRead TLSErrorKind = iota

	// TLSWantWrite means the security layer could not flush outbound data.
	TLSWantWrite

	// TLSZeroReturn means the peer closed the security session cleanly.
	TLSZeroReturn

	// TLSSyscall means the failure happened below the record layer.
	TLSSyscall

	// TLSProtocol means the record or handshake protocol itself failed.
	TLSProtocol
)

// String returns a human-readable name for the kind.
func (k TLSErrorKind) String() string {
	switch k {
	case TLSWantRead:
		return "want-read"
	case TLSWantWrite:
		return "want-write"
	case TLSZeroReturn:
		return "zero-return"
	case TLSSyscall:
		return "syscall"
	case TLSProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// TLSError reports a security handshake or record failure with a
// translated, human-readable cause.
type TLSError struct {
	// Op is the operation that failed ("handshake", "send", "recv").
	Op string

	// Kind is the failure category.
	Kind TLSErrorKind

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TLSError) Error() string {
	return fmt.Sprintf("transport: TLS %s failed (%s): %v", e.Op, e.Kind, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TLSError) Unwrap() error { return e.Cause }

// classifyTLS translates an error from the TLS layer into the closed
// TLSError taxonomy. reading tells read failures from write failures
// for the want-read/want-write split.
func classifyTLS(op string, err error, reading bool) *TLSError {
	kind := TLSProtocol
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		kind = TLSZeroReturn
	case isTimeout(err):
		if reading {
			kind = TLSWantRead
		} else {
			kind = TLSWantWrite
		}
	case isRecordError(err):
		kind = TLSProtocol
	case isSyscallError(err):
		kind = TLSSyscall
	}
	return &TLSError{Op: op, Kind: kind, Cause: err}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isRecordError(err error) bool {
	var rhe tls.RecordHeaderError
	return errors.As(err, &rhe)
}

func isSyscallError(err error) bool {
	var oe *net.OpError
	return errors.As(err, &oe)
}

// callerLoc returns the file:line of the caller skip frames up.
func callerLoc(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
