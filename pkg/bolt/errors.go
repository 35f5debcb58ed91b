package bolt

import (
	"errors"
	"fmt"

	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// Kind classifies a bolt error so it can be mapped to a Neo4j-style wire
// failure code without the caller needing to inspect the message text.
type Kind int

const (
	KindProtocol Kind = iota
	KindAuthentication
	KindSession
	KindTransaction
	KindQuery
	KindResourceExhausted
	KindIO
	KindBackend
)

// Error is the error type returned by every bolt package operation. Kind
// determines the Neo.*Error.* code sent back to the client; QueryCode
// overrides it when the backend already produced a driver-facing code.
type Error struct {
	Kind      Kind
	Message   string
	QueryCode string
	Cause     error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapError(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ProtocolError reports a malformed or out-of-sequence wire interaction.
func ProtocolError(format string, args ...any) *Error {
	return newError(KindProtocol, format, args...)
}

// AuthenticationError reports a credential validation failure.
func AuthenticationError(format string, args ...any) *Error {
	return newError(KindAuthentication, format, args...)
}

// SessionError reports a session lifecycle violation.
func SessionError(format string, args ...any) *Error {
	return newError(KindSession, format, args...)
}

// TransactionError reports a transaction lifecycle violation.
func TransactionError(format string, args ...any) *Error {
	return newError(KindTransaction, format, args...)
}

// QueryError reports a backend-raised query failure carrying its own
// driver-facing code, e.g. "Neo.ClientError.Statement.SyntaxError".
func QueryError(code, message string) *Error {
	return &Error{Kind: KindQuery, QueryCode: code, Message: message}
}

// ResourceExhaustedError reports a capacity limit being hit.
func ResourceExhaustedError(format string, args ...any) *Error {
	return newError(KindResourceExhausted, format, args...)
}

// IOError wraps a transport-level failure.
func IOError(cause error) *Error {
	return wrapError(KindIO, cause, "io error")
}

// BackendError wraps an opaque failure surfaced by a Backend implementation.
func BackendError(format string, args ...any) *Error {
	return newError(KindBackend, format, args...)
}

// Sentinel errors for conditions callers may want to test for directly.
var (
	ErrUnsupportedVersion = ProtocolError("no compatible Bolt version")
	ErrNoPendingResult    = ProtocolError("no pending result to pull")
	ErrCapacityExceeded   = ResourceExhaustedError("session capacity exceeded")
)

// AsError extracts a *Error from err, wrapping it as a Backend error if it
// is not already one.
func AsError(err error) *Error {
	var be *Error
	if errors.As(err, &be) {
		return be
	}
	return BackendError("%s", err.Error())
}

// WireMetadata renders the dict a FAILURE message should carry for this
// error, per the Neo4j status-code convention.
func (e *Error) WireMetadata() packstream.Dict {
	code, message := e.wireCode()
	return packstream.Dict{
		"code":    packstream.String(code),
		"message": packstream.String(message),
	}
}

func (e *Error) wireCode() (string, string) {
	if e.Kind == KindQuery {
		return e.QueryCode, e.Message
	}
	switch e.Kind {
	case KindProtocol:
		return "Neo.ClientError.Request.Invalid", e.Message
	case KindAuthentication:
		return "Neo.ClientError.Security.Unauthorized", e.Message
	case KindSession:
		return "Neo.ClientError.Request.Invalid", e.Message
	case KindTransaction:
		return "Neo.ClientError.Transaction.TransactionStartFailed", e.Message
	case KindResourceExhausted:
		return "Neo.TransientError.General.MemoryPoolOutOfMemoryError", e.Message
	case KindIO:
		return "Neo.TransientError.General.DatabaseUnavailable", e.Error()
	case KindBackend:
		return "Neo.DatabaseError.General.UnknownError", e.Message
	default:
		return "Neo.DatabaseError.General.UnknownError", e.Message
	}
}

// invalidFormatMetadata is the fixed failure dict sent when a message
// cannot be decoded at all, per the protocol's decode-error convention.
func invalidFormatMetadata(cause error) packstream.Dict {
	return packstream.Dict{
		"code":    packstream.String("Neo.ClientError.Request.InvalidFormat"),
		"message": packstream.String(cause.Error()),
	}
}
