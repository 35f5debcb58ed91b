package bolt

import (
	"context"

	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// TransactionHandle identifies a transaction a Backend has opened. Its
// string form is opaque to the bolt package.
type TransactionHandle string

// AccessMode records whether a session was opened for reading or writing.
// The bolt package does not set it: Connection creates every session with
// the zero value (AccessRead), and a "mode" entry in RUN/BEGIN's extra
// dict is not parsed; it reaches the Backend only inside the raw extra
// dict passed to Execute and BeginTransaction. No bundled Backend reads it.
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
)

// SessionConfig carries the HELLO-time parameters a Backend needs to
// create a session.
type SessionConfig struct {
	UserAgent string
	Database  string // Empty means the backend's default database.
	Mode      AccessMode
}

// SessionProperty is a mid-session configuration change, applied via
// Backend.ConfigureSession. Today the only property is the database to
// switch to, sent by RUN/BEGIN's "db" extra field.
type SessionProperty struct {
	Database string
}

// AuthCredentials is what LOGON hands to an AuthValidator.
type AuthCredentials struct {
	Scheme      string
	Principal   string
	Credentials string
}

// Record is one row of a ResultStream.
type Record struct {
	Values []packstream.Value
}

// ResultMetadata describes the shape of a query's result set, independent
// of its rows.
type ResultMetadata struct {
	Columns []string
	Extra   packstream.Dict
}

// ResultStream is the full outcome of Backend.Execute: its column
// metadata, every row, and a free-form summary dict appended to the final
// SUCCESS (query statistics, plan info, notifications, etc).
type ResultStream struct {
	Metadata ResultMetadata
	Records  []Record
	Summary  packstream.Dict
}

// Backend is the pluggable execution engine a Server delegates real work
// to. The bolt package implements the wire protocol and session/state
// bookkeeping around whatever Backend is supplied; it has no opinion on
// how queries are actually run.
type Backend interface {
	CreateSession(ctx context.Context, config SessionConfig) (SessionHandle, error)
	CloseSession(ctx context.Context, session SessionHandle) error
	ConfigureSession(ctx context.Context, session SessionHandle, property SessionProperty) error
	ResetSession(ctx context.Context, session SessionHandle) error

	Execute(ctx context.Context, session SessionHandle, query string, parameters packstream.Dict, extra packstream.Dict, transaction *TransactionHandle) (ResultStream, error)

	BeginTransaction(ctx context.Context, session SessionHandle, extra packstream.Dict) (TransactionHandle, error)
	Commit(ctx context.Context, session SessionHandle, transaction TransactionHandle) (packstream.Dict, error)
	Rollback(ctx context.Context, session SessionHandle, transaction TransactionHandle) error

	GetServerInfo(ctx context.Context) (packstream.Dict, error)
}
