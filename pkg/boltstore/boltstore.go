// Package boltstore is a demo bolt.Backend backed by BadgerDB. It persists
// a record per open session (transactions are tracked in memory only),
// and executes a tiny literal-return
// query dialect sufficient for driver conformance testing; it is not a
// Cypher engine.
package boltstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/GrafeoDB/boltr/pkg/bolt"
	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// ServerIdentity is the string this backend reports from GetServerInfo,
// matching the demo identity used throughout the protocol's own tests.
const ServerIdentity = "GrafeoDB/0.4.4"

// Errors returned by Backend operations.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrTransactionNotFound = errors.New("transaction not found")
)

type sessionRecord struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"user_agent"`
	Database  string    `json:"database"`
	CreatedAt time.Time `json:"created_at"`
}

// Backend implements bolt.Backend against a Badger key-value store.
// Session records live under the "session:" key prefix so they survive a
// process restart; transactions are purely in-memory since none of this
// backend's "queries" have side effects that need to be replayed.
type Backend struct {
	db *badger.DB

	mu           sync.Mutex
	nextSession  int64
	nextTx       int64
	transactions map[bolt.TransactionHandle]struct{}
}

// Open opens (creating if absent) a Badger store at dir.
func Open(dir string) (*Backend, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store at %s: %w", dir, err)
	}
	return &Backend{db: db, transactions: make(map[bolt.TransactionHandle]struct{})}, nil
}

// OpenInMemory opens an ephemeral, non-persistent store, intended for
// tests and quick demos.
func OpenInMemory() (*Backend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory badger store: %w", err)
	}
	return &Backend{db: db, transactions: make(map[bolt.TransactionHandle]struct{})}, nil
}

// Close releases the underlying Badger store.
func (b *Backend) Close() error {
	return b.db.Close()
}

func sessionKey(id string) []byte {
	return []byte("session:" + id)
}

// CreateSession allocates a new session handle and persists its record.
func (b *Backend) CreateSession(ctx context.Context, config bolt.SessionConfig) (bolt.SessionHandle, error) {
	id := b.newSessionID()
	rec := sessionRecord{ID: id, UserAgent: config.UserAgent, Database: config.Database, CreatedAt: time.Now()}

	payload, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshaling session record: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey(id), payload)
	})
	if err != nil {
		return "", fmt.Errorf("persisting session %s: %w", id, err)
	}

	return bolt.SessionHandle(id), nil
}

// CloseSession deletes a session's persisted record.
func (b *Backend) CloseSession(ctx context.Context, session bolt.SessionHandle) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(string(session)))
	})
	if err != nil {
		return fmt.Errorf("closing session %s: %w", session, err)
	}
	return nil
}

// ConfigureSession updates the session's selected database.
func (b *Backend) ConfigureSession(ctx context.Context, session bolt.SessionHandle, property bolt.SessionProperty) error {
	return b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(string(session)))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		var rec sessionRecord
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
			return err
		}
		rec.Database = property.Database
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(sessionKey(string(session)), payload)
	})
}

// ResetSession is a no-op: this backend keeps no per-query mutable state
// beyond what RUN/PULL already scope to the connection.
func (b *Backend) ResetSession(ctx context.Context, session bolt.SessionHandle) error {
	return nil
}

// Execute runs a tiny literal-return dialect: "RETURN 1", "RETURN 1, 2",
// "RETURN 'text'" and similar comma-separated literal lists. It exists to
// drive the Bolt RUN/PULL cycle end-to-end without a full Cypher engine.
func (b *Backend) Execute(ctx context.Context, session bolt.SessionHandle, query string, parameters packstream.Dict, extra packstream.Dict, transaction *bolt.TransactionHandle) (bolt.ResultStream, error) {
	values, err := evalReturnLiterals(query, parameters)
	if err != nil {
		return bolt.ResultStream{}, bolt.QueryError("Neo.ClientError.Statement.SyntaxError", err.Error())
	}

	columns := make([]string, len(values))
	for i := range values {
		columns[i] = "col" + strconv.Itoa(i)
	}

	return bolt.ResultStream{
		Metadata: bolt.ResultMetadata{Columns: columns},
		Records:  []bolt.Record{{Values: values}},
		Summary:  packstream.Dict{"type": packstream.String("r")},
	}, nil
}

// BeginTransaction allocates a transaction handle scoped to session.
func (b *Backend) BeginTransaction(ctx context.Context, session bolt.SessionHandle, extra packstream.Dict) (bolt.TransactionHandle, error) {
	tx := b.newTxID()
	b.mu.Lock()
	b.transactions[tx] = struct{}{}
	b.mu.Unlock()
	return tx, nil
}

// Commit releases a transaction handle.
func (b *Backend) Commit(ctx context.Context, session bolt.SessionHandle, transaction bolt.TransactionHandle) (packstream.Dict, error) {
	if err := b.forgetTransaction(transaction); err != nil {
		return nil, err
	}
	return packstream.Dict{"bookmark": packstream.String("boltr:" + string(transaction))}, nil
}

// Rollback releases a transaction handle without producing a bookmark.
func (b *Backend) Rollback(ctx context.Context, session bolt.SessionHandle, transaction bolt.TransactionHandle) error {
	return b.forgetTransaction(transaction)
}

func (b *Backend) forgetTransaction(tx bolt.TransactionHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.transactions[tx]; !ok {
		return ErrTransactionNotFound
	}
	delete(b.transactions, tx)
	return nil
}

// GetServerInfo reports this backend's demo identity.
func (b *Backend) GetServerInfo(ctx context.Context) (packstream.Dict, error) {
	return packstream.Dict{"server": packstream.String(ServerIdentity)}, nil
}

func (b *Backend) newSessionID() string {
	n := atomic.AddInt64(&b.nextSession, 1)
	return "session-" + strconv.FormatInt(n, 10)
}

func (b *Backend) newTxID() bolt.TransactionHandle {
	n := atomic.AddInt64(&b.nextTx, 1)
	return bolt.TransactionHandle("tx-" + strconv.FormatInt(n, 10))
}

// evalReturnLiterals parses "RETURN <expr>[, <expr>]*" where each expr is
// either an integer literal, a single-quoted string literal, or a bound
// parameter reference ("$name").
func evalReturnLiterals(query string, parameters packstream.Dict) ([]packstream.Value, error) {
	trimmed := strings.TrimSpace(query)
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "RETURN ") {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	exprList := strings.TrimSpace(trimmed[len("RETURN "):])

	parts := strings.Split(exprList, ",")
	values := make([]packstream.Value, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := evalLiteral(p, parameters)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func evalLiteral(expr string, parameters packstream.Dict) (packstream.Value, error) {
	switch {
	case strings.HasPrefix(expr, "$"):
		name := strings.TrimPrefix(expr, "$")
		v, ok := parameters[name]
		if !ok {
			return packstream.Value{}, fmt.Errorf("unbound parameter: %s", name)
		}
		return v, nil
	case strings.HasPrefix(expr, "'") && strings.HasSuffix(expr, "'") && len(expr) >= 2:
		return packstream.String(expr[1 : len(expr)-1]), nil
	default:
		n, err := strconv.ParseInt(expr, 10, 64)
		if err != nil {
			return packstream.Value{}, fmt.Errorf("unsupported expression: %s", expr)
		}
		return packstream.Integer(n), nil
	}
}
