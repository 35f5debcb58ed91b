package boltclient

import (
	"fmt"

	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// clientUserAgent identifies this driver in HELLO's user_agent field.
const clientUserAgent = "boltr-client/0.1"

// Session is a high-level Bolt client: connect, authenticate, and run
// queries without touching message framing directly.
type Session struct {
	conn *Connection
}

// Connect dials addr and authenticates with the "none" scheme, suitable
// for servers that do not require credentials.
func Connect(addr string) (*Session, error) {
	conn, err := Dial(addr)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Hello(packstream.Dict{"user_agent": packstream.String(clientUserAgent)}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.Logon("none", "", ""); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Session{conn: conn}, nil
}

// ConnectBasic dials addr and authenticates with the "basic" scheme.
func ConnectBasic(addr, username, password string) (*Session, error) {
	conn, err := Dial(addr)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Hello(packstream.Dict{"user_agent": packstream.String(clientUserAgent)}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := conn.Logon("basic", username, password); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Session{conn: conn}, nil
}

// Version returns the negotiated Bolt version.
func (s *Session) Version() (major, minor byte) {
	return s.conn.Version()
}

// Connection returns the underlying low-level Connection for callers that
// need direct access to message send/recv.
func (s *Session) Connection() *Connection {
	return s.conn
}

// QueryResult is the outcome of running a query to completion.
type QueryResult struct {
	Columns []string
	Records [][]packstream.Value
	Summary packstream.Dict
}

// Run runs query with no parameters and pulls every result row.
func (s *Session) Run(query string) (QueryResult, error) {
	return s.RunWithParams(query, nil, nil)
}

// RunWithParams runs query with bound parameters and extra RUN metadata,
// then pulls every result row before returning.
func (s *Session) RunWithParams(query string, params packstream.Dict, extra packstream.Dict) (QueryResult, error) {
	runMeta, err := s.conn.Run(query, params, extra)
	if err != nil {
		return QueryResult{}, err
	}

	var columns []string
	if fields, ok := runMeta["fields"]; ok && fields.Kind == packstream.KindList {
		for _, item := range fields.List {
			if name, ok := item.AsString(); ok {
				columns = append(columns, name)
			}
		}
	}

	records, summary, err := s.conn.PullAll()
	if err != nil {
		return QueryResult{}, err
	}

	return QueryResult{Columns: columns, Records: records, Summary: summary}, nil
}

// Begin starts an explicit transaction.
func (s *Session) Begin() error {
	return s.conn.Begin(nil)
}

// Commit commits the current transaction.
func (s *Session) Commit() error {
	_, err := s.conn.Commit()
	return err
}

// Rollback rolls back the current transaction.
func (s *Session) Rollback() error {
	return s.conn.Rollback()
}

// Reset sends RESET, returning the connection to the authenticated idle
// state: any open transaction and pending result are discarded.
func (s *Session) Reset() error {
	return s.conn.Reset()
}

// Close sends GOODBYE and closes the socket.
func (s *Session) Close() error {
	if err := s.conn.Goodbye(); err != nil {
		_ = s.conn.Close()
		return fmt.Errorf("sending GOODBYE: %w", err)
	}
	return s.conn.Close()
}
