// Package boltclient is a minimal Bolt driver: a low-level Connection that
// exposes one round trip per message type, and a high-level Session that
// adds connect/authenticate/run-query convenience on top of it.
package boltclient

import (
	"fmt"
	"net"

	"github.com/GrafeoDB/boltr/pkg/bolt"
	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// Connection is a low-level Bolt connection: it owns the TCP socket,
// performed the version handshake, and exposes chunked message send/recv
// plus one typed helper per Bolt message.
type Connection struct {
	conn    net.Conn
	reader  *bolt.ChunkReader
	writer  *bolt.ChunkWriter
	major   byte
	minor   byte
}

// Dial connects to addr, performs the Bolt handshake, and returns a
// Connection ready for HELLO/LOGON.
func Dial(addr string) (*Connection, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", addr, err)
	}

	major, minor, err := bolt.ClientHandshake(conn, bolt.DefaultClientProposals())
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("bolt handshake with %s: %w", addr, err)
	}

	return &Connection{
		conn:   conn,
		reader: bolt.NewChunkReader(conn),
		writer: bolt.NewChunkWriter(conn),
		major:  major,
		minor:  minor,
	}, nil
}

// Version returns the negotiated Bolt version.
func (c *Connection) Version() (major, minor byte) {
	return c.major, c.minor
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.conn.Close()
}

// Send writes a single client message, chunk-framed.
func (c *Connection) Send(msg bolt.ClientMessage) error {
	payload := bolt.EncodeClientMessage(nil, msg)
	if err := c.writer.WriteMessage(payload); err != nil {
		return fmt.Errorf("sending message kind %d: %w", msg.Kind, err)
	}
	return c.writer.Flush()
}

// Recv reads and decodes a single server message.
func (c *Connection) Recv() (bolt.ServerMessage, error) {
	data, err := c.reader.ReadMessage()
	if err != nil {
		return bolt.ServerMessage{}, fmt.Errorf("receiving message: %w", err)
	}
	dec := packstream.NewDecoder(data)
	return bolt.DecodeServerMessage(dec)
}

// Hello sends HELLO and expects SUCCESS, returning its metadata.
func (c *Connection) Hello(extra packstream.Dict) (packstream.Dict, error) {
	if err := c.Send(bolt.ClientMessage{Kind: bolt.MsgHello, Extra: extra}); err != nil {
		return nil, err
	}
	return c.expectSuccess("HELLO")
}

// Logon sends LOGON with the given scheme/principal/credentials and
// expects SUCCESS.
func (c *Connection) Logon(scheme, principal, credentials string) error {
	auth := packstream.Dict{"scheme": packstream.String(scheme)}
	if principal != "" {
		auth["principal"] = packstream.String(principal)
	}
	if credentials != "" {
		auth["credentials"] = packstream.String(credentials)
	}
	if err := c.Send(bolt.ClientMessage{Kind: bolt.MsgLogon, Extra: auth}); err != nil {
		return err
	}
	_, err := c.expectSuccess("LOGON")
	return err
}

// Goodbye sends GOODBYE. The server closes the connection without
// replying, so this does not wait for a response.
func (c *Connection) Goodbye() error {
	return c.Send(bolt.ClientMessage{Kind: bolt.MsgGoodbye})
}

// Run sends RUN and expects SUCCESS carrying result metadata (at least
// "fields").
func (c *Connection) Run(query string, parameters packstream.Dict, extra packstream.Dict) (packstream.Dict, error) {
	msg := bolt.ClientMessage{Kind: bolt.MsgRun, Query: query, Parameters: parameters, Extra: extra}
	if err := c.Send(msg); err != nil {
		return nil, err
	}
	return c.expectSuccess("RUN")
}

// PullAll sends PULL with no limit and collects every RECORD up to the
// terminating SUCCESS, returning the rows and the SUCCESS metadata.
func (c *Connection) PullAll() ([][]packstream.Value, packstream.Dict, error) {
	if err := c.Send(bolt.PullAll()); err != nil {
		return nil, nil, err
	}

	var records [][]packstream.Value
	for {
		msg, err := c.Recv()
		if err != nil {
			return nil, nil, err
		}
		switch msg.Kind {
		case bolt.MsgRecord:
			records = append(records, msg.Data)
		case bolt.MsgSuccess:
			return records, msg.Metadata, nil
		case bolt.MsgFailure:
			return nil, nil, queryFailure(msg.Metadata, "PULL")
		default:
			return nil, nil, fmt.Errorf("unexpected message during PULL: %v", msg.Kind)
		}
	}
}

// Begin sends BEGIN and expects SUCCESS.
func (c *Connection) Begin(extra packstream.Dict) error {
	if err := c.Send(bolt.ClientMessage{Kind: bolt.MsgBegin, Extra: extra}); err != nil {
		return err
	}
	_, err := c.expectSuccess("BEGIN")
	return err
}

// Commit sends COMMIT and returns its metadata (e.g. a bookmark).
func (c *Connection) Commit() (packstream.Dict, error) {
	if err := c.Send(bolt.ClientMessage{Kind: bolt.MsgCommit}); err != nil {
		return nil, err
	}
	return c.expectSuccess("COMMIT")
}

// Rollback sends ROLLBACK and expects SUCCESS.
func (c *Connection) Rollback() error {
	if err := c.Send(bolt.ClientMessage{Kind: bolt.MsgRollback}); err != nil {
		return err
	}
	_, err := c.expectSuccess("ROLLBACK")
	return err
}

// Reset sends RESET and expects SUCCESS.
func (c *Connection) Reset() error {
	if err := c.Send(bolt.ClientMessage{Kind: bolt.MsgReset}); err != nil {
		return err
	}
	_, err := c.expectSuccess("RESET")
	return err
}

func (c *Connection) expectSuccess(verb string) (packstream.Dict, error) {
	msg, err := c.Recv()
	if err != nil {
		return nil, err
	}
	switch msg.Kind {
	case bolt.MsgSuccess:
		return msg.Metadata, nil
	case bolt.MsgFailure:
		return nil, queryFailure(msg.Metadata, verb)
	default:
		return nil, fmt.Errorf("expected SUCCESS after %s, got %v", verb, msg.Kind)
	}
}

func queryFailure(metadata packstream.Dict, verb string) error {
	code, _ := metadata["code"].AsString()
	if code == "" {
		code = "unknown"
	}
	message, _ := metadata["message"].AsString()
	if message == "" {
		message = verb + " failed"
	}
	return fmt.Errorf("%s: %s: %s", verb, code, message)
}
