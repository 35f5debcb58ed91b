package bolt

import (
	"context"
	"net"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// pendingResult is the result stream a RUN left open for PULL/DISCARD to
// drain, tracked per-connection since only one can be open at a time.
type pendingResult struct {
	records []Record
	offset  int
	columns []string
	summary packstream.Dict
}

// Connection drives the full Bolt protocol lifecycle for one accepted
// TCP stream: version negotiation already done by the caller, then the
// read-decode-dispatch-reply loop until GOODBYE or a fatal transport
// error.
type Connection struct {
	conn     net.Conn
	reader   *ChunkReader
	writer   *ChunkWriter
	peerAddr string

	backend Backend
	auth    AuthValidator
	sm      *SessionManager
	log     logr.Logger

	state       ConnectionState
	session     *SessionHandle
	transaction *TransactionHandle
	pending     *pendingResult
}

// NewConnection wraps an already version-negotiated conn for message
// processing. sm and auth may be the same instances shared across every
// connection a Server accepts; auth may be nil to accept any LOGON.
func NewConnection(conn net.Conn, backend Backend, sm *SessionManager, auth AuthValidator, log logr.Logger) *Connection {
	return &Connection{
		conn:     conn,
		reader:   NewChunkReader(conn),
		writer:   NewChunkWriter(conn),
		peerAddr: conn.RemoteAddr().String(),
		backend:  backend,
		auth:     auth,
		sm:       sm,
		log:      log,
		state:    StateNegotiation,
	}
}

// Run processes messages until the connection reaches Defunct or a
// transport read fails. It always attempts cleanup of any open session
// before returning.
func (c *Connection) Run(ctx context.Context) {
	defer c.cleanup(ctx)

	for c.state != StateDefunct {
		raw, err := c.reader.ReadMessage()
		if err != nil {
			c.log.V(1).Info("connection read failed, closing", "peer", c.peerAddr, "error", err.Error())
			return
		}
		if len(raw) == 0 {
			continue
		}

		msg, err := DecodeClientMessage(packstream.NewDecoder(raw))
		if err != nil {
			c.sendFailureMetadata(invalidFormatMetadata(err))
			c.state = StateFailed
			continue
		}

		if !c.state.Accepts(msg.Kind) {
			if msg.Kind == MsgGoodbye {
				c.state = StateDefunct
				return
			}
			if err := c.send(Ignored()); err != nil {
				return
			}
			continue
		}

		if msg.Kind == MsgGoodbye {
			c.state = StateDefunct
			return
		}

		if err := c.dispatch(ctx, msg); err != nil {
			botErr := AsError(err)
			c.log.Error(botErr, "handler failed", "state", c.state.String())
			if sendErr := c.send(Failure(botErr.WireMetadata())); sendErr != nil {
				return
			}
			c.state = c.state.TransitionFailure(msg.Kind)
		}
	}
}

func (c *Connection) dispatch(ctx context.Context, msg ClientMessage) error {
	switch msg.Kind {
	case MsgHello:
		return c.handleHello(ctx, msg)
	case MsgLogon:
		return c.handleLogon(ctx, msg)
	case MsgLogoff:
		return c.handleLogoff(msg)
	case MsgReset:
		return c.handleReset(ctx)
	case MsgRun:
		return c.handleRun(ctx, msg)
	case MsgPull:
		return c.handlePull(msg)
	case MsgDiscard:
		return c.handleDiscard(msg)
	case MsgBegin:
		return c.handleBegin(ctx, msg)
	case MsgCommit:
		return c.handleCommit(ctx, msg)
	case MsgRollback:
		return c.handleRollback(ctx, msg)
	default:
		return ProtocolError("unhandled message kind %d", msg.Kind)
	}
}

func (c *Connection) handleHello(ctx context.Context, msg ClientMessage) error {
	userAgent := "unknown"
	if v, ok := msg.Extra["user_agent"]; ok {
		if s, ok := v.AsString(); ok {
			userAgent = s
		}
	}

	config := SessionConfig{UserAgent: userAgent}
	session, err := c.backend.CreateSession(ctx, config)
	if err != nil {
		return AsError(err)
	}
	if err := c.sm.Register(session, c.peerAddr); err != nil {
		_ = c.backend.CloseSession(ctx, session)
		return err
	}
	c.session = &session

	metadata, err := c.backend.GetServerInfo(ctx)
	if err != nil || metadata == nil {
		metadata = packstream.Dict{}
	}
	if _, ok := metadata["connection_id"]; !ok {
		metadata["connection_id"] = packstream.String(uuid.NewString())
	}
	metadata["hints"] = packstream.DictValue(packstream.Dict{})

	if err := c.send(Success(metadata)); err != nil {
		return err
	}
	c.state = c.state.TransitionSuccess(msg.Kind)
	return nil
}

func (c *Connection) handleLogon(ctx context.Context, msg ClientMessage) error {
	if c.auth != nil {
		creds := AuthCredentials{Scheme: "none"}
		if s, ok := msg.Extra["scheme"]; ok {
			if str, ok := s.AsString(); ok {
				creds.Scheme = str
			}
		}
		if p, ok := msg.Extra["principal"]; ok {
			if str, ok := p.AsString(); ok {
				creds.Principal = str
			}
		}
		if cr, ok := msg.Extra["credentials"]; ok {
			if str, ok := cr.AsString(); ok {
				creds.Credentials = str
			}
		}
		if err := c.auth.Validate(ctx, creds); err != nil {
			return AuthenticationError("%v", err)
		}
	}

	if err := c.send(Success(packstream.Dict{})); err != nil {
		return err
	}
	c.state = c.state.TransitionSuccess(msg.Kind)
	return nil
}

func (c *Connection) handleLogoff(msg ClientMessage) error {
	if err := c.send(Success(packstream.Dict{})); err != nil {
		return err
	}
	c.state = c.state.TransitionSuccess(msg.Kind)
	return nil
}

func (c *Connection) handleReset(ctx context.Context) error {
	if c.session != nil && c.transaction != nil {
		_ = c.backend.Rollback(ctx, *c.session, *c.transaction)
	}
	c.transaction = nil
	c.pending = nil

	if c.session != nil {
		if err := c.backend.ResetSession(ctx, *c.session); err != nil {
			return AsError(err)
		}
	}

	if err := c.send(Success(packstream.Dict{})); err != nil {
		return err
	}
	c.state = StateReady
	return nil
}

func (c *Connection) handleRun(ctx context.Context, msg ClientMessage) error {
	if c.session == nil {
		return SessionError("no active session")
	}
	if err := c.maybeSwitchDatabase(ctx, msg.Extra); err != nil {
		return err
	}
	c.sm.Touch(*c.session)

	result, err := c.backend.Execute(ctx, *c.session, msg.Query, msg.Parameters, msg.Extra, c.transaction)
	if err != nil {
		return AsError(err)
	}

	c.pending = &pendingResult{records: result.Records, columns: result.Metadata.Columns, summary: result.Summary}

	fields := make([]packstream.Value, len(result.Metadata.Columns))
	for i, col := range result.Metadata.Columns {
		fields[i] = packstream.String(col)
	}
	meta := packstream.Dict{
		"fields":  packstream.ListValue(fields),
		"t_first": packstream.Integer(0),
	}
	if err := c.send(Success(meta)); err != nil {
		return err
	}
	c.state = c.state.TransitionSuccess(MsgRun)
	return nil
}

func (c *Connection) handlePull(msg ClientMessage) error {
	if c.pending == nil {
		return ErrNoPendingResult
	}

	n := int64(-1)
	if v, ok := msg.Extra["n"]; ok {
		if i, ok := v.AsInt(); ok {
			n = i
		}
	}

	offset := c.pending.offset
	total := len(c.pending.records)
	count := total - offset
	if n >= 0 {
		count = int(n)
	}
	end := offset + count
	if end > total {
		end = total
	}

	for _, rec := range c.pending.records[offset:end] {
		if err := c.send(recordMessage(rec.Values)); err != nil {
			return err
		}
	}
	c.pending.offset = end

	hasMore := end < total
	meta := packstream.Dict{"has_more": packstream.Boolean(hasMore)}
	if !hasMore {
		summary := c.pending.summary
		c.pending = nil
		for k, v := range summary {
			meta[k] = v
		}
		c.state = c.state.CompleteStreaming()
	}
	return c.send(Success(meta))
}

func (c *Connection) handleDiscard(msg ClientMessage) error {
	c.pending = nil
	c.state = c.state.CompleteStreaming()
	return c.send(Success(packstream.Dict{"has_more": packstream.Boolean(false)}))
}

func (c *Connection) handleBegin(ctx context.Context, msg ClientMessage) error {
	if c.session == nil {
		return SessionError("no active session")
	}
	if err := c.maybeSwitchDatabase(ctx, msg.Extra); err != nil {
		return err
	}

	tx, err := c.backend.BeginTransaction(ctx, *c.session, msg.Extra)
	if err != nil {
		return AsError(err)
	}
	c.transaction = &tx

	if err := c.send(Success(packstream.Dict{})); err != nil {
		return err
	}
	c.state = c.state.TransitionSuccess(msg.Kind)
	return nil
}

func (c *Connection) handleCommit(ctx context.Context, msg ClientMessage) error {
	if c.session == nil {
		return SessionError("no active session")
	}
	if c.transaction == nil {
		return TransactionError("no active transaction")
	}
	tx := *c.transaction
	c.transaction = nil

	metadata, err := c.backend.Commit(ctx, *c.session, tx)
	if err != nil {
		return AsError(err)
	}
	if metadata == nil {
		metadata = packstream.Dict{}
	}
	if err := c.send(Success(metadata)); err != nil {
		return err
	}
	c.state = c.state.TransitionSuccess(msg.Kind)
	return nil
}

func (c *Connection) handleRollback(ctx context.Context, msg ClientMessage) error {
	if c.session == nil {
		return SessionError("no active session")
	}
	if c.transaction == nil {
		return TransactionError("no active transaction")
	}
	tx := *c.transaction
	c.transaction = nil

	if err := c.backend.Rollback(ctx, *c.session, tx); err != nil {
		return AsError(err)
	}
	if err := c.send(Success(packstream.Dict{})); err != nil {
		return err
	}
	c.state = c.state.TransitionSuccess(msg.Kind)
	return nil
}

func (c *Connection) maybeSwitchDatabase(ctx context.Context, extra packstream.Dict) error {
	v, ok := extra["db"]
	if !ok {
		return nil
	}
	db, ok := v.AsString()
	if !ok {
		return nil
	}
	if err := c.backend.ConfigureSession(ctx, *c.session, SessionProperty{Database: db}); err != nil {
		return AsError(err)
	}
	return nil
}

// send encodes msg, frames it, and flushes, closing over the write path
// every handler uses.
func (c *Connection) send(msg ServerMessage) error {
	buf := EncodeServerMessage(nil, msg)
	if err := c.writer.WriteMessage(buf); err != nil {
		return err
	}
	return c.writer.Flush()
}

func (c *Connection) sendFailureMetadata(metadata packstream.Dict) {
	_ = c.send(Failure(metadata))
}

func (c *Connection) cleanup(ctx context.Context) {
	if c.session == nil {
		return
	}
	c.sm.Remove(*c.session)
	_ = c.backend.CloseSession(ctx, *c.session)
}
