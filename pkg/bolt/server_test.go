package bolt

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// stubBackend is a minimal in-memory Backend for exercising the server
// and connection lifecycle without a real storage engine.
type stubBackend struct {
	nextSession int
	nextTx      int
}

func (b *stubBackend) CreateSession(ctx context.Context, config SessionConfig) (SessionHandle, error) {
	b.nextSession++
	return SessionHandle("s" + strconv.Itoa(b.nextSession)), nil
}

func (b *stubBackend) CloseSession(ctx context.Context, session SessionHandle) error { return nil }

func (b *stubBackend) ConfigureSession(ctx context.Context, session SessionHandle, property SessionProperty) error {
	return nil
}

func (b *stubBackend) ResetSession(ctx context.Context, session SessionHandle) error { return nil }

func (b *stubBackend) Execute(ctx context.Context, session SessionHandle, query string, parameters packstream.Dict, extra packstream.Dict, transaction *TransactionHandle) (ResultStream, error) {
	return ResultStream{
		Metadata: ResultMetadata{Columns: []string{"n"}},
		Records:  []Record{{Values: []packstream.Value{packstream.Integer(1)}}},
		Summary:  packstream.Dict{"type": packstream.String("r")},
	}, nil
}

func (b *stubBackend) BeginTransaction(ctx context.Context, session SessionHandle, extra packstream.Dict) (TransactionHandle, error) {
	b.nextTx++
	return TransactionHandle("tx" + strconv.Itoa(b.nextTx)), nil
}

func (b *stubBackend) Commit(ctx context.Context, session SessionHandle, transaction TransactionHandle) (packstream.Dict, error) {
	return packstream.Dict{}, nil
}

func (b *stubBackend) Rollback(ctx context.Context, session SessionHandle, transaction TransactionHandle) error {
	return nil
}

func (b *stubBackend) GetServerInfo(ctx context.Context) (packstream.Dict, error) {
	return packstream.Dict{"server": packstream.String("boltr-test/0.0.0")}, nil
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "127.0.0.1:7687", cfg.Addr)
	assert.Equal(t, 0, cfg.MaxSessions)
}

func TestNewServerAppliesOptions(t *testing.T) {
	s := NewServer(&stubBackend{}, WithAddr("127.0.0.1:0"), WithMaxSessions(3))
	assert.Equal(t, "127.0.0.1:0", s.cfg.Addr)
	assert.Equal(t, 3, s.cfg.MaxSessions)
}

// TestServerFullSessionLifecycle drives a real TCP connection through
// handshake, HELLO, LOGON, RUN, PULL, GOODBYE.
func TestServerFullSessionLifecycle(t *testing.T) {
	backend := &stubBackend{}
	srv := NewServer(backend, WithAddr("127.0.0.1:0"))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv.listener = ln
	addr := ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		srv.wg.Add(1)
		srv.serveConn(ctx, conn)
	}()

	clientConn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	require.NoError(t, err)
	defer clientConn.Close()

	major, minor, err := ClientHandshake(clientConn, defaultClientProposals())
	require.NoError(t, err)
	assert.Equal(t, byte(5), major)
	assert.Equal(t, byte(4), minor)

	writer := NewChunkWriter(clientConn)
	reader := NewChunkReader(clientConn)

	sendAndExpectSuccess := func(msg ClientMessage) packstream.Dict {
		buf := EncodeClientMessage(nil, msg)
		require.NoError(t, writer.WriteMessage(buf))
		raw, err := reader.ReadMessage()
		require.NoError(t, err)
		resp, err := DecodeServerMessage(packstream.NewDecoder(raw))
		require.NoError(t, err)
		require.Equal(t, MsgSuccess, resp.Kind)
		return resp.Metadata
	}

	helloMeta := sendAndExpectSuccess(ClientMessage{Kind: MsgHello, Extra: packstream.Dict{"user_agent": packstream.String("test/1.0")}})
	assert.Contains(t, helloMeta, "connection_id")

	sendAndExpectSuccess(ClientMessage{Kind: MsgLogon, Extra: packstream.Dict{"scheme": packstream.String("none")}})

	runMeta := sendAndExpectSuccess(ClientMessage{Kind: MsgRun, Query: "RETURN 1", Parameters: packstream.Dict{}, Extra: packstream.Dict{}})
	assert.Contains(t, runMeta, "fields")

	pullBuf := EncodeClientMessage(nil, PullAll())
	require.NoError(t, writer.WriteMessage(pullBuf))

	raw, err := reader.ReadMessage()
	require.NoError(t, err)
	recordMsg, err := DecodeServerMessage(packstream.NewDecoder(raw))
	require.NoError(t, err)
	require.Equal(t, MsgRecord, recordMsg.Kind)

	raw, err = reader.ReadMessage()
	require.NoError(t, err)
	successMsg, err := DecodeServerMessage(packstream.NewDecoder(raw))
	require.NoError(t, err)
	require.Equal(t, MsgSuccess, successMsg.Kind)

	goodbyeBuf := EncodeClientMessage(nil, ClientMessage{Kind: MsgGoodbye})
	require.NoError(t, writer.WriteMessage(goodbyeBuf))
}
