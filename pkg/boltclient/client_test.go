package boltclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/boltr/pkg/bolt"
	"github.com/GrafeoDB/boltr/pkg/boltauth"
	"github.com/GrafeoDB/boltr/pkg/boltstore"
	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// startTestServer binds an in-memory boltstore.Backend to a loopback port
// and returns its address, stopping the server on test cleanup.
func startTestServer(t *testing.T, opts ...bolt.Option) string {
	backend, err := boltstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	srv := bolt.NewServer(backend, append([]bolt.Option{bolt.WithAddr(addr)}, opts...)...)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.ListenAndServe(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		_ = srv.Close()
		<-done
	})

	// Give the listener a moment to bind before the first dial.
	for i := 0; i < 50; i++ {
		if conn, err := net.DialTimeout("tcp", addr, 20*time.Millisecond); err == nil {
			_ = conn.Close()
			return addr
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("server did not start listening on %s", addr)
	return ""
}

func TestSessionConnectRunPullGoodbye(t *testing.T) {
	addr := startTestServer(t)

	session, err := Connect(addr)
	require.NoError(t, err)

	result, err := session.Run("RETURN 1, 2")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Len(t, result.Records[0], 2)

	first, ok := result.Records[0][0].AsInt()
	require.True(t, ok)
	assert.EqualValues(t, 1, first)

	require.NoError(t, session.Close())
}

func TestSessionConnectBasicAuthenticates(t *testing.T) {
	validator := boltauth.NewValidator(boltauth.DefaultConfig())
	require.NoError(t, validator.Register("alice", "correct-password"))
	addr := startTestServer(t, bolt.WithAuth(validator))

	session, err := ConnectBasic(addr, "alice", "correct-password")
	require.NoError(t, err)
	require.NoError(t, session.Close())
}

func TestSessionConnectBasicRejectsWrongPassword(t *testing.T) {
	validator := boltauth.NewValidator(boltauth.DefaultConfig())
	require.NoError(t, validator.Register("alice", "correct-password"))
	addr := startTestServer(t, bolt.WithAuth(validator))

	_, err := ConnectBasic(addr, "alice", "wrong-password")
	assert.Error(t, err)
}

func TestSessionBeginCommitTransactionCycle(t *testing.T) {
	addr := startTestServer(t)
	session, err := Connect(addr)
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Begin())
	result, err := session.Run("RETURN 42")
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.NoError(t, session.Commit())
}

func TestSessionRunWithParamsResolvesBoundValue(t *testing.T) {
	addr := startTestServer(t)
	session, err := Connect(addr)
	require.NoError(t, err)
	defer session.Close()

	params := packstream.Dict{"name": packstream.String("alice")}
	result, err := session.RunWithParams("RETURN $name", params, nil)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)

	name, ok := result.Records[0][0].AsString()
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}
