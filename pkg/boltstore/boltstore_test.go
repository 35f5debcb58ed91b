package boltstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/boltr/pkg/bolt"
	"github.com/GrafeoDB/boltr/pkg/packstream"
)

func createTestBackend(t *testing.T) *Backend {
	b, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestGetServerInfoReportsIdentity(t *testing.T) {
	b := createTestBackend(t)
	info, err := b.GetServerInfo(context.Background())
	require.NoError(t, err)
	server, ok := info["server"].AsString()
	require.True(t, ok)
	assert.Equal(t, ServerIdentity, server)
}

func TestCreateAndCloseSessionRoundTrip(t *testing.T) {
	b := createTestBackend(t)
	ctx := context.Background()

	session, err := b.CreateSession(ctx, bolt.SessionConfig{UserAgent: "boltr-test/0.0.0"})
	require.NoError(t, err)
	assert.NotEmpty(t, session)

	require.NoError(t, b.CloseSession(ctx, session))
}

func TestConfigureSessionUnknownSessionErrors(t *testing.T) {
	b := createTestBackend(t)
	err := b.ConfigureSession(context.Background(), bolt.SessionHandle("missing"), bolt.SessionProperty{Database: "neo4j"})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConfigureSessionUpdatesDatabase(t *testing.T) {
	b := createTestBackend(t)
	ctx := context.Background()
	session, err := b.CreateSession(ctx, bolt.SessionConfig{})
	require.NoError(t, err)

	require.NoError(t, b.ConfigureSession(ctx, session, bolt.SessionProperty{Database: "otherdb"}))
}

func TestExecuteReturnsIntegerLiterals(t *testing.T) {
	b := createTestBackend(t)
	ctx := context.Background()
	session, err := b.CreateSession(ctx, bolt.SessionConfig{})
	require.NoError(t, err)

	result, err := b.Execute(ctx, session, "RETURN 1, 2", nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Len(t, result.Records[0].Values, 2)

	first, ok := result.Records[0].Values[0].AsInt()
	require.True(t, ok)
	assert.EqualValues(t, 1, first)
}

func TestExecuteResolvesBoundParameter(t *testing.T) {
	b := createTestBackend(t)
	ctx := context.Background()
	session, err := b.CreateSession(ctx, bolt.SessionConfig{})
	require.NoError(t, err)

	params := packstream.Dict{"name": packstream.String("alice")}
	result, err := b.Execute(ctx, session, "RETURN $name", params, nil, nil)
	require.NoError(t, err)

	name, ok := result.Records[0].Values[0].AsString()
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}

func TestExecuteRejectsUnsupportedQuery(t *testing.T) {
	b := createTestBackend(t)
	ctx := context.Background()
	session, err := b.CreateSession(ctx, bolt.SessionConfig{})
	require.NoError(t, err)

	_, err = b.Execute(ctx, session, "MATCH (n) RETURN n", nil, nil, nil)
	require.Error(t, err)
	boltErr := bolt.AsError(err)
	assert.Equal(t, bolt.KindQuery, boltErr.Kind)
}

func TestBeginCommitReturnsBookmark(t *testing.T) {
	b := createTestBackend(t)
	ctx := context.Background()
	session, err := b.CreateSession(ctx, bolt.SessionConfig{})
	require.NoError(t, err)

	tx, err := b.BeginTransaction(ctx, session, nil)
	require.NoError(t, err)

	meta, err := b.Commit(ctx, session, tx)
	require.NoError(t, err)
	_, ok := meta["bookmark"].AsString()
	assert.True(t, ok)
}

func TestCommitUnknownTransactionErrors(t *testing.T) {
	b := createTestBackend(t)
	ctx := context.Background()
	session, err := b.CreateSession(ctx, bolt.SessionConfig{})
	require.NoError(t, err)

	_, err = b.Commit(ctx, session, bolt.TransactionHandle("bogus"))
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRollbackReleasesTransaction(t *testing.T) {
	b := createTestBackend(t)
	ctx := context.Background()
	session, err := b.CreateSession(ctx, bolt.SessionConfig{})
	require.NoError(t, err)

	tx, err := b.BeginTransaction(ctx, session, nil)
	require.NoError(t, err)
	require.NoError(t, b.Rollback(ctx, session, tx))

	err = b.Rollback(ctx, session, tx)
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}
