package bolt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWireMetadataMapsKindToCode(t *testing.T) {
	cases := []struct {
		err      *Error
		wantCode string
	}{
		{ProtocolError("bad"), "Neo.ClientError.Request.Invalid"},
		{AuthenticationError("bad creds"), "Neo.ClientError.Security.Unauthorized"},
		{SessionError("no session"), "Neo.ClientError.Request.Invalid"},
		{TransactionError("no tx"), "Neo.ClientError.Transaction.TransactionStartFailed"},
		{QueryError("Neo.ClientError.Statement.SyntaxError", "bad query"), "Neo.ClientError.Statement.SyntaxError"},
		{ResourceExhaustedError("full"), "Neo.TransientError.General.MemoryPoolOutOfMemoryError"},
		{BackendError("oops"), "Neo.DatabaseError.General.UnknownError"},
	}
	for _, c := range cases {
		meta := c.err.WireMetadata()
		code, ok := meta["code"].AsString()
		assert.True(t, ok)
		assert.Equal(t, c.wantCode, code)
	}
}

func TestAsErrorWrapsPlainError(t *testing.T) {
	err := AsError(errors.New("boom"))
	assert.Equal(t, KindBackend, err.Kind)
}

func TestAsErrorPassesThroughExistingError(t *testing.T) {
	original := ProtocolError("bad")
	wrapped := AsError(original)
	assert.Same(t, original, wrapped)
}
