package bolt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GrafeoDB/boltr/pkg/packstream"
)

func TestHelloRoundTrip(t *testing.T) {
	msg := ClientMessage{Kind: MsgHello, Extra: packstream.Dict{"user_agent": packstream.String("boltr-test/0.1")}}
	buf := EncodeClientMessage(nil, msg)

	decoded, err := DecodeClientMessage(packstream.NewDecoder(buf))
	require.NoError(t, err)
	assert.Equal(t, MsgHello, decoded.Kind)
	ua, ok := decoded.Extra["user_agent"].AsString()
	require.True(t, ok)
	assert.Equal(t, "boltr-test/0.1", ua)
}

func TestRunRoundTrip(t *testing.T) {
	msg := ClientMessage{
		Kind:       MsgRun,
		Query:      "RETURN 1",
		Parameters: packstream.Dict{"x": packstream.Integer(1)},
		Extra:      packstream.Dict{},
	}
	buf := EncodeClientMessage(nil, msg)

	decoded, err := DecodeClientMessage(packstream.NewDecoder(buf))
	require.NoError(t, err)
	assert.Equal(t, "RETURN 1", decoded.Query)
	x, ok := decoded.Parameters["x"].AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(1), x)
}

func TestSuccessServerIdentityRoundTrip(t *testing.T) {
	msg := Success(packstream.Dict{"server": packstream.String("GrafeoDB/0.4.4")})
	buf := EncodeServerMessage(nil, msg)

	decoded, err := DecodeServerMessage(packstream.NewDecoder(buf))
	require.NoError(t, err)
	assert.Equal(t, MsgSuccess, decoded.Kind)
	server, ok := decoded.Metadata["server"].AsString()
	require.True(t, ok)
	assert.Equal(t, "GrafeoDB/0.4.4", server)
}

func TestFailureRoundTrip(t *testing.T) {
	msg := Failure(packstream.Dict{
		"code":    packstream.String("Neo.ClientError.Statement.SyntaxError"),
		"message": packstream.String("bad query"),
	})
	buf := EncodeServerMessage(nil, msg)

	decoded, err := DecodeServerMessage(packstream.NewDecoder(buf))
	require.NoError(t, err)
	assert.Equal(t, MsgFailure, decoded.Kind)
	code, _ := decoded.Metadata["code"].AsString()
	assert.Equal(t, "Neo.ClientError.Statement.SyntaxError", code)
}

func TestRunRejectsTooFewFields(t *testing.T) {
	buf := packstream.EncodeStructHeader(nil, sigRun, 1)
	buf = packstream.EncodeString(buf, "RETURN 1")

	_, err := DecodeClientMessage(packstream.NewDecoder(buf))
	require.Error(t, err)
}

func TestExpectFieldsToleratesExtraFields(t *testing.T) {
	buf := packstream.EncodeStructHeader(nil, sigHello, 2)
	buf = packstream.EncodeDict(buf, packstream.Dict{})
	buf = packstream.EncodeString(buf, "extra")
	_, err := DecodeClientMessage(packstream.NewDecoder(buf))
	require.NoError(t, err)
}

func TestUnknownClientTagErrors(t *testing.T) {
	buf := packstream.EncodeStructHeader(nil, 0xAB, 0)
	_, err := DecodeClientMessage(packstream.NewDecoder(buf))
	require.Error(t, err)
}

func TestPullAllEncodesMinusOne(t *testing.T) {
	buf := EncodeClientMessage(nil, PullAll())
	decoded, err := DecodeClientMessage(packstream.NewDecoder(buf))
	require.NoError(t, err)
	n, ok := decoded.Extra["n"].AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(-1), n)
}
