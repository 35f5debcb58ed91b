package bolt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	writer := NewChunkWriter(buf)
	require.NoError(t, writer.WriteMessage([]byte("hello bolt")))

	reader := NewChunkReader(buf)
	msg, err := reader.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello bolt", string(msg))
}

func TestChunkEmptyPayloadWritesOnlyTerminator(t *testing.T) {
	buf := &bytes.Buffer{}
	writer := NewChunkWriter(buf)
	require.NoError(t, writer.WriteMessage(nil))
	assert.Equal(t, []byte{0x00, 0x00}, buf.Bytes())
}

func TestChunkSplitsOversizedPayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, maxChunkSize+10)
	buf := &bytes.Buffer{}
	writer := NewChunkWriter(buf)
	require.NoError(t, writer.WriteMessage(payload))

	reader := NewChunkReader(buf)
	msg, err := reader.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, payload, msg)
}

func TestChunkMultipleMessagesSequentially(t *testing.T) {
	buf := &bytes.Buffer{}
	writer := NewChunkWriter(buf)
	require.NoError(t, writer.WriteMessage([]byte("first")))
	require.NoError(t, writer.WriteMessage([]byte("second")))

	reader := NewChunkReader(buf)
	first, err := reader.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "first", string(first))

	second, err := reader.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "second", string(second))
}
