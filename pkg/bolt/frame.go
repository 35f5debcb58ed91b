package bolt

import (
	"encoding/binary"
	"io"
)

// maxChunkSize is the largest payload a single chunk header can address.
const maxChunkSize = 0xFFFF

// ChunkReader reassembles a full message from the Bolt chunked-framing
// wire format: a sequence of 2-byte big-endian length-prefixed chunks
// terminated by a zero-length chunk.
type ChunkReader struct {
	r   io.Reader
	buf []byte
}

// NewChunkReader wraps r for chunk-framed message reads.
func NewChunkReader(r io.Reader) *ChunkReader {
	return &ChunkReader{r: r}
}

// ReadMessage blocks until one full message has been reassembled from
// chunks, or returns the read error that interrupted it.
func (c *ChunkReader) ReadMessage() ([]byte, error) {
	c.buf = c.buf[:0]
	var header [2]byte
	for {
		if _, err := io.ReadFull(c.r, header[:]); err != nil {
			return nil, err
		}
		n := binary.BigEndian.Uint16(header[:])
		if n == 0 {
			return c.buf, nil
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(c.r, chunk); err != nil {
			return nil, err
		}
		c.buf = append(c.buf, chunk...)
	}
}

// ChunkWriter splits a message into chunk-framed writes terminated by a
// zero-length chunk, per the Bolt wire format.
type ChunkWriter struct {
	w   io.Writer
	buf []byte
}

// NewChunkWriter wraps w for chunk-framed message writes.
func NewChunkWriter(w io.Writer) *ChunkWriter {
	return &ChunkWriter{w: w}
}

// WriteMessage chunk-splits payload (into pieces of at most 65535 bytes),
// writes each chunk header and body, then writes the terminator.
func (c *ChunkWriter) WriteMessage(payload []byte) error {
	c.buf = c.buf[:0]
	for len(payload) > 0 {
		n := len(payload)
		if n > maxChunkSize {
			n = maxChunkSize
		}
		c.buf = appendChunkHeader(c.buf, uint16(n))
		c.buf = append(c.buf, payload[:n]...)
		payload = payload[n:]
	}
	c.buf = appendChunkHeader(c.buf, 0)
	_, err := c.w.Write(c.buf)
	return err
}

// Flush flushes the underlying writer if it supports flushing.
func (c *ChunkWriter) Flush() error {
	if f, ok := c.w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

func appendChunkHeader(buf []byte, n uint16) []byte {
	var header [2]byte
	binary.BigEndian.PutUint16(header[:], n)
	return append(buf, header[:]...)
}
