package packstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeNull(t *testing.T) {
	assert.Equal(t, []byte{0xC0}, EncodeNull(nil))
}

func TestEncodeBool(t *testing.T) {
	assert.Equal(t, []byte{0xC3}, EncodeBool(nil, true))
	assert.Equal(t, []byte{0xC2}, EncodeBool(nil, false))
}

func TestEncodeIntTinyPositive(t *testing.T) {
	assert.Equal(t, []byte{0x00}, EncodeInt(nil, 0))
	assert.Equal(t, []byte{0x7F}, EncodeInt(nil, 127))
}

func TestEncodeIntTinyNegative(t *testing.T) {
	assert.Equal(t, []byte{0xF0}, EncodeInt(nil, -16))
	assert.Equal(t, []byte{0xFF}, EncodeInt(nil, -1))
}

func TestEncodeIntInt8(t *testing.T) {
	assert.Equal(t, []byte{0xC8, 0x80}, EncodeInt(nil, -128))
	assert.Equal(t, []byte{0xC8, 0x81}, EncodeInt(nil, -127))
}

func TestEncodeIntInt16(t *testing.T) {
	assert.Equal(t, []byte{0xC9, 0x01, 0x00}, EncodeInt(nil, 256))
}

func TestEncodeIntInt32(t *testing.T) {
	assert.Equal(t, []byte{0xCA, 0x00, 0x01, 0x00, 0x00}, EncodeInt(nil, 65536))
}

func TestEncodeIntInt64(t *testing.T) {
	buf := EncodeInt(nil, 1<<40)
	assert.Equal(t, byte(0xCB), buf[0])
	assert.Len(t, buf, 9)
}

func TestEncodeFloat(t *testing.T) {
	buf := EncodeFloat(nil, 1.0)
	assert.Equal(t, []byte{0xC1, 0x3F, 0xF0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, buf)
}

func TestEncodeStringTiny(t *testing.T) {
	assert.Equal(t, []byte{0x81, 'A'}, EncodeString(nil, "A"))
}

func TestEncodeStringEmpty(t *testing.T) {
	assert.Equal(t, []byte{0x80}, EncodeString(nil, ""))
}

func TestEncodeString8(t *testing.T) {
	s := make([]byte, 16)
	for i := range s {
		s[i] = 'a'
	}
	buf := EncodeString(nil, string(s))
	assert.Equal(t, byte(0xD0), buf[0])
	assert.Equal(t, byte(16), buf[1])
}

func TestEncodeBytes(t *testing.T) {
	buf := EncodeBytes(nil, []byte{1, 2, 3})
	assert.Equal(t, []byte{0xCC, 0x03, 0x01, 0x02, 0x03}, buf)
}

func TestEncodeListTiny(t *testing.T) {
	buf := EncodeList(nil, []Value{Integer(1), Integer(2)})
	assert.Equal(t, []byte{0x92, 0x01, 0x02}, buf)
}

func TestEncodeDictTiny(t *testing.T) {
	buf := EncodeDict(nil, Dict{"a": Integer(1)})
	assert.Equal(t, []byte{0xA1, 0x81, 'a', 0x01}, buf)
}

func TestEncodeStructHeader(t *testing.T) {
	buf := EncodeStructHeader(nil, TagNode, 4)
	assert.Equal(t, []byte{0xB4, TagNode}, buf)
}

func TestEncodeNode(t *testing.T) {
	n := &Node{ID: 1, Labels: []string{"Person"}, Properties: Dict{}, ElementID: "n-1"}
	buf := EncodeNode(nil, n)

	dec := NewDecoder(buf)
	v, err := dec.DecodeValue()
	assert.NoError(t, err)
	assert.Equal(t, KindNode, v.Kind)
	assert.True(t, Equal(Value{Kind: KindNode, Node: n}, v))
}

func TestEncodePoint2D(t *testing.T) {
	p := &Point2D{SRID: 7203, X: 1.0, Y: 2.0}
	buf := EncodePoint2D(nil, p)
	dec := NewDecoder(buf)
	v, err := dec.DecodeValue()
	assert.NoError(t, err)
	assert.True(t, Equal(Value{Kind: KindPoint2D, Point2D: p}, v))
}

func TestEncodeDuration(t *testing.T) {
	d := &Duration{Months: 1, Days: 2, Seconds: 3, Nanoseconds: 4}
	buf := EncodeDuration(nil, d)
	dec := NewDecoder(buf)
	v, err := dec.DecodeValue()
	assert.NoError(t, err)
	assert.True(t, Equal(Value{Kind: KindDuration, Duration: d}, v))
}
