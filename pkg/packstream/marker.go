// Package packstream implements the PackStream binary value codec used by
// the Bolt wire protocol: a self-describing, big-endian format where a
// single marker byte introduces every encoded value.
package packstream

// Marker bytes for PackStream types that do not fit the tiny-form ranges.
const (
	markerNull    byte = 0xC0
	markerFloat64 byte = 0xC1
	markerFalse   byte = 0xC2
	markerTrue    byte = 0xC3

	markerInt8  byte = 0xC8
	markerInt16 byte = 0xC9
	markerInt32 byte = 0xCA
	markerInt64 byte = 0xCB

	markerBytes8  byte = 0xCC
	markerBytes16 byte = 0xCD
	markerBytes32 byte = 0xCE

	markerString8  byte = 0xD0
	markerString16 byte = 0xD1
	markerString32 byte = 0xD2

	markerList8  byte = 0xD4
	markerList16 byte = 0xD5
	markerList32 byte = 0xD6

	markerDict8  byte = 0xD8
	markerDict16 byte = 0xD9
	markerDict32 byte = 0xDA

	// Tiny-form high nibbles. The low nibble carries the count/length.
	tinyStringNibble byte = 0x80
	tinyListNibble   byte = 0x90
	tinyDictNibble   byte = 0xA0
	tinyStructNibble byte = 0xB0
)

// Struct tag bytes for graph, temporal, and spatial structures.
const (
	TagNode                byte = 0x4E
	TagRelationship        byte = 0x52
	TagUnboundRelationship byte = 0x72
	TagPath                byte = 0x50
	TagDate                byte = 0x44
	TagTime                byte = 0x54
	TagLocalTime           byte = 0x74
	TagDateTime            byte = 0x49
	TagDateTimeZoneID      byte = 0x69
	TagLocalDateTime       byte = 0x64
	TagDuration            byte = 0x45
	TagPoint2D             byte = 0x58
	TagPoint3D             byte = 0x59
)
