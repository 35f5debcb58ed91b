package packstream

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeValue appends the PackStream encoding of v to buf and returns the
// extended slice.
func EncodeValue(buf []byte, v Value) []byte {
	switch v.Kind {
	case KindNull:
		return EncodeNull(buf)
	case KindBoolean:
		return EncodeBool(buf, v.Bool)
	case KindInteger:
		return EncodeInt(buf, v.Int)
	case KindFloat:
		return EncodeFloat(buf, v.Float)
	case KindString:
		return EncodeString(buf, v.Str)
	case KindBytes:
		return EncodeBytes(buf, v.Bytes)
	case KindList:
		return EncodeList(buf, v.List)
	case KindDict:
		return EncodeDict(buf, v.Dict)
	case KindNode:
		return EncodeNode(buf, v.Node)
	case KindRelationship:
		return EncodeRelationship(buf, v.Relationship)
	case KindUnboundRelationship:
		return EncodeUnboundRelationship(buf, v.UnboundRelationship)
	case KindPath:
		return EncodePath(buf, v.Path)
	case KindDate:
		return EncodeDate(buf, v.Date)
	case KindTime:
		return EncodeTime(buf, v.Time)
	case KindLocalTime:
		return EncodeLocalTime(buf, v.LocalTime)
	case KindDateTime:
		return EncodeDateTime(buf, v.DateTime)
	case KindDateTimeZoneID:
		return EncodeDateTimeZoneID(buf, v.DateTimeZoneID)
	case KindLocalDateTime:
		return EncodeLocalDateTime(buf, v.LocalDateTime)
	case KindDuration:
		return EncodeDuration(buf, v.Duration)
	case KindPoint2D:
		return EncodePoint2D(buf, v.Point2D)
	case KindPoint3D:
		return EncodePoint3D(buf, v.Point3D)
	default:
		panic(fmt.Sprintf("packstream: unknown value kind %d", v.Kind))
	}
}

// EncodeNull appends the NULL marker.
func EncodeNull(buf []byte) []byte {
	return append(buf, markerNull)
}

// EncodeBool appends the TRUE or FALSE marker.
func EncodeBool(buf []byte, b bool) []byte {
	if b {
		return append(buf, markerTrue)
	}
	return append(buf, markerFalse)
}

// EncodeInt appends the smallest marker/payload pair that represents i.
func EncodeInt(buf []byte, i int64) []byte {
	switch {
	case i >= -16 && i <= 127:
		return append(buf, byte(i))
	case i >= math.MinInt8 && i <= math.MaxInt8:
		return append(buf, markerInt8, byte(i))
	case i >= math.MinInt16 && i <= math.MaxInt16:
		buf = append(buf, markerInt16)
		return appendUint16(buf, uint16(i))
	case i >= math.MinInt32 && i <= math.MaxInt32:
		buf = append(buf, markerInt32)
		return appendUint32(buf, uint32(i))
	default:
		buf = append(buf, markerInt64)
		return appendUint64(buf, uint64(i))
	}
}

// EncodeFloat appends the FLOAT_64 marker and its big-endian IEEE 754 bits.
func EncodeFloat(buf []byte, f float64) []byte {
	buf = append(buf, markerFloat64)
	return appendUint64(buf, math.Float64bits(f))
}

// EncodeString appends the smallest header for len(s) followed by its bytes.
func EncodeString(buf []byte, s string) []byte {
	buf = EncodeStringHeader(buf, len(s))
	return append(buf, s...)
}

// EncodeStringHeader appends a tiny/8/16/32-bit string length header for n.
func EncodeStringHeader(buf []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(buf, tinyStringNibble|byte(n))
	case n <= 0xFF:
		return append(buf, markerString8, byte(n))
	case n <= 0xFFFF:
		buf = append(buf, markerString16)
		return appendUint16(buf, uint16(n))
	default:
		buf = append(buf, markerString32)
		return appendUint32(buf, uint32(n))
	}
}

// EncodeBytes appends the smallest BYTES header for len(b) followed by b.
func EncodeBytes(buf []byte, b []byte) []byte {
	switch {
	case len(b) <= 0xFF:
		buf = append(buf, markerBytes8, byte(len(b)))
	case len(b) <= 0xFFFF:
		buf = append(buf, markerBytes16)
		buf = appendUint16(buf, uint16(len(b)))
	default:
		buf = append(buf, markerBytes32)
		buf = appendUint32(buf, uint32(len(b)))
	}
	return append(buf, b...)
}

// EncodeList appends the smallest LIST header for len(items) followed by
// each item in order.
func EncodeList(buf []byte, items []Value) []byte {
	buf = EncodeListHeader(buf, len(items))
	for _, item := range items {
		buf = EncodeValue(buf, item)
	}
	return buf
}

// EncodeListHeader appends a tiny/8/16/32-bit list length header for n.
func EncodeListHeader(buf []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(buf, tinyListNibble|byte(n))
	case n <= 0xFF:
		return append(buf, markerList8, byte(n))
	case n <= 0xFFFF:
		buf = append(buf, markerList16)
		return appendUint16(buf, uint16(n))
	default:
		buf = append(buf, markerList32)
		return appendUint32(buf, uint32(n))
	}
}

// EncodeDict appends the smallest DICT header for len(d) followed by each
// key/value pair. Iteration order over d is unspecified.
func EncodeDict(buf []byte, d Dict) []byte {
	buf = EncodeDictHeader(buf, len(d))
	for k, v := range d {
		buf = EncodeString(buf, k)
		buf = EncodeValue(buf, v)
	}
	return buf
}

// EncodeDictHeader appends a tiny/8/16/32-bit dict entry-count header for n.
func EncodeDictHeader(buf []byte, n int) []byte {
	switch {
	case n <= 15:
		return append(buf, tinyDictNibble|byte(n))
	case n <= 0xFF:
		return append(buf, markerDict8, byte(n))
	case n <= 0xFFFF:
		buf = append(buf, markerDict16)
		return appendUint16(buf, uint16(n))
	default:
		buf = append(buf, markerDict32)
		return appendUint32(buf, uint32(n))
	}
}

// EncodeStructHeader appends a TINY_STRUCT marker for fieldCount followed
// by tag. fieldCount must be at most 15; every Bolt struct satisfies this.
func EncodeStructHeader(buf []byte, tag byte, fieldCount int) []byte {
	buf = append(buf, tinyStructNibble|byte(fieldCount))
	return append(buf, tag)
}

// EncodeNode appends a Node struct: id, labels, properties, element id.
func EncodeNode(buf []byte, n *Node) []byte {
	buf = EncodeStructHeader(buf, TagNode, 4)
	buf = EncodeInt(buf, n.ID)
	buf = EncodeStringList(buf, n.Labels)
	buf = EncodeDict(buf, n.Properties)
	return EncodeString(buf, n.ElementID)
}

// EncodeRelationship appends a Relationship struct: id, endpoints, type,
// properties, and the string element ids.
func EncodeRelationship(buf []byte, r *Relationship) []byte {
	buf = EncodeStructHeader(buf, TagRelationship, 8)
	buf = EncodeInt(buf, r.ID)
	buf = EncodeInt(buf, r.StartNodeID)
	buf = EncodeInt(buf, r.EndNodeID)
	buf = EncodeString(buf, r.Type)
	buf = EncodeDict(buf, r.Properties)
	buf = EncodeString(buf, r.ElementID)
	buf = EncodeString(buf, r.StartElementID)
	return EncodeString(buf, r.EndElementID)
}

// EncodeUnboundRelationship appends an UnboundRelationship struct: id,
// type, properties, element id.
func EncodeUnboundRelationship(buf []byte, r *UnboundRelationship) []byte {
	buf = EncodeStructHeader(buf, TagUnboundRelationship, 4)
	buf = EncodeInt(buf, r.ID)
	buf = EncodeString(buf, r.Type)
	buf = EncodeDict(buf, r.Properties)
	return EncodeString(buf, r.ElementID)
}

// EncodePath appends a Path struct: nodes, unbound relationships, indices.
func EncodePath(buf []byte, p *Path) []byte {
	buf = EncodeStructHeader(buf, TagPath, 3)
	buf = EncodeListHeader(buf, len(p.Nodes))
	for i := range p.Nodes {
		buf = EncodeNode(buf, &p.Nodes[i])
	}
	buf = EncodeListHeader(buf, len(p.Rels))
	for i := range p.Rels {
		buf = EncodeUnboundRelationship(buf, &p.Rels[i])
	}
	buf = EncodeListHeader(buf, len(p.Indices))
	for _, idx := range p.Indices {
		buf = EncodeInt(buf, idx)
	}
	return buf
}

// EncodeDate appends a Date struct: days since epoch.
func EncodeDate(buf []byte, d *Date) []byte {
	buf = EncodeStructHeader(buf, TagDate, 1)
	return EncodeInt(buf, d.Days)
}

// EncodeTime appends a Time struct: nanoseconds, UTC offset seconds.
func EncodeTime(buf []byte, t *Time) []byte {
	buf = EncodeStructHeader(buf, TagTime, 2)
	buf = EncodeInt(buf, t.Nanoseconds)
	return EncodeInt(buf, t.TZOffsetSeconds)
}

// EncodeLocalTime appends a LocalTime struct: nanoseconds.
func EncodeLocalTime(buf []byte, t *LocalTime) []byte {
	buf = EncodeStructHeader(buf, TagLocalTime, 1)
	return EncodeInt(buf, t.Nanoseconds)
}

// EncodeDateTime appends a DateTime struct: seconds, nanoseconds, UTC
// offset seconds.
func EncodeDateTime(buf []byte, t *DateTime) []byte {
	buf = EncodeStructHeader(buf, TagDateTime, 3)
	buf = EncodeInt(buf, t.Seconds)
	buf = EncodeInt(buf, t.Nanoseconds)
	return EncodeInt(buf, t.TZOffsetSeconds)
}

// EncodeDateTimeZoneID appends a DateTimeZoneID struct: seconds,
// nanoseconds, IANA timezone id.
func EncodeDateTimeZoneID(buf []byte, t *DateTimeZoneID) []byte {
	buf = EncodeStructHeader(buf, TagDateTimeZoneID, 3)
	buf = EncodeInt(buf, t.Seconds)
	buf = EncodeInt(buf, t.Nanoseconds)
	return EncodeString(buf, t.TZID)
}

// EncodeLocalDateTime appends a LocalDateTime struct: seconds, nanoseconds.
func EncodeLocalDateTime(buf []byte, t *LocalDateTime) []byte {
	buf = EncodeStructHeader(buf, TagLocalDateTime, 2)
	buf = EncodeInt(buf, t.Seconds)
	return EncodeInt(buf, t.Nanoseconds)
}

// EncodeDuration appends a Duration struct: months, days, seconds,
// nanoseconds.
func EncodeDuration(buf []byte, d *Duration) []byte {
	buf = EncodeStructHeader(buf, TagDuration, 4)
	buf = EncodeInt(buf, d.Months)
	buf = EncodeInt(buf, d.Days)
	buf = EncodeInt(buf, d.Seconds)
	return EncodeInt(buf, d.Nanoseconds)
}

// EncodePoint2D appends a Point2D struct: SRID, x, y.
func EncodePoint2D(buf []byte, p *Point2D) []byte {
	buf = EncodeStructHeader(buf, TagPoint2D, 3)
	buf = EncodeInt(buf, p.SRID)
	buf = EncodeFloat(buf, p.X)
	return EncodeFloat(buf, p.Y)
}

// EncodePoint3D appends a Point3D struct: SRID, x, y, z.
func EncodePoint3D(buf []byte, p *Point3D) []byte {
	buf = EncodeStructHeader(buf, TagPoint3D, 4)
	buf = EncodeInt(buf, p.SRID)
	buf = EncodeFloat(buf, p.X)
	buf = EncodeFloat(buf, p.Y)
	return EncodeFloat(buf, p.Z)
}

// EncodeStringList appends a PackStream list of strings, used for node
// labels.
func EncodeStringList(buf []byte, ss []string) []byte {
	buf = EncodeListHeader(buf, len(ss))
	for _, s := range ss {
		buf = EncodeString(buf, s)
	}
	return buf
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}
