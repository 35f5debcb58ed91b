package packstream

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Decoder reads PackStream-encoded values from an in-memory buffer. It
// tracks a read cursor rather than consuming the slice, so partially
// decoded structs can report precisely how many bytes they still need.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for sequential decoding starting at offset 0.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Pos returns the current read offset into the underlying buffer.
func (d *Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// ReadByte reads and returns the next raw byte. It is exposed for callers
// that need to peek at a struct marker or tag byte before delegating the
// rest of the value to DecodeValue, such as the bolt message decoders.
func (d *Decoder) ReadByte() (byte, error) {
	return d.readByte()
}

func (d *Decoder) ensureRemaining(needed int) error {
	if d.Remaining() < needed {
		return fmt.Errorf("unexpected end of data: need %d bytes but only %d remaining", needed, d.Remaining())
	}
	return nil
}

func (d *Decoder) readByte() (byte, error) {
	if err := d.ensureRemaining(1); err != nil {
		return 0, err
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *Decoder) readBytes(n int) ([]byte, error) {
	if err := d.ensureRemaining(n); err != nil {
		return nil, err
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *Decoder) readUint16() (uint16, error) {
	b, err := d.readBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (d *Decoder) readUint32() (uint32, error) {
	b, err := d.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *Decoder) readUint64() (uint64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// DecodeValue reads and returns the next PackStream value.
func (d *Decoder) DecodeValue() (Value, error) {
	marker, err := d.readByte()
	if err != nil {
		return Value{}, err
	}

	switch marker {
	case markerNull:
		return Null, nil
	case markerFloat64:
		bits, err := d.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Float64(math.Float64frombits(bits)), nil
	case markerFalse:
		return Boolean(false), nil
	case markerTrue:
		return Boolean(true), nil
	case markerInt8:
		b, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return Integer(int64(int8(b))), nil
	case markerInt16:
		u, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return Integer(int64(int16(u))), nil
	case markerInt32:
		u, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return Integer(int64(int32(u))), nil
	case markerInt64:
		u, err := d.readUint64()
		if err != nil {
			return Value{}, err
		}
		return Integer(int64(u)), nil
	case markerBytes8:
		n, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return d.decodeBytesData(int(n))
	case markerBytes16:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeBytesData(int(n))
	case markerBytes32:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeBytesData(int(n))
	case markerString8:
		n, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return d.decodeStringData(int(n))
	case markerString16:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeStringData(int(n))
	case markerString32:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeStringData(int(n))
	case markerList8:
		n, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return d.decodeListData(int(n))
	case markerList16:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeListData(int(n))
	case markerList32:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeListData(int(n))
	case markerDict8:
		n, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return d.decodeDictData(int(n))
	case markerDict16:
		n, err := d.readUint16()
		if err != nil {
			return Value{}, err
		}
		return d.decodeDictData(int(n))
	case markerDict32:
		n, err := d.readUint32()
		if err != nil {
			return Value{}, err
		}
		return d.decodeDictData(int(n))
	}

	high := marker & 0xF0
	low := marker & 0x0F

	switch high {
	case tinyStringNibble:
		return d.decodeStringData(int(low))
	case tinyListNibble:
		return d.decodeListData(int(low))
	case tinyDictNibble:
		return d.decodeDictData(int(low))
	case tinyStructNibble:
		tag, err := d.readByte()
		if err != nil {
			return Value{}, err
		}
		return d.decodeStruct(tag, int(low))
	}

	if marker <= 0x7F {
		return Integer(int64(marker)), nil
	}
	if marker >= 0xF0 {
		return Integer(int64(int8(marker))), nil
	}

	return Value{}, fmt.Errorf("unknown marker: 0x%02X", marker)
}

func (d *Decoder) decodeBytesData(n int) (Value, error) {
	b, err := d.readBytes(n)
	if err != nil {
		return Value{}, err
	}
	out := make([]byte, n)
	copy(out, b)
	return BytesValue(out), nil
}

func (d *Decoder) decodeStringData(n int) (Value, error) {
	b, err := d.readBytes(n)
	if err != nil {
		return Value{}, err
	}
	if !utf8.Valid(b) {
		return Value{}, fmt.Errorf("invalid UTF-8")
	}
	return String(string(b)), nil
}

func (d *Decoder) decodeListData(n int) (Value, error) {
	items := make([]Value, n)
	for i := 0; i < n; i++ {
		v, err := d.DecodeValue()
		if err != nil {
			return Value{}, err
		}
		items[i] = v
	}
	return ListValue(items), nil
}

func (d *Decoder) decodeDictData(n int) (Value, error) {
	dict := make(Dict, n)
	for i := 0; i < n; i++ {
		key, err := d.DecodeValue()
		if err != nil {
			return Value{}, err
		}
		keyStr, ok := key.AsString()
		if !ok {
			return Value{}, fmt.Errorf("dict key must be a string, got: %s", key)
		}
		val, err := d.DecodeValue()
		if err != nil {
			return Value{}, err
		}
		dict[keyStr] = val
	}
	return DictValue(dict), nil
}

// decodeStruct dispatches on tag. An unrecognized tag still drains exactly
// fieldCount values so the stream stays aligned for the next message, then
// reports an error.
func (d *Decoder) decodeStruct(tag byte, fieldCount int) (Value, error) {
	switch tag {
	case TagNode:
		return d.decodeNode(fieldCount)
	case TagRelationship:
		return d.decodeRelationship(fieldCount)
	case TagUnboundRelationship:
		return d.decodeUnboundRelationship(fieldCount)
	case TagPath:
		return d.decodePath(fieldCount)
	case TagDate:
		return d.decodeDate(fieldCount)
	case TagTime:
		return d.decodeTime(fieldCount)
	case TagLocalTime:
		return d.decodeLocalTime(fieldCount)
	case TagDateTime:
		return d.decodeDateTime(fieldCount)
	case TagDateTimeZoneID:
		return d.decodeDateTimeZoneID(fieldCount)
	case TagLocalDateTime:
		return d.decodeLocalDateTime(fieldCount)
	case TagDuration:
		return d.decodeDuration(fieldCount)
	case TagPoint2D:
		return d.decodePoint2D(fieldCount)
	case TagPoint3D:
		return d.decodePoint3D(fieldCount)
	default:
		for i := 0; i < fieldCount; i++ {
			if _, err := d.DecodeValue(); err != nil {
				return Value{}, err
			}
		}
		return Value{}, fmt.Errorf("unknown struct tag: 0x%02X", tag)
	}
}

func requireInt(v Value) (int64, error) {
	i, ok := v.AsInt()
	if !ok {
		return 0, fmt.Errorf("expected integer, got: %s", v)
	}
	return i, nil
}

func requireFloat(v Value) (float64, error) {
	if v.Kind != KindFloat {
		return 0, fmt.Errorf("expected float, got: %s", v)
	}
	return v.Float, nil
}

func requireString(v Value) (string, error) {
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("expected string, got: %s", v)
	}
	return s, nil
}

func requireDict(v Value) (Dict, error) {
	d, ok := v.AsDict()
	if !ok {
		return nil, fmt.Errorf("expected dict, got: %s", v)
	}
	return d, nil
}

func requireStringList(v Value) ([]string, error) {
	if v.Kind != KindList {
		return nil, fmt.Errorf("expected list, got: %s", v)
	}
	out := make([]string, len(v.List))
	for i, item := range v.List {
		s, err := requireString(item)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// decodeNode accepts the full 4-field form (id, labels, properties,
// element_id) as well as the legacy 3-field form lacking element_id, in
// which case element_id is synthesized as the decimal string of id.
func (d *Decoder) decodeNode(fieldCount int) (Value, error) {
	if fieldCount < 3 {
		return Value{}, fmt.Errorf("node struct needs at least 3 fields, got %d", fieldCount)
	}
	idVal, err := d.DecodeValue()
	if err != nil {
		return Value{}, err
	}
	id, err := requireInt(idVal)
	if err != nil {
		return Value{}, err
	}
	labelsVal, err := d.DecodeValue()
	if err != nil {
		return Value{}, err
	}
	labels, err := requireStringList(labelsVal)
	if err != nil {
		return Value{}, err
	}
	propsVal, err := d.DecodeValue()
	if err != nil {
		return Value{}, err
	}
	props, err := requireDict(propsVal)
	if err != nil {
		return Value{}, err
	}

	elementID := formatInt(id)
	if fieldCount >= 4 {
		eidVal, err := d.DecodeValue()
		if err != nil {
			return Value{}, err
		}
		elementID, err = requireString(eidVal)
		if err != nil {
			return Value{}, err
		}
	}
	for i := 4; i < fieldCount; i++ {
		if _, err := d.DecodeValue(); err != nil {
			return Value{}, err
		}
	}
	return Value{Kind: KindNode, Node: &Node{ID: id, Labels: labels, Properties: props, ElementID: elementID}}, nil
}

// decodeRelationship accepts the full 8-field form as well as the legacy
// form (fewer than 8 fields) lacking the three string element ids, which
// are synthesized as decimal strings of the corresponding numeric ids.
func (d *Decoder) decodeRelationship(fieldCount int) (Value, error) {
	if fieldCount < 5 {
		return Value{}, fmt.Errorf("relationship struct needs at least 5 fields, got %d", fieldCount)
	}
	id, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	startID, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	endID, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	relType, err := d.decodeRequiredString()
	if err != nil {
		return Value{}, err
	}
	props, err := d.decodeRequiredDict()
	if err != nil {
		return Value{}, err
	}

	elementID := formatInt(id)
	startElementID := formatInt(startID)
	endElementID := formatInt(endID)
	consumed := 5
	if fieldCount >= 8 {
		consumed = 8
		if elementID, err = d.decodeRequiredString(); err != nil {
			return Value{}, err
		}
		if startElementID, err = d.decodeRequiredString(); err != nil {
			return Value{}, err
		}
		if endElementID, err = d.decodeRequiredString(); err != nil {
			return Value{}, err
		}
	}
	for i := consumed; i < fieldCount; i++ {
		if _, err := d.DecodeValue(); err != nil {
			return Value{}, err
		}
	}
	return Value{Kind: KindRelationship, Relationship: &Relationship{
		ID: id, StartNodeID: startID, EndNodeID: endID, Type: relType, Properties: props,
		ElementID: elementID, StartElementID: startElementID, EndElementID: endElementID,
	}}, nil
}

// decodeUnboundRelationship accepts the full 4-field form as well as the
// legacy form lacking element_id, synthesized as the decimal string of id.
func (d *Decoder) decodeUnboundRelationship(fieldCount int) (Value, error) {
	if fieldCount < 3 {
		return Value{}, fmt.Errorf("unbound relationship struct needs at least 3 fields, got %d", fieldCount)
	}
	id, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	relType, err := d.decodeRequiredString()
	if err != nil {
		return Value{}, err
	}
	props, err := d.decodeRequiredDict()
	if err != nil {
		return Value{}, err
	}

	elementID := formatInt(id)
	if fieldCount >= 4 {
		if elementID, err = d.decodeRequiredString(); err != nil {
			return Value{}, err
		}
	}
	for i := 4; i < fieldCount; i++ {
		if _, err := d.DecodeValue(); err != nil {
			return Value{}, err
		}
	}
	return Value{Kind: KindUnboundRelationship, UnboundRelationship: &UnboundRelationship{
		ID: id, Type: relType, Properties: props, ElementID: elementID,
	}}, nil
}

func (d *Decoder) decodePath(fieldCount int) (Value, error) {
	if fieldCount != 3 {
		return Value{}, fmt.Errorf("path struct needs 3 fields, got %d", fieldCount)
	}
	nodesVal, err := d.DecodeValue()
	if err != nil {
		return Value{}, err
	}
	if nodesVal.Kind != KindList {
		return Value{}, fmt.Errorf("expected list of nodes, got: %s", nodesVal)
	}
	nodes := make([]Node, len(nodesVal.List))
	for i, v := range nodesVal.List {
		if v.Kind != KindNode {
			return Value{}, fmt.Errorf("expected node, got: %s", v)
		}
		nodes[i] = *v.Node
	}

	relsVal, err := d.DecodeValue()
	if err != nil {
		return Value{}, err
	}
	if relsVal.Kind != KindList {
		return Value{}, fmt.Errorf("expected list of relationships, got: %s", relsVal)
	}
	rels := make([]UnboundRelationship, len(relsVal.List))
	for i, v := range relsVal.List {
		if v.Kind != KindUnboundRelationship {
			return Value{}, fmt.Errorf("expected unbound relationship, got: %s", v)
		}
		rels[i] = *v.UnboundRelationship
	}

	idxVal, err := d.DecodeValue()
	if err != nil {
		return Value{}, err
	}
	if idxVal.Kind != KindList {
		return Value{}, fmt.Errorf("expected list of indices, got: %s", idxVal)
	}
	indices := make([]int64, len(idxVal.List))
	for i, v := range idxVal.List {
		n, err := requireInt(v)
		if err != nil {
			return Value{}, err
		}
		indices[i] = n
	}

	return Value{Kind: KindPath, Path: &Path{Nodes: nodes, Rels: rels, Indices: indices}}, nil
}

func (d *Decoder) decodeDate(fieldCount int) (Value, error) {
	if fieldCount != 1 {
		return Value{}, fmt.Errorf("date struct needs 1 field, got %d", fieldCount)
	}
	days, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindDate, Date: &Date{Days: days}}, nil
}

func (d *Decoder) decodeTime(fieldCount int) (Value, error) {
	if fieldCount != 2 {
		return Value{}, fmt.Errorf("time struct needs 2 fields, got %d", fieldCount)
	}
	ns, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	offset, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindTime, Time: &Time{Nanoseconds: ns, TZOffsetSeconds: offset}}, nil
}

func (d *Decoder) decodeLocalTime(fieldCount int) (Value, error) {
	if fieldCount != 1 {
		return Value{}, fmt.Errorf("local time struct needs 1 field, got %d", fieldCount)
	}
	ns, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindLocalTime, LocalTime: &LocalTime{Nanoseconds: ns}}, nil
}

func (d *Decoder) decodeDateTime(fieldCount int) (Value, error) {
	if fieldCount != 3 {
		return Value{}, fmt.Errorf("datetime struct needs 3 fields, got %d", fieldCount)
	}
	secs, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	ns, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	offset, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindDateTime, DateTime: &DateTime{Seconds: secs, Nanoseconds: ns, TZOffsetSeconds: offset}}, nil
}

func (d *Decoder) decodeDateTimeZoneID(fieldCount int) (Value, error) {
	if fieldCount != 3 {
		return Value{}, fmt.Errorf("datetime-zone-id struct needs 3 fields, got %d", fieldCount)
	}
	secs, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	ns, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	tzID, err := d.decodeRequiredString()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindDateTimeZoneID, DateTimeZoneID: &DateTimeZoneID{Seconds: secs, Nanoseconds: ns, TZID: tzID}}, nil
}

func (d *Decoder) decodeLocalDateTime(fieldCount int) (Value, error) {
	if fieldCount != 2 {
		return Value{}, fmt.Errorf("local datetime struct needs 2 fields, got %d", fieldCount)
	}
	secs, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	ns, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindLocalDateTime, LocalDateTime: &LocalDateTime{Seconds: secs, Nanoseconds: ns}}, nil
}

func (d *Decoder) decodeDuration(fieldCount int) (Value, error) {
	if fieldCount != 4 {
		return Value{}, fmt.Errorf("duration struct needs 4 fields, got %d", fieldCount)
	}
	months, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	days, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	secs, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	ns, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindDuration, Duration: &Duration{Months: months, Days: days, Seconds: secs, Nanoseconds: ns}}, nil
}

func (d *Decoder) decodePoint2D(fieldCount int) (Value, error) {
	if fieldCount != 3 {
		return Value{}, fmt.Errorf("point2d struct needs 3 fields, got %d", fieldCount)
	}
	srid, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	x, err := d.decodeRequiredFloat()
	if err != nil {
		return Value{}, err
	}
	y, err := d.decodeRequiredFloat()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindPoint2D, Point2D: &Point2D{SRID: srid, X: x, Y: y}}, nil
}

func (d *Decoder) decodePoint3D(fieldCount int) (Value, error) {
	if fieldCount != 4 {
		return Value{}, fmt.Errorf("point3d struct needs 4 fields, got %d", fieldCount)
	}
	srid, err := d.decodeRequiredInt()
	if err != nil {
		return Value{}, err
	}
	x, err := d.decodeRequiredFloat()
	if err != nil {
		return Value{}, err
	}
	y, err := d.decodeRequiredFloat()
	if err != nil {
		return Value{}, err
	}
	z, err := d.decodeRequiredFloat()
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: KindPoint3D, Point3D: &Point3D{SRID: srid, X: x, Y: y, Z: z}}, nil
}

func (d *Decoder) decodeRequiredInt() (int64, error) {
	v, err := d.DecodeValue()
	if err != nil {
		return 0, err
	}
	return requireInt(v)
}

func (d *Decoder) decodeRequiredFloat() (float64, error) {
	v, err := d.DecodeValue()
	if err != nil {
		return 0, err
	}
	return requireFloat(v)
}

func (d *Decoder) decodeRequiredString() (string, error) {
	v, err := d.DecodeValue()
	if err != nil {
		return "", err
	}
	return requireString(v)
}

func (d *Decoder) decodeRequiredDict() (Dict, error) {
	v, err := d.DecodeValue()
	if err != nil {
		return nil, err
	}
	return requireDict(v)
}

func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}
