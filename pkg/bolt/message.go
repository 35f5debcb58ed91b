package bolt

import (
	"fmt"

	"github.com/GrafeoDB/boltr/pkg/packstream"
)

// Message tag bytes, each carried as the tag byte of a TINY_STRUCT.
const (
	sigHello    byte = 0x01
	sigLogon    byte = 0x6A
	sigLogoff   byte = 0x6B
	sigGoodbye  byte = 0x02
	sigReset    byte = 0x0F
	sigRun      byte = 0x10
	sigPull     byte = 0x3F
	sigDiscard  byte = 0x2F
	sigBegin    byte = 0x11
	sigCommit   byte = 0x12
	sigRollback byte = 0x13

	sigSuccess byte = 0x70
	sigRecord  byte = 0x71
	sigFailure byte = 0x7F
	sigIgnored byte = 0x7E
)

// ClientMessageKind discriminates the variant carried by a ClientMessage.
type ClientMessageKind int

const (
	MsgHello ClientMessageKind = iota
	MsgLogon
	MsgLogoff
	MsgGoodbye
	MsgReset
	MsgRun
	MsgPull
	MsgDiscard
	MsgBegin
	MsgCommit
	MsgRollback
)

// ClientMessage is every message a Bolt client may send, in the shape the
// connection state machine and handlers consume.
type ClientMessage struct {
	Kind ClientMessageKind

	// Hello, Logon, Begin, Run's extra dict.
	Extra packstream.Dict

	// Run.
	Query      string
	Parameters packstream.Dict

	// Pull, Discard share Extra for their "n"/"qid" fields.
}

// PullAll builds a PULL message requesting every remaining record.
func PullAll() ClientMessage {
	return ClientMessage{Kind: MsgPull, Extra: packstream.Dict{"n": packstream.Integer(-1)}}
}

// PullN builds a PULL message requesting at most n records.
func PullN(n int64) ClientMessage {
	return ClientMessage{Kind: MsgPull, Extra: packstream.Dict{"n": packstream.Integer(n)}}
}

// DiscardAll builds a DISCARD message discarding every remaining record.
func DiscardAll() ClientMessage {
	return ClientMessage{Kind: MsgDiscard, Extra: packstream.Dict{"n": packstream.Integer(-1)}}
}

// ServerMessageKind discriminates the variant carried by a ServerMessage.
type ServerMessageKind int

const (
	MsgSuccess ServerMessageKind = iota
	MsgRecord
	MsgFailure
	MsgIgnored
)

// ServerMessage is every message the server may send back to a client.
type ServerMessage struct {
	Kind ServerMessageKind

	Metadata packstream.Dict  // Success, Failure.
	Data     []packstream.Value // Record.
}

// Success builds a SUCCESS message with the given metadata.
func Success(metadata packstream.Dict) ServerMessage {
	return ServerMessage{Kind: MsgSuccess, Metadata: metadata}
}

// recordMessage builds a RECORD message carrying one row of values.
func recordMessage(data []packstream.Value) ServerMessage {
	return ServerMessage{Kind: MsgRecord, Data: data}
}

// Failure builds a FAILURE message with the given metadata.
func Failure(metadata packstream.Dict) ServerMessage {
	return ServerMessage{Kind: MsgFailure, Metadata: metadata}
}

// Ignored builds an IGNORED message.
func Ignored() ServerMessage {
	return ServerMessage{Kind: MsgIgnored}
}

// EncodeClientMessage appends the PackStream encoding of msg to buf. It is
// used only by pkg/boltclient; the server only decodes client messages.
func EncodeClientMessage(buf []byte, msg ClientMessage) []byte {
	switch msg.Kind {
	case MsgHello:
		buf = packstream.EncodeStructHeader(buf, sigHello, 1)
		return packstream.EncodeDict(buf, msg.Extra)
	case MsgLogon:
		buf = packstream.EncodeStructHeader(buf, sigLogon, 1)
		return packstream.EncodeDict(buf, msg.Extra)
	case MsgLogoff:
		return packstream.EncodeStructHeader(buf, sigLogoff, 0)
	case MsgGoodbye:
		return packstream.EncodeStructHeader(buf, sigGoodbye, 0)
	case MsgReset:
		return packstream.EncodeStructHeader(buf, sigReset, 0)
	case MsgRun:
		buf = packstream.EncodeStructHeader(buf, sigRun, 3)
		buf = packstream.EncodeString(buf, msg.Query)
		buf = packstream.EncodeDict(buf, msg.Parameters)
		return packstream.EncodeDict(buf, msg.Extra)
	case MsgPull:
		buf = packstream.EncodeStructHeader(buf, sigPull, 1)
		return packstream.EncodeDict(buf, msg.Extra)
	case MsgDiscard:
		buf = packstream.EncodeStructHeader(buf, sigDiscard, 1)
		return packstream.EncodeDict(buf, msg.Extra)
	case MsgBegin:
		buf = packstream.EncodeStructHeader(buf, sigBegin, 1)
		return packstream.EncodeDict(buf, msg.Extra)
	case MsgCommit:
		return packstream.EncodeStructHeader(buf, sigCommit, 0)
	case MsgRollback:
		return packstream.EncodeStructHeader(buf, sigRollback, 0)
	default:
		panic(fmt.Sprintf("bolt: unknown client message kind %d", msg.Kind))
	}
}

// EncodeServerMessage appends the PackStream encoding of msg to buf.
func EncodeServerMessage(buf []byte, msg ServerMessage) []byte {
	switch msg.Kind {
	case MsgSuccess:
		buf = packstream.EncodeStructHeader(buf, sigSuccess, 1)
		return packstream.EncodeDict(buf, msg.Metadata)
	case MsgRecord:
		buf = packstream.EncodeStructHeader(buf, sigRecord, 1)
		return packstream.EncodeList(buf, msg.Data)
	case MsgFailure:
		buf = packstream.EncodeStructHeader(buf, sigFailure, 1)
		return packstream.EncodeDict(buf, msg.Metadata)
	case MsgIgnored:
		return packstream.EncodeStructHeader(buf, sigIgnored, 0)
	default:
		panic(fmt.Sprintf("bolt: unknown server message kind %d", msg.Kind))
	}
}

// expectFields errors if got is fewer than expected; extra trailing fields
// from a newer protocol revision are tolerated, not rejected.
func expectFields(name string, got, expected int) error {
	if got < expected {
		return fmt.Errorf("%s requires %d fields, got %d", name, expected, got)
	}
	return nil
}

// DecodeClientMessage reads one client message from dec.
func DecodeClientMessage(dec *packstream.Decoder) (ClientMessage, error) {
	tag, fieldCount, err := decodeStructHeader(dec)
	if err != nil {
		return ClientMessage{}, err
	}

	switch tag {
	case sigHello:
		if err := expectFields("HELLO", fieldCount, 1); err != nil {
			return ClientMessage{}, err
		}
		extra, err := decodeDict(dec)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Kind: MsgHello, Extra: extra}, nil
	case sigLogon:
		if err := expectFields("LOGON", fieldCount, 1); err != nil {
			return ClientMessage{}, err
		}
		extra, err := decodeDict(dec)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Kind: MsgLogon, Extra: extra}, nil
	case sigLogoff:
		return ClientMessage{Kind: MsgLogoff}, nil
	case sigGoodbye:
		return ClientMessage{Kind: MsgGoodbye}, nil
	case sigReset:
		return ClientMessage{Kind: MsgReset}, nil
	case sigRun:
		if err := expectFields("RUN", fieldCount, 3); err != nil {
			return ClientMessage{}, err
		}
		query, err := decodeString(dec)
		if err != nil {
			return ClientMessage{}, err
		}
		params, err := decodeDict(dec)
		if err != nil {
			return ClientMessage{}, err
		}
		extra, err := decodeDict(dec)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Kind: MsgRun, Query: query, Parameters: params, Extra: extra}, nil
	case sigPull:
		if err := expectFields("PULL", fieldCount, 1); err != nil {
			return ClientMessage{}, err
		}
		extra, err := decodeDict(dec)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Kind: MsgPull, Extra: extra}, nil
	case sigDiscard:
		if err := expectFields("DISCARD", fieldCount, 1); err != nil {
			return ClientMessage{}, err
		}
		extra, err := decodeDict(dec)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Kind: MsgDiscard, Extra: extra}, nil
	case sigBegin:
		if err := expectFields("BEGIN", fieldCount, 1); err != nil {
			return ClientMessage{}, err
		}
		extra, err := decodeDict(dec)
		if err != nil {
			return ClientMessage{}, err
		}
		return ClientMessage{Kind: MsgBegin, Extra: extra}, nil
	case sigCommit:
		return ClientMessage{Kind: MsgCommit}, nil
	case sigRollback:
		return ClientMessage{Kind: MsgRollback}, nil
	default:
		return ClientMessage{}, fmt.Errorf("unknown client message tag: 0x%02X", tag)
	}
}

// DecodeServerMessage reads one server message from dec.
func DecodeServerMessage(dec *packstream.Decoder) (ServerMessage, error) {
	tag, fieldCount, err := decodeStructHeader(dec)
	if err != nil {
		return ServerMessage{}, err
	}

	switch tag {
	case sigSuccess:
		if err := expectFields("SUCCESS", fieldCount, 1); err != nil {
			return ServerMessage{}, err
		}
		metadata, err := decodeDict(dec)
		if err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{Kind: MsgSuccess, Metadata: metadata}, nil
	case sigRecord:
		if err := expectFields("RECORD", fieldCount, 1); err != nil {
			return ServerMessage{}, err
		}
		v, err := dec.DecodeValue()
		if err != nil {
			return ServerMessage{}, err
		}
		if v.Kind != packstream.KindList {
			return ServerMessage{}, fmt.Errorf("RECORD payload must be a list, got: %s", v)
		}
		return ServerMessage{Kind: MsgRecord, Data: v.List}, nil
	case sigFailure:
		if err := expectFields("FAILURE", fieldCount, 1); err != nil {
			return ServerMessage{}, err
		}
		metadata, err := decodeDict(dec)
		if err != nil {
			return ServerMessage{}, err
		}
		return ServerMessage{Kind: MsgFailure, Metadata: metadata}, nil
	case sigIgnored:
		return ServerMessage{Kind: MsgIgnored}, nil
	default:
		return ServerMessage{}, fmt.Errorf("unknown server message tag: 0x%02X", tag)
	}
}

func decodeStructHeader(dec *packstream.Decoder) (tag byte, fieldCount int, err error) {
	marker, err := dec.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	if marker&0xF0 != 0xB0 {
		return 0, 0, fmt.Errorf("expected a struct marker, got: 0x%02X", marker)
	}
	fieldCount = int(marker & 0x0F)
	tag, err = dec.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	return tag, fieldCount, nil
}

func decodeDict(dec *packstream.Decoder) (packstream.Dict, error) {
	v, err := dec.DecodeValue()
	if err != nil {
		return nil, err
	}
	d, ok := v.AsDict()
	if !ok {
		return nil, fmt.Errorf("expected dict, got: %s", v)
	}
	return d, nil
}

func decodeString(dec *packstream.Decoder) (string, error) {
	v, err := dec.DecodeValue()
	if err != nil {
		return "", err
	}
	s, ok := v.AsString()
	if !ok {
		return "", fmt.Errorf("expected string, got: %s", v)
	}
	return s, nil
}
