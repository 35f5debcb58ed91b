package bolt

import (
	"io"
)

// BoltMagic is the 4-byte preamble every Bolt connection opens with.
var BoltMagic = [4]byte{0x60, 0x60, 0xB0, 0x17}

// version is a (major, minor) Bolt protocol version pair.
type version struct {
	major, minor byte
}

// supportedVersions lists every version this server negotiates, in
// preference order (highest minor first within 5.x).
var supportedVersions = []version{
	{5, 4},
	{5, 3},
	{5, 2},
	{5, 1},
}

// noVersion is the 4-byte response sent when no proposal matches.
var noVersion = [4]byte{0, 0, 0, 0}

// encodeVersion renders (major, minor) into the 4-byte handshake response
// form [0, 0, minor, major]; the range byte is always zero.
func encodeVersion(major, minor byte) [4]byte {
	return [4]byte{0, 0, minor, major}
}

// defaultClientProposals builds the 16-byte proposal block a client sends:
// one real proposal covering 5.1 through 5.4 via its range byte, and three
// zero-filled placeholder slots.
func defaultClientProposals() [16]byte {
	var proposals [16]byte
	proposals[0] = 0
	proposals[1] = 3 // range: covers minor 4 down to 4-3=1
	proposals[2] = 4 // minor
	proposals[3] = 5 // major
	return proposals
}

// DefaultClientProposals is the proposal block pkg/boltclient sends when
// connecting: every Bolt 5.1-5.4 server should accept it.
func DefaultClientProposals() [16]byte {
	return defaultClientProposals()
}

// negotiateVersion scans the 16-byte proposal block (four 4-byte slots)
// and returns the first supported version satisfying some proposal's
// [minor-range, minor] window, in server preference order.
func negotiateVersion(proposals [16]byte) (major, minor byte, ok bool) {
	for slot := 0; slot < 4; slot++ {
		chunk := proposals[slot*4 : slot*4+4]
		rangeB, minorB, majorB := chunk[1], chunk[2], chunk[3]
		if majorB == 0 && minorB == 0 {
			continue
		}
		for _, sup := range supportedVersions {
			if sup.major != majorB {
				continue
			}
			lo := minorB - rangeB
			if rangeB > minorB {
				lo = 0
			}
			if sup.minor <= minorB && sup.minor >= lo {
				return sup.major, sup.minor, true
			}
		}
	}
	return 0, 0, false
}

// ServerHandshake performs the server side of version negotiation over
// conn: reads the magic preamble and proposal block, writes back the
// negotiated version (or the all-zero rejection), and returns it.
func ServerHandshake(conn io.ReadWriter) (major, minor byte, err error) {
	var magic [4]byte
	if _, err := io.ReadFull(conn, magic[:]); err != nil {
		return 0, 0, IOError(err)
	}
	if magic != BoltMagic {
		return 0, 0, ProtocolError("invalid Bolt magic preamble")
	}

	var proposals [16]byte
	if _, err := io.ReadFull(conn, proposals[:]); err != nil {
		return 0, 0, IOError(err)
	}

	major, minor, ok := negotiateVersion(proposals)
	if !ok {
		if _, err := conn.Write(noVersion[:]); err != nil {
			return 0, 0, IOError(err)
		}
		return 0, 0, ErrUnsupportedVersion
	}

	resp := encodeVersion(major, minor)
	if _, err := conn.Write(resp[:]); err != nil {
		return 0, 0, IOError(err)
	}
	return major, minor, nil
}

// ClientHandshake performs the client side of version negotiation over
// conn, proposing proposals and returning whatever version the server
// selected.
func ClientHandshake(conn io.ReadWriter, proposals [16]byte) (major, minor byte, err error) {
	if _, err := conn.Write(BoltMagic[:]); err != nil {
		return 0, 0, IOError(err)
	}
	if _, err := conn.Write(proposals[:]); err != nil {
		return 0, 0, IOError(err)
	}

	var resp [4]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return 0, 0, IOError(err)
	}
	major, minor = resp[3], resp[2]
	if major == 0 && minor == 0 {
		return 0, 0, ProtocolError("server rejected all proposed versions")
	}
	return major, minor, nil
}
