package session

import (
	"encoding/binary"
	"fmt"

	"github.com/mickamy/boltstream/transport"
)

// magicPreamble is the 4-byte Bolt magic, sent once before version
// negotiation.
var magicPreamble = [4]byte{0x60, 0x60, 0xB0, 0x17}

// proposedVersions is the four big-endian u32 version proposals this
// client offers, preferring version 1 and falling back to "no
// protocol" (0) in the remaining three slots.
var proposedVersions = [4]uint32{1, 0, 0, 0}

// httpMagic is what a misconfigured plain-HTTP endpoint echoes back
// instead of a version number.
const httpMagic uint32 = 0x48545450 // "HTTP"

// handshake performs the 4-byte magic + version negotiation over ch,
// per spec.md §4.4. It returns the agreed protocol version, which must
// be 1; any other outcome is reported as a distinct error so callers
// can tell a genuine protocol mismatch from talking to the wrong kind
// of server entirely. I/O failures during the handshake are reported
// as CannotConnectError, the same as a failed dial: the caller never
// got a usable connection either way.
func handshake(ch transport.Channel, addr string) (uint32, error) {
	var out [20]byte
	copy(out[0:4], magicPreamble[:])
	for i, v := range proposedVersions {
		binary.BigEndian.PutUint32(out[4+i*4:8+i*4], v)
	}
	if _, err := ch.Write(out[:]); err != nil {
		return 0, &CannotConnectError{Address: addr, Cause: fmt.Errorf("handshake: write: %w", err)}
	}

	var reply [4]byte
	if err := readFull(ch, reply[:]); err != nil {
		return 0, &CannotConnectError{Address: addr, Cause: fmt.Errorf("handshake: read: %w", err)}
	}
	agreed := binary.BigEndian.Uint32(reply[:])

	switch agreed {
	case 1:
		return agreed, nil
	case httpMagic:
		return 0, &HandshakeError{Reason: "server appears to speak HTTP, not Bolt"}
	case 0:
		return 0, &HandshakeError{Reason: "server rejected all proposed protocol versions"}
	default:
		return 0, &HandshakeError{Reason: fmt.Sprintf("server proposed unsupported protocol version %d", agreed)}
	}
}

func readFull(ch transport.Channel, buf []byte) error {
	for total := 0; total < len(buf); {
		n, err := ch.Read(buf[total:])
		total += n
		if err != nil {
			return err
		}
	}
	return nil
}

// HandshakeError reports a version-negotiation failure.
type HandshakeError struct {
	Reason string
}

func (e *HandshakeError) Error() string {
	return "session: handshake failed: " + e.Reason
}
