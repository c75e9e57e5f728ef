package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrEndOfStream is returned when the underlying reader hits EOF
// exactly at a chunk-header boundary (a clean close between messages).
var ErrEndOfStream = errors.New("chunk: end of stream")

// Input reads Bolt chunk framing from an underlying reader and
// presents the reassembled message bytes as a plain io.Reader, one
// logical message at a time.
//
// Input implements io.Reader so a *packstream.Unpacker can read
// directly from it. After a message is fully consumed (the reader
// observes the zero-length boundary), call Next to advance to the
// following message.
type Input struct {
	r        io.Reader
	remain   int  // bytes left in the current chunk's payload
	atBounds bool // true once the zero-length boundary has been seen
}

// NewInput returns an Input reading chunks from r.
func NewInput(r io.Reader) *Input {
	return &Input{r: r, atBounds: true}
}

// Next must be called before reading a new message, including the
// first one. It is a no-op if the previous message's boundary has
// already been consumed, and an error if the previous message was not
// fully drained.
func (i *Input) Next() error {
	if !i.atBounds {
		return fmt.Errorf("chunk: Next called before previous message was fully read")
	}
	return nil
}

// Read fills p with reassembled message bytes, transparently crossing
// chunk boundaries within the current message and stopping (with
// io.EOF) at the zero-length message boundary.
func (i *Input) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if i.remain == 0 {
		if err := i.readChunkHeader(); err != nil {
			return 0, err
		}
		if i.remain == 0 {
			i.atBounds = true
			return 0, io.EOF
		}
		i.atBounds = false
	}
	n := len(p)
	if n > i.remain {
		n = i.remain
	}
	read, err := io.ReadFull(i.r, p[:n])
	i.remain -= read
	if err != nil {
		return read, fmt.Errorf("chunk: read payload: %w", err)
	}
	return read, nil
}

func (i *Input) readChunkHeader() error {
	var hdr [2]byte
	if _, err := io.ReadFull(i.r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEndOfStream
		}
		return fmt.Errorf("chunk: read header: %w", err)
	}
	i.remain = int(binary.BigEndian.Uint16(hdr[:]))
	return nil
}

// ReadMessage reads one full logical message (all of its chunks,
// reassembled) into a single buffer. It is a convenience for callers
// that don't want to stream through io.Reader directly.
func (i *Input) ReadMessage() ([]byte, error) {
	if err := i.Next(); err != nil {
		return nil, err
	}
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := i.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			i.atBounds = true
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
