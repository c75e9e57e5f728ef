// Package chunk implements Bolt/1's chunked message framing: a stream
// of <u16 length><payload> chunks terminated by a zero-length boundary
// that marks the end of one logical message.
package chunk

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxChunkSize is the largest payload a single chunk header can carry.
const MaxChunkSize = 65535

// Output buffers bytes into Bolt chunks and flushes them to an
// underlying writer. A chunk header is reserved at the start of each
// chunk and back-patched with the accumulated byte count when the
// chunk closes, either because it filled up or MessageBoundary/Flush
// was called.
//
// Output implements io.Writer so a *packstream.Packer can write
// directly into it.
type Output struct {
	w   io.Writer
	buf []byte
	// headerAt is the index in buf where the current chunk's 2-byte
	// length header lives, reserved but not yet filled in.
	headerAt int
	// open is true once a chunk header has been reserved and not yet
	// closed.
	open bool
}

// NewOutput returns an Output writing finished chunks to w. The buffer
// starts with room for one chunk (MaxChunkSize bytes of payload plus
// header) and grows to hold every chunk of a message until
// MessageBoundary or Flush writes them out.
func NewOutput(w io.Writer) *Output {
	return &Output{w: w, buf: make([]byte, 0, MaxChunkSize+2)}
}

// Write appends p to the current chunk, splitting across multiple
// chunks if p does not fit in the remaining space of this one.
func (o *Output) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if !o.open {
			o.startChunk()
		}
		room := MaxChunkSize - o.payloadLen()
		n := len(p)
		if n > room {
			n = room
		}
		o.buf = append(o.buf, p[:n]...)
		p = p[n:]
		written += n
		if o.payloadLen() == MaxChunkSize {
			if err := o.closeChunk(); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (o *Output) startChunk() {
	o.headerAt = len(o.buf)
	o.buf = append(o.buf, 0, 0)
	o.open = true
}

func (o *Output) payloadLen() int {
	if !o.open {
		return 0
	}
	return len(o.buf) - o.headerAt - 2
}

// closeChunk back-patches the reserved header with the chunk's payload
// length. It does not write to the underlying writer — that happens in
// Flush/MessageBoundary so a writer can batch several chunks.
func (o *Output) closeChunk() error {
	if !o.open {
		return nil
	}
	n := o.payloadLen()
	if n > 0xFFFF {
		return fmt.Errorf("chunk: payload length %d exceeds header width", n)
	}
	binary.BigEndian.PutUint16(o.buf[o.headerAt:o.headerAt+2], uint16(n))
	o.open = false
	return nil
}

// MessageBoundary closes the current chunk, if one is open, and appends
// the zero-length boundary marker, then flushes everything buffered to
// the underlying writer. This marks the end of one logical message.
func (o *Output) MessageBoundary() error {
	if err := o.closeChunk(); err != nil {
		return err
	}
	o.buf = append(o.buf, 0, 0)
	return o.Flush()
}

// Flush writes the buffered bytes to the underlying writer. It does not
// close an in-progress chunk: while a chunk is open it writes nothing
// and returns an error; call MessageBoundary for that.
func (o *Output) Flush() error {
	if o.open {
		return fmt.Errorf("chunk: flush called with an open chunk")
	}
	if len(o.buf) == 0 {
		return nil
	}
	if _, err := o.w.Write(o.buf); err != nil {
		return fmt.Errorf("chunk: flush: %w", err)
	}
	o.buf = o.buf[:0]
	return nil
}
