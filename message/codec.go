package message

import (
	"fmt"

	"github.com/mickamy/boltstream/chunk"
	"github.com/mickamy/boltstream/packstream"
)

// Writer serializes Messages as chunk-framed PackStream structures.
type Writer struct {
	out    *chunk.Output
	packer *packstream.Packer
}

// NewWriter returns a Writer framing onto out.
func NewWriter(out *chunk.Output) *Writer {
	return &Writer{out: out, packer: packstream.NewPacker(out)}
}

// Write serializes m as pack_struct_header(len(fields), signature)
// followed by each field, then closes the message with a chunk
// boundary. The boundary flushes the message's chunks to the
// underlying writer, so each Write sends one complete message.
func (w *Writer) Write(m Message) error {
	if err := w.packer.PackStructHeader(len(m.Fields), byte(m.Signature)); err != nil {
		return fmt.Errorf("message: write %s: %w", m.Signature, err)
	}
	for _, f := range m.Fields {
		if err := w.packer.Pack(f); err != nil {
			return fmt.Errorf("message: write %s field: %w", m.Signature, err)
		}
	}
	if err := w.out.MessageBoundary(); err != nil {
		return fmt.Errorf("message: write %s: %w", m.Signature, err)
	}
	return nil
}

// Reader deserializes one Message per logical chunk-framed message.
type Reader struct {
	in       *chunk.Input
	unpacker *packstream.Unpacker
}

// NewReader returns a Reader reading chunk-framed structures from in.
func NewReader(in *chunk.Input) *Reader {
	return &Reader{in: in, unpacker: packstream.NewUnpacker(in)}
}

// Read reads exactly one message: a PackStream structure, fully
// consuming its chunk-framed message boundary.
func (r *Reader) Read() (Message, error) {
	if err := r.in.Next(); err != nil {
		return Message{}, fmt.Errorf("message: read: %w", err)
	}
	v, err := r.unpacker.Unpack()
	if err != nil {
		return Message{}, fmt.Errorf("message: read: %w", err)
	}
	m, err := FromValue(v)
	if err != nil {
		return Message{}, err
	}
	// Drain any trailing bytes in this logical message (there should be
	// none for well-formed Bolt/1 traffic) so Next() is satisfied for
	// the following message.
	if err := drain(r.in); err != nil {
		return Message{}, fmt.Errorf("message: read: unexpected trailing data: %w", err)
	}
	return m, nil
}

func drain(in *chunk.Input) error {
	buf := make([]byte, 256)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			return fmt.Errorf("message: %d unexpected trailing bytes", n)
		}
		if err != nil {
			return nil // io.EOF (or ErrEndOfStream) means the message is clean
		}
	}
}

// Handler dispatches decoded Messages to their semantic meaning. A
// caller (collector.Handler, in this module) implements this to route
// SUCCESS/RECORD/FAILURE/IGNORED to the correct in-flight collector.
type Handler interface {
	OnSuccess(meta packstream.Map) error
	OnRecord(fields []packstream.Value) error
	OnFailure(code, msg string) error
	OnIgnored() error
}

// Dispatch decodes one message from r and routes it to h.
func Dispatch(r *Reader, h Handler) error {
	m, err := r.Read()
	if err != nil {
		return err
	}
	switch m.Signature {
	case SigSuccess:
		meta, _ := m.Meta()
		return h.OnSuccess(meta)
	case SigRecord:
		fields, _ := m.RecordFields()
		return h.OnRecord(fields)
	case SigFailure:
		code, msg, _ := m.FailureCode()
		return h.OnFailure(code, msg)
	case SigIgnored:
		return h.OnIgnored()
	default:
		return fmt.Errorf("message: unexpected request signature %s in server stream", m.Signature)
	}
}
