package packstream

import (
	"encoding/binary"
	"io"
	"math"
)

// Packer serializes Values to PackStream bytes over an io.Writer. It
// performs no buffering of its own — wrap w in a *chunk.Output (or any
// other buffered writer) for efficient small writes.
type Packer struct {
	w io.Writer
}

// NewPacker returns a Packer writing to w.
func NewPacker(w io.Writer) *Packer {
	return &Packer{w: w}
}

func (p *Packer) write(b []byte) error {
	if _, err := p.w.Write(b); err != nil {
		return &OutputFailureError{Err: err}
	}
	return nil
}

// PackNull writes the NULL marker.
func (p *Packer) PackNull() error {
	return p.write([]byte{markerNull})
}

// PackBool writes TRUE or FALSE.
func (p *Packer) PackBool(b bool) error {
	if b {
		return p.write([]byte{markerTrue})
	}
	return p.write([]byte{markerFalse})
}

// PackInt writes i using the narrowest form that represents it exactly:
// TINY_INT covers [-16, 128), then INT_8, INT_16, INT_32, INT_64.
func (p *Packer) PackInt(i int64) error {
	switch {
	case i >= tinyIntHigh && i < tinyIntLow:
		return p.write([]byte{byte(int8(i))})
	case i >= int8Min && i < tinyIntHigh:
		return p.write([]byte{markerInt8, byte(int8(i))})
	case i >= int16Min && i <= int16Max:
		var buf [3]byte
		buf[0] = markerInt16
		binary.BigEndian.PutUint16(buf[1:], uint16(int16(i)))
		return p.write(buf[:])
	case i >= int32Min && i <= int32Max:
		var buf [5]byte
		buf[0] = markerInt32
		binary.BigEndian.PutUint32(buf[1:], uint32(int32(i)))
		return p.write(buf[:])
	default:
		var buf [9]byte
		buf[0] = markerInt64
		binary.BigEndian.PutUint64(buf[1:], uint64(i))
		return p.write(buf[:])
	}
}

// PackFloat writes f as a big-endian IEEE-754 double.
func (p *Packer) PackFloat(f float64) error {
	var buf [9]byte
	buf[0] = markerFloat64
	binary.BigEndian.PutUint64(buf[1:], math.Float64bits(f))
	return p.write(buf[:])
}

// PackBytes writes a byte array header (no tiny form) followed by the
// raw bytes.
func (p *Packer) PackBytes(b []byte) error {
	if err := p.packSizedHeader(len(b), markerBytes8, markerBytes16, markerBytes32); err != nil {
		return err
	}
	if len(b) == 0 {
		return nil
	}
	return p.write(b)
}

// PackString writes a UTF-8 string header followed by its bytes.
func (p *Packer) PackString(s string) error {
	n := len(s)
	switch {
	case n < maxTinySize:
		if err := p.write([]byte{tinyStringBase | byte(n)}); err != nil {
			return err
		}
	default:
		if err := p.packSizedHeader(n, markerString8, markerString16, markerString32); err != nil {
			return err
		}
	}
	if n == 0 {
		return nil
	}
	return p.write([]byte(s))
}

// PackListHeader writes a list header for n upcoming values. The
// caller is responsible for packing exactly n values afterward.
func (p *Packer) PackListHeader(n int) error {
	if n < maxTinySize {
		return p.write([]byte{tinyListBase | byte(n)})
	}
	return p.packSizedHeader(n, markerList8, markerList16, markerList32)
}

// PackMapHeader writes a map header for n upcoming key/value pairs.
func (p *Packer) PackMapHeader(n int) error {
	if n < maxTinySize {
		return p.write([]byte{tinyMapBase | byte(n)})
	}
	return p.packSizedHeader(n, markerMap8, markerMap16, markerMap32)
}

// PackStructHeader writes a structure header for n upcoming fields with
// the given signature byte.
func (p *Packer) PackStructHeader(n int, signature byte) error {
	if n > 0xFFFF {
		return &StructureFieldOverflowError{Count: n}
	}
	switch {
	case n < maxTinySize:
		return p.write([]byte{tinyStructBase | byte(n), signature})
	case n <= 0xFF:
		return p.write([]byte{markerStruct8, byte(n), signature})
	default:
		var buf [4]byte
		buf[0] = markerStruct16
		binary.BigEndian.PutUint16(buf[1:3], uint16(n))
		buf[3] = signature
		return p.write(buf[:])
	}
}

// packSizedHeader picks the narrowest 8/16/32-bit sized marker for n,
// with no tiny form (used by Bytes, and by String/List/Map above the
// tiny threshold).
func (p *Packer) packSizedHeader(n int, m8, m16, m32 byte) error {
	switch {
	case n <= 0xFF:
		return p.write([]byte{m8, byte(n)})
	case n <= 0xFFFF:
		var buf [3]byte
		buf[0] = m16
		binary.BigEndian.PutUint16(buf[1:], uint16(n))
		return p.write(buf[:])
	case uint64(n) <= 0xFFFFFFFF:
		var buf [5]byte
		buf[0] = m32
		binary.BigEndian.PutUint32(buf[1:], uint32(n))
		return p.write(buf[:])
	default:
		return &UnpackableError{Reason: "size exceeds 32-bit header"}
	}
}

// Pack writes v using the typed method matching its Kind. A Kind
// outside the declared constants fails with UnpackableError; the zero
// Value has Kind KindNull and packs as NULL.
func (p *Packer) Pack(v Value) error {
	switch v.Kind {
	case KindNull:
		return p.PackNull()
	case KindBool:
		return p.PackBool(v.Bool)
	case KindInt:
		return p.PackInt(v.Int)
	case KindFloat:
		return p.PackFloat(v.Float)
	case KindBytes:
		return p.PackBytes(v.Bytes)
	case KindString:
		return p.PackString(v.String)
	case KindList:
		if err := p.PackListHeader(len(v.List)); err != nil {
			return err
		}
		for _, item := range v.List {
			if err := p.Pack(item); err != nil {
				return err
			}
		}
		return nil
	case KindMap:
		if err := p.PackMapHeader(len(v.Map)); err != nil {
			return err
		}
		for _, pair := range v.Map {
			if err := p.PackString(pair.Key); err != nil {
				return err
			}
			if err := p.Pack(pair.Value); err != nil {
				return err
			}
		}
		return nil
	case KindStruct:
		if err := p.PackStructHeader(len(v.Struct.Fields), v.Struct.Signature); err != nil {
			return err
		}
		for _, field := range v.Struct.Fields {
			if err := p.Pack(field); err != nil {
				return err
			}
		}
		return nil
	default:
		return &UnpackableError{Reason: "unrecognized Value kind"}
	}
}
