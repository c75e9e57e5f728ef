package packstream

import (
	"encoding/binary"
	"io"
	"math"
)

// Unpacker deserializes PackStream bytes read from an io.Reader. Like
// Packer it does no buffering of its own.
type Unpacker struct {
	r      io.Reader
	peeked bool
	marker byte
}

// NewUnpacker returns an Unpacker reading from r.
func NewUnpacker(r io.Reader) *Unpacker {
	return &Unpacker{r: r}
}

func (u *Unpacker) readByte() (byte, error) {
	if u.peeked {
		u.peeked = false
		return u.marker, nil
	}
	var buf [1]byte
	if _, err := io.ReadFull(u.r, buf[:]); err != nil {
		return 0, &InputFailureError{Err: err}
	}
	return buf[0], nil
}

func (u *Unpacker) readN(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(u.r, buf); err != nil {
		return nil, &InputFailureError{Err: err}
	}
	return buf, nil
}

// PeekNextType returns the type of the next value without consuming
// its marker.
func (u *Unpacker) PeekNextType() (PackType, error) {
	m, err := u.peekMarker()
	if err != nil {
		return TypeUnknown, err
	}
	return classify(m), nil
}

func (u *Unpacker) peekMarker() (byte, error) {
	if !u.peeked {
		m, err := u.readByte()
		if err != nil {
			return 0, err
		}
		u.marker = m
		u.peeked = true
	}
	return u.marker, nil
}

// UnpackNull advances over a NULL marker.
func (u *Unpacker) UnpackNull() error {
	m, err := u.readByte()
	if err != nil {
		return err
	}
	if m != markerNull {
		return &UnexpectedTypeError{Want: TypeNull, Got: m}
	}
	return nil
}

// UnpackBool reads a TRUE/FALSE marker.
func (u *Unpacker) UnpackBool() (bool, error) {
	m, err := u.readByte()
	if err != nil {
		return false, err
	}
	switch m {
	case markerTrue:
		return true, nil
	case markerFalse:
		return false, nil
	default:
		return false, &UnexpectedTypeError{Want: TypeBool, Got: m}
	}
}

// UnpackInt reads any integer form and returns it as int64.
func (u *Unpacker) UnpackInt() (int64, error) {
	m, err := u.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case m <= tinyIntMax:
		return int64(m), nil
	case m >= tinyNegIntBase:
		return int64(int8(m)), nil
	}
	switch m {
	case markerInt8:
		b, err := u.readN(1)
		if err != nil {
			return 0, err
		}
		return int64(int8(b[0])), nil
	case markerInt16:
		b, err := u.readN(2)
		if err != nil {
			return 0, err
		}
		return int64(int16(binary.BigEndian.Uint16(b))), nil
	case markerInt32:
		b, err := u.readN(4)
		if err != nil {
			return 0, err
		}
		return int64(int32(binary.BigEndian.Uint32(b))), nil
	case markerInt64:
		b, err := u.readN(8)
		if err != nil {
			return 0, err
		}
		return int64(binary.BigEndian.Uint64(b)), nil
	default:
		return 0, &UnexpectedTypeError{Want: TypeInt, Got: m}
	}
}

// UnpackFloat reads a FLOAT_64 marker.
func (u *Unpacker) UnpackFloat() (float64, error) {
	m, err := u.readByte()
	if err != nil {
		return 0, err
	}
	if m != markerFloat64 {
		return 0, &UnexpectedTypeError{Want: TypeFloat, Got: m}
	}
	b, err := u.readN(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// UnpackBytes reads a BYTES_8/16/32 value.
func (u *Unpacker) UnpackBytes() ([]byte, error) {
	m, err := u.readByte()
	if err != nil {
		return nil, err
	}
	var size uint64
	switch m {
	case markerBytes8:
		size, err = u.readSize(1)
	case markerBytes16:
		size, err = u.readSize(2)
	case markerBytes32:
		size, err = u.readSize(4)
	default:
		return nil, &UnexpectedTypeError{Want: TypeBytes, Got: m}
	}
	if err != nil {
		return nil, err
	}
	n, err := representable(size)
	if err != nil {
		return nil, err
	}
	return u.readN(n)
}

// UnpackString reads any string form.
func (u *Unpacker) UnpackString() (string, error) {
	m, err := u.readByte()
	if err != nil {
		return "", err
	}
	var size uint64
	switch {
	case m&highMask == tinyStringBase:
		size = uint64(m & tinyMask)
	case m == markerString8:
		size, err = u.readSize(1)
	case m == markerString16:
		size, err = u.readSize(2)
	case m == markerString32:
		size, err = u.readSize(4)
	default:
		return "", &UnexpectedTypeError{Want: TypeString, Got: m}
	}
	if err != nil {
		return "", err
	}
	n, err := representable(size)
	if err != nil {
		return "", err
	}
	b, err := u.readN(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnpackListHeader reads a list header and returns the element count.
func (u *Unpacker) UnpackListHeader() (int, error) {
	m, err := u.readByte()
	if err != nil {
		return 0, err
	}
	var size uint64
	switch {
	case m&highMask == tinyListBase:
		size = uint64(m & tinyMask)
	case m == markerList8:
		size, err = u.readSize(1)
	case m == markerList16:
		size, err = u.readSize(2)
	case m == markerList32:
		size, err = u.readSize(4)
	default:
		return 0, &UnexpectedTypeError{Want: TypeList, Got: m}
	}
	if err != nil {
		return 0, err
	}
	return representable(size)
}

// UnpackMapHeader reads a map header and returns the pair count.
func (u *Unpacker) UnpackMapHeader() (int, error) {
	m, err := u.readByte()
	if err != nil {
		return 0, err
	}
	var size uint64
	switch {
	case m&highMask == tinyMapBase:
		size = uint64(m & tinyMask)
	case m == markerMap8:
		size, err = u.readSize(1)
	case m == markerMap16:
		size, err = u.readSize(2)
	case m == markerMap32:
		size, err = u.readSize(4)
	default:
		return 0, &UnexpectedTypeError{Want: TypeMap, Got: m}
	}
	if err != nil {
		return 0, err
	}
	return representable(size)
}

// UnpackStructHeader reads a structure header and returns the field
// count and signature byte. STRUCT_32 (0xDE) is reserved and rejected.
func (u *Unpacker) UnpackStructHeader() (int, byte, error) {
	m, err := u.readByte()
	if err != nil {
		return 0, 0, err
	}
	var size uint64
	switch {
	case m&highMask == tinyStructBase:
		size = uint64(m & tinyMask)
	case m == markerStruct8:
		size, err = u.readSize(1)
	case m == markerStruct16:
		size, err = u.readSize(2)
	case m == markerStruct32:
		return 0, 0, &UnexpectedTypeError{Want: TypeStruct, Got: m}
	default:
		return 0, 0, &UnexpectedTypeError{Want: TypeStruct, Got: m}
	}
	if err != nil {
		return 0, 0, err
	}
	n, err := representable(size)
	if err != nil {
		return 0, 0, err
	}
	sig, err := u.readByte()
	if err != nil {
		return 0, 0, err
	}
	return n, sig, nil
}

// Unpack reads the next value generically, dispatching on its marker's
// PackType. Use the typed Unpack* methods directly when the expected
// type is known, to get precise error messages on mismatch.
func (u *Unpacker) Unpack() (Value, error) {
	t, err := u.PeekNextType()
	if err != nil {
		return Value{}, err
	}
	switch t {
	case TypeNull:
		if err := u.UnpackNull(); err != nil {
			return Value{}, err
		}
		return Null(), nil
	case TypeBool:
		b, err := u.UnpackBool()
		if err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case TypeInt:
		i, err := u.UnpackInt()
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case TypeFloat:
		f, err := u.UnpackFloat()
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case TypeBytes:
		b, err := u.UnpackBytes()
		if err != nil {
			return Value{}, err
		}
		return Bytes(b), nil
	case TypeString:
		s, err := u.UnpackString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case TypeList:
		n, err := u.UnpackListHeader()
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, n)
		for i := 0; i < n; i++ {
			items[i], err = u.Unpack()
			if err != nil {
				return Value{}, err
			}
		}
		return Value{Kind: KindList, List: items}, nil
	case TypeMap:
		n, err := u.UnpackMapHeader()
		if err != nil {
			return Value{}, err
		}
		pairs := make(Map, n)
		for i := 0; i < n; i++ {
			key, err := u.UnpackString()
			if err != nil {
				return Value{}, err
			}
			val, err := u.Unpack()
			if err != nil {
				return Value{}, err
			}
			pairs[i] = Pair{Key: key, Value: val}
		}
		return MapValue(pairs), nil
	case TypeStruct:
		n, sig, err := u.UnpackStructHeader()
		if err != nil {
			return Value{}, err
		}
		fields := make([]Value, n)
		for i := 0; i < n; i++ {
			fields[i], err = u.Unpack()
			if err != nil {
				return Value{}, err
			}
		}
		return StructValue(Struct{Signature: sig, Fields: fields}), nil
	default:
		m, _ := u.peekMarker()
		return Value{}, &UnexpectedTypeError{Want: TypeUnknown, Got: m}
	}
}

// readSize reads an n-byte (1/2/4) big-endian unsigned size field.
func (u *Unpacker) readSize(n int) (uint64, error) {
	b, err := u.readN(n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.BigEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.BigEndian.Uint32(b)), nil
	default:
		return 0, &UnpackableError{Reason: "invalid size width"}
	}
}

// representable converts a wire size to a platform int, rejecting
// values a 32-bit size field can carry but this platform's int/slice
// indices cannot.
func representable(size uint64) (int, error) {
	if size > uint64(^uint(0)>>1) {
		return 0, &CannotRepresentError{Size: uint32(size)}
	}
	return int(size), nil
}
