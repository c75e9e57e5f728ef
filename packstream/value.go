// Package packstream implements the PackStream binary serialization
// format: a self-describing wire format for null, bool, int64, float64,
// byte arrays, UTF-8 strings, lists, insertion-ordered maps, and typed
// structures, each prefixed by a single marker byte.
package packstream

// Pair is a single insertion-ordered map entry. Map preserves pack
// order rather than using a Go map, so a round-tripped value always
// re-serializes byte-for-byte identically.
type Pair struct {
	Key   string
	Value Value
}

// Map is an insertion-ordered string-keyed mapping. The codec does not
// reject duplicate keys; producing one is the caller's responsibility.
type Map []Pair

// Get returns the value for key and whether it was found. Map is small
// in practice (handshake metadata, statement parameters), so a linear
// scan is preferred over building an index.
func (m Map) Get(key string) (Value, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Struct is a PackStream structure: a signature byte plus an ordered
// sequence of fields. Bolt messages are always Structs.
type Struct struct {
	Signature byte
	Fields    []Value
}

// Kind identifies which field of Value is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindBytes
	KindString
	KindList
	KindMap
	KindStruct
)

// Value is a tagged union over every type PackStream can carry. Only
// the field matching Kind is meaningful.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	Bytes  []byte
	String string
	List   []Value
	Map    Map
	Struct Struct
}

func Null() Value                 { return Value{Kind: KindNull} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value           { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value       { return Value{Kind: KindFloat, Float: f} }
func Bytes(b []byte) Value        { return Value{Kind: KindBytes, Bytes: b} }
func String(s string) Value       { return Value{Kind: KindString, String: s} }
func List(vs ...Value) Value      { return Value{Kind: KindList, List: vs} }
func MapValue(m Map) Value        { return Value{Kind: KindMap, Map: m} }
func StructValue(s Struct) Value  { return Value{Kind: KindStruct, Struct: s} }

// Equal reports structural equality, including map insertion order —
// the shape §8's codec round-trip property is tested against.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindInt:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindBytes:
		return bytesEqual(v.Bytes, other.Bytes)
	case KindString:
		return v.String == other.String
	case KindList:
		return listEqual(v.List, other.List)
	case KindMap:
		return mapEqual(v.Map, other.Map)
	case KindStruct:
		return v.Struct.Signature == other.Struct.Signature && listEqual(v.Struct.Fields, other.Struct.Fields)
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func listEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func mapEqual(a, b Map) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key != b[i].Key || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}
