package packstream_test

import (
	"bytes"
	"testing"

	"github.com/mickamy/boltstream/packstream"
)

func roundTrip(t *testing.T, v packstream.Value) packstream.Value {
	t.Helper()

	var buf bytes.Buffer
	if err := packstream.NewPacker(&buf).Pack(v); err != nil {
		t.Fatalf("Pack: %v", err)
	}
	got, err := packstream.NewUnpacker(&buf).Unpack()
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	return got
}

func TestRoundTripScalars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    packstream.Value
	}{
		{"null", packstream.Null()},
		{"true", packstream.Bool(true)},
		{"false", packstream.Bool(false)},
		{"tiny int zero", packstream.Int(0)},
		{"tiny int positive", packstream.Int(42)},
		{"tiny int negative boundary", packstream.Int(-16)},
		{"int8", packstream.Int(-17)},
		{"int8 min", packstream.Int(-128)},
		{"int16", packstream.Int(-129)},
		{"int16 max", packstream.Int(32767)},
		{"int32", packstream.Int(65536)},
		{"int64", packstream.Int(1 << 40)},
		{"float", packstream.Float(3.14159)},
		{"empty string", packstream.String("")},
		{"tiny string", packstream.String("hello")},
		{"string16", packstream.String(string(make([]byte, 5000))) },
		{"bytes", packstream.Bytes([]byte{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := roundTrip(t, tt.v)
			if !got.Equal(tt.v) {
				t.Fatalf("round trip mismatch: want %+v, got %+v", tt.v, got)
			}
		})
	}
}

func TestRoundTripCollections(t *testing.T) {
	t.Parallel()

	list := packstream.List(packstream.Int(1), packstream.String("hi"), packstream.Bool(true))
	got := roundTrip(t, list)
	if !got.Equal(list) {
		t.Fatalf("list mismatch: want %+v, got %+v", list, got)
	}

	m := packstream.MapValue(packstream.Map{
		{Key: "b", Value: packstream.Int(2)},
		{Key: "a", Value: packstream.Int(1)},
	})
	gotMap := roundTrip(t, m)
	if !gotMap.Equal(m) {
		t.Fatalf("map order mismatch: want %+v, got %+v", m, gotMap)
	}
}

func TestRoundTripStruct(t *testing.T) {
	t.Parallel()

	s := packstream.StructValue(packstream.Struct{
		Signature: 0x70,
		Fields:    []packstream.Value{packstream.MapValue(packstream.Map{{Key: "server", Value: packstream.String("Neo4j/3.0.0")}})},
	})
	got := roundTrip(t, s)
	if !got.Equal(s) {
		t.Fatalf("struct mismatch: want %+v, got %+v", s, got)
	}
}

func TestIntegerNarrowestEncoding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		i        int64
		wantLen  int
		wantByte byte
	}{
		{0, 1, 0x00},
		{127, 1, 0x7F},
		{-16, 1, 0xF0},
		{-17, 2, 0xC8},
		{128, 3, 0xC9},
		{32768, 5, 0xCA},
		{1 << 32, 9, 0xCB},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		if err := packstream.NewPacker(&buf).PackInt(tt.i); err != nil {
			t.Fatalf("PackInt(%d): %v", tt.i, err)
		}
		if buf.Len() != tt.wantLen {
			t.Errorf("PackInt(%d): len=%d, want %d", tt.i, buf.Len(), tt.wantLen)
		}
		if buf.Bytes()[0] != tt.wantByte {
			t.Errorf("PackInt(%d): marker=0x%02X, want 0x%02X", tt.i, buf.Bytes()[0], tt.wantByte)
		}
	}
}

func TestExhaustiveMarkerExample(t *testing.T) {
	t.Parallel()

	// {"k": [1, -17, 65536, "hi"]}
	v := packstream.MapValue(packstream.Map{
		{Key: "k", Value: packstream.List(
			packstream.Int(1),
			packstream.Int(-17),
			packstream.Int(65536),
			packstream.String("hi"),
		)},
	})

	var buf bytes.Buffer
	if err := packstream.NewPacker(&buf).Pack(v); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	want := []byte{
		0xA1,             // TINY_MAP|1
		0x81, 'k',        // TINY_STRING|1, 'k'
		0x94,             // TINY_LIST|4
		0x01,             // +TINY_INT 1
		0xC8, 0xEF,       // INT_8 -17
		0xCA, 0x00, 0x01, 0x00, 0x00, // INT_32 65536
		0x82, 'h', 'i', // TINY_STRING|2, "hi"
	}

	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("wire bytes mismatch:\n got  % X\n want % X", buf.Bytes(), want)
	}
}

func TestUnpackStruct32Rejected(t *testing.T) {
	t.Parallel()

	_, err := packstream.NewUnpacker(bytes.NewReader([]byte{0xDE, 0x00, 0x00, 0x00, 0x01, 0x01})).Unpack()
	if err == nil {
		t.Fatal("expected error unpacking reserved STRUCT_32 marker")
	}
}

func TestPeekNextTypeDoesNotAdvance(t *testing.T) {
	t.Parallel()

	u := packstream.NewUnpacker(bytes.NewReader([]byte{0x01}))
	pt, err := u.PeekNextType()
	if err != nil {
		t.Fatalf("PeekNextType: %v", err)
	}
	if pt != packstream.TypeInt {
		t.Fatalf("PeekNextType: got %s, want Int", pt)
	}
	i, err := u.UnpackInt()
	if err != nil {
		t.Fatalf("UnpackInt: %v", err)
	}
	if i != 1 {
		t.Fatalf("UnpackInt: got %d, want 1", i)
	}
}

func TestUnpackNullWrongMarker(t *testing.T) {
	t.Parallel()

	err := packstream.NewUnpacker(bytes.NewReader([]byte{0x01})).UnpackNull()
	if err == nil {
		t.Fatal("expected UnexpectedTypeError")
	}
}
