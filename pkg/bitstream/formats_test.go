package bitstream

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestReadByteString(t *testing.T) {
	bits := fromString(t, "00101010")
	got, err := Read(bits, ByteString{Count: 1})
	if err != nil {
		t.Fatalf("Read(ByteString[1]): %v", err)
	}
	if !bytes.Equal(got, []byte{42}) {
		t.Errorf("Read(ByteString[1]) = %v, want [42]", got)
	}
	if bits.BitsAvailable() != 0 {
		t.Errorf("BitsAvailable() = %d, want 0", bits.BitsAvailable())
	}

	bits = fromString(t, "00101010 00101111")
	got, err = Read(bits, ByteString{Count: 2})
	if err != nil {
		t.Fatalf("Read(ByteString[2]): %v", err)
	}
	if !bytes.Equal(got, []byte{42, 47}) {
		t.Errorf("Read(ByteString[2]) = %v, want [42 47]", got)
	}

	bits.Rewind()
	got, err = Read(bits, ByteString{Count: 2, LittleEndian: true})
	if err != nil {
		t.Fatalf("Read(ByteString[2:<]): %v", err)
	}
	if !bytes.Equal(got, []byte{47, 42}) {
		t.Errorf("Read(ByteString[2:<]) = %v, want [47 42]", got)
	}
}

func TestWriteByteString(t *testing.T) {
	bits := New()
	if err := Write(bits, []byte("FWS"), ByteString{}); err != nil {
		t.Fatalf("Write(ByteString): %v", err)
	}
	if bits.BitsAvailable() != 0 {
		t.Errorf("BitsAvailable() = %d, want 0", bits.BitsAvailable())
	}
	if bits.Len() != 24 {
		t.Errorf("Len() = %d, want 24", bits.Len())
	}

	bits.Rewind()
	for i, want := range []uint64{'F', 'W', 'S'} {
		got, err := Read(bits, Byte)
		if err != nil {
			t.Fatalf("Read(Byte) %d: %v", i, err)
		}
		if got != want {
			t.Errorf("byte %d = %d, want %d", i, got, want)
		}
	}
}

func TestCString(t *testing.T) {
	testData := []byte("test 123\x01\xFF")

	bits := New()
	if err := Write(bits, testData, CString); err != nil {
		t.Fatalf("Write(CString): %v", err)
	}
	if bits.Len() != (len(testData)+1)*8 {
		t.Errorf("Len() = %d, want %d (content plus terminator)", bits.Len(), (len(testData)+1)*8)
	}

	bits.Rewind()
	got, err := Read(bits, CString)
	if err != nil {
		t.Fatalf("Read(CString): %v", err)
	}
	if !bytes.Equal(got, testData) {
		t.Errorf("Read(CString) = %q, want %q", got, testData)
	}
	if bits.BitsAvailable() != 0 {
		t.Errorf("BitsAvailable() = %d, want 0", bits.BitsAvailable())
	}
}

func TestCStringWriteReadBack(t *testing.T) {
	bits := New()
	if err := Write(bits, []byte("FWS"), CString); err != nil {
		t.Fatalf("Write(CString): %v", err)
	}
	if bits.Len() != 32 {
		t.Errorf("Len() = %d, want 32", bits.Len())
	}
	bits.Rewind()
	for i, want := range []uint64{'F', 'W', 'S', 0} {
		got, err := Read(bits, Byte)
		if err != nil {
			t.Fatalf("Read(Byte) %d: %v", i, err)
		}
		if got != want {
			t.Errorf("byte %d = %d, want %d", i, got, want)
		}
	}
}

func TestCStringNoTerminator(t *testing.T) {
	bits := New()
	if err := Write(bits, []byte("adsfasfdgjklhrgokrjygaosaf"), ByteString{}); err != nil {
		t.Fatalf("Write(ByteString): %v", err)
	}
	bits.Rewind()
	if _, err := Read(bits, CString); !errors.Is(err, ErrNoTerminator) {
		t.Errorf("Read(CString) without terminator = %v, want ErrNoTerminator", err)
	}
	if bits.Cursor() != 0 {
		t.Errorf("Cursor() after failed CString read = %d, want 0", bits.Cursor())
	}
}

func TestReadRawBits(t *testing.T) {
	bits := fromString(t, "1011001")
	got, err := Read(bits, Bits{Count: 4})
	if err != nil {
		t.Fatalf("Read(Bits[4]): %v", err)
	}
	want := []bool{true, false, true, true}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bit %d = %v, want %v", i, got[i], want[i])
		}
	}
	if bits.BitsAvailable() != 3 {
		t.Errorf("BitsAvailable() = %d, want 3", bits.BitsAvailable())
	}
	if _, err := Read(bits, Bits{Count: 4}); !errors.Is(err, ErrOutOfBits) {
		t.Errorf("Read(Bits[4]) with 3 left = %v, want ErrOutOfBits", err)
	}
}

func TestReadStreamLittleEndian(t *testing.T) {
	bits := New()
	if err := Write(bits, []byte("SWF"), ByteString{}); err != nil {
		t.Fatalf("Write(ByteString): %v", err)
	}

	bits.Rewind()
	sub, err := Read(bits, Stream{Count: 24, LittleEndian: true})
	if err != nil {
		t.Fatalf("Read(Stream[24:<]): %v", err)
	}
	got, err := Read(sub, ByteString{Count: 3})
	if err != nil {
		t.Fatalf("Read(ByteString[3]): %v", err)
	}
	if string(got) != "FWS" {
		t.Errorf("reversed bytes = %q, want %q", got, "FWS")
	}
	if bits.BitsAvailable() != 0 {
		t.Errorf("BitsAvailable() = %d, want 0", bits.BitsAvailable())
	}
}

func TestWriteStreamLittleEndian(t *testing.T) {
	src := New()
	if err := Write(src, []byte("SWF"), ByteString{}); err != nil {
		t.Fatalf("Write(ByteString): %v", err)
	}

	bits := New()
	if err := Write(bits, src, Stream{LittleEndian: true}); err != nil {
		t.Fatalf("Write(Stream[<]): %v", err)
	}

	bits.Rewind()
	got, err := Read(bits, ByteString{Count: 3})
	if err != nil {
		t.Fatalf("Read(ByteString[3]): %v", err)
	}
	if string(got) != "FWS" {
		t.Errorf("reversed write = %q, want %q", got, "FWS")
	}
	if bits.BitsAvailable() != 0 {
		t.Errorf("BitsAvailable() = %d, want 0", bits.BitsAvailable())
	}
}

func TestReadUnsignedField(t *testing.T) {
	bits := New()
	if err := Write(bits, []byte{0xDD, 0xEE, 0xFF}, ByteString{}); err != nil {
		t.Fatalf("Write(ByteString): %v", err)
	}

	bits.Rewind()
	got, err := Read(bits, UB{Width: 24})
	if err != nil {
		t.Fatalf("Read(UB[24]): %v", err)
	}
	if got != 0xDDEEFF {
		t.Errorf("Read(UB[24]) = %#x, want 0xDDEEFF", got)
	}

	bits.Rewind()
	got, err = Read(bits, UB{Width: 24, LittleEndian: true})
	if err != nil {
		t.Fatalf("Read(UB[24:<]): %v", err)
	}
	if got != 0xFFEEDD {
		t.Errorf("Read(UB[24:<]) = %#x, want 0xFFEEDD", got)
	}
	if bits.BitsAvailable() != 0 {
		t.Errorf("BitsAvailable() = %d, want 0", bits.BitsAvailable())
	}
}

func TestWriteUnsignedField(t *testing.T) {
	bits := New()
	if err := Write(bits, 0xF, UB{Width: 4}); err != nil {
		t.Fatalf("Write(UB[4]): %v", err)
	}
	if bits.Len() != 4 || bits.String() != "1111" {
		t.Errorf("Write(UB[4]) = %q (len %d), want \"1111\"", bits.String(), bits.Len())
	}

	bits = New()
	if err := Write(bits, 0xF, UB{Width: 8}); err != nil {
		t.Fatalf("Write(UB[8]): %v", err)
	}
	if bits.Len() != 8 || bits.String() != "00001111" {
		t.Errorf("Write(UB[8]) = %q (len %d), want \"00001111\"", bits.String(), bits.Len())
	}

	bits = New()
	if err := Write(bits, 0xDDEEFF, UB{}); err != nil {
		t.Fatalf("Write(UB): %v", err)
	}
	bits.Rewind()
	got, err := Read(bits, ByteString{Count: 3})
	if err != nil {
		t.Fatalf("Read(ByteString[3]): %v", err)
	}
	if !bytes.Equal(got, []byte{0xDD, 0xEE, 0xFF}) {
		t.Errorf("minimal write = % x, want dd ee ff", got)
	}

	bits = New()
	if err := Write(bits, 0xDDEEFF, UB{LittleEndian: true}); err != nil {
		t.Fatalf("Write(UB[<]): %v", err)
	}
	bits.Rewind()
	got, err = Read(bits, ByteString{Count: 3})
	if err != nil {
		t.Fatalf("Read(ByteString[3]): %v", err)
	}
	if !bytes.Equal(got, []byte{0xFF, 0xEE, 0xDD}) {
		t.Errorf("little-endian write = % x, want ff ee dd", got)
	}
}

func TestUnsignedFieldRange(t *testing.T) {
	bits := New()
	if err := Write(bits, 16, UB{Width: 4}); !errors.Is(err, ErrValueRange) {
		t.Errorf("Write(16, UB[4]) = %v, want ErrValueRange", err)
	}
}

func TestUnsignedFieldUnalignedEndian(t *testing.T) {
	bits := fromString(t, "101010101010")
	if _, err := Read(bits, UB{Width: 12, LittleEndian: true}); !errors.Is(err, ErrUnalignedEndian) {
		t.Errorf("Read(UB[12:<]) = %v, want ErrUnalignedEndian", err)
	}
}

// Round-trip law: for every width and in-range value, a write followed by a
// read from cursor 0 returns the value exactly, in both byte orders for
// whole-byte widths.
func TestUnsignedFieldRoundTrip(t *testing.T) {
	for width := 1; width <= 32; width++ {
		samples := []uint64{0, 1, 1<<uint(width) - 1, 1 << uint(width-1), 0x5A5A5A5A & (1<<uint(width) - 1)}
		for _, v := range samples {
			bits := New()
			if err := Write(bits, v, UB{Width: width}); err != nil {
				t.Fatalf("Write(%d, UB[%d]): %v", v, width, err)
			}
			bits.Rewind()
			got, err := Read(bits, UB{Width: width})
			if err != nil {
				t.Fatalf("Read(UB[%d]): %v", width, err)
			}
			if got != v {
				t.Errorf("round trip UB[%d] of %d = %d", width, v, got)
			}

			if width%8 != 0 {
				continue
			}
			bits = New()
			if err := Write(bits, v, UB{Width: width, LittleEndian: true}); err != nil {
				t.Fatalf("Write(%d, UB[%d:<]): %v", v, width, err)
			}
			bits.Rewind()
			got, err = Read(bits, UB{Width: width, LittleEndian: true})
			if err != nil {
				t.Fatalf("Read(UB[%d:<]): %v", width, err)
			}
			if got != v {
				t.Errorf("round trip UB[%d:<] of %d = %d", width, v, got)
			}
		}
	}
}

func TestSignedField(t *testing.T) {
	bits := New()
	if err := Write(bits, int64(-1), SB{Width: 4}); err != nil {
		t.Fatalf("Write(-1, SB[4]): %v", err)
	}
	if bits.String() != "1111" {
		t.Errorf("Write(-1, SB[4]) = %q, want \"1111\"", bits.String())
	}
	bits.Rewind()
	got, err := Read(bits, SB{Width: 4})
	if err != nil || got != -1 {
		t.Errorf("Read(SB[4]) = %d, %v, want -1, nil", got, err)
	}

	for _, v := range []int64{-128, -42, -1, 0, 1, 42, 127} {
		bits := New()
		if err := Write(bits, v, SB{Width: 8}); err != nil {
			t.Fatalf("Write(%d, SB[8]): %v", v, err)
		}
		bits.Rewind()
		got, err := Read(bits, SB{Width: 8})
		if err != nil {
			t.Fatalf("Read(SB[8]): %v", err)
		}
		if got != v {
			t.Errorf("round trip SB[8] of %d = %d", v, got)
		}
	}

	if err := Write(New(), int64(128), SB{Width: 8}); !errors.Is(err, ErrValueRange) {
		t.Errorf("Write(128, SB[8]) = %v, want ErrValueRange", err)
	}
}

func TestFloat16(t *testing.T) {
	bits := fromString(t, "0100000000000000")
	got, err := Read(bits, Float{Width: 16})
	if err != nil {
		t.Fatalf("Read(Float[16]): %v", err)
	}
	if got != 1 {
		t.Errorf("Read(Float[16]) = %v, want 1", got)
	}
	if bits.BitsAvailable() != 0 {
		t.Errorf("BitsAvailable() = %d, want 0", bits.BitsAvailable())
	}

	bits = fromString(t, "0111110000000000")
	got, err = Read(bits, Float{Width: 16})
	if err != nil || !math.IsInf(got, 1) {
		t.Errorf("Read(Float[16]) = %v, %v, want +Inf, nil", got, err)
	}

	bits = fromString(t, "1111110000000000")
	got, err = Read(bits, Float{Width: 16})
	if err != nil || !math.IsInf(got, -1) {
		t.Errorf("Read(Float[16]) = %v, %v, want -Inf, nil", got, err)
	}
}

func TestFloat16Write(t *testing.T) {
	bits := New()
	if err := Write(bits, 1.0, Float{Width: 16}); err != nil {
		t.Fatalf("Write(1.0, Float[16]): %v", err)
	}
	if bits.String() != "0100000000000000" {
		t.Errorf("Write(1.0, Float[16]) = %q, want %q", bits.String(), "0100000000000000")
	}

	for _, v := range []float64{0, 0.5, 1, 2, -1, 0.25, 100, math.Inf(1), math.Inf(-1)} {
		bits := New()
		if err := Write(bits, v, Float{Width: 16}); err != nil {
			t.Fatalf("Write(%v, Float[16]): %v", v, err)
		}
		bits.Rewind()
		got, err := Read(bits, Float{Width: 16})
		if err != nil {
			t.Fatalf("Read(Float[16]): %v", err)
		}
		if got != v {
			t.Errorf("round trip Float[16] of %v = %v", v, got)
		}
	}

	bits = New()
	if err := Write(bits, math.NaN(), Float{Width: 16}); err != nil {
		t.Fatalf("Write(NaN, Float[16]): %v", err)
	}
	bits.Rewind()
	got, err := Read(bits, Float{Width: 16})
	if err != nil || !math.IsNaN(got) {
		t.Errorf("round trip Float[16] of NaN = %v, %v", got, err)
	}
}

func TestFloat32(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"0 01111100 01000000000000000000000", 0.15625},
		{"0 10000011 10010000000000000000000", 25},
		{"0 11111111 00000000000000000000000", math.Inf(1)},
		{"1 11111111 00000000000000000000000", math.Inf(-1)},
	}
	for _, c := range cases {
		bits := fromString(t, c.in)
		got, err := Read(bits, Float{Width: 32})
		if err != nil {
			t.Fatalf("Read(Float[32]) of %q: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("Read(Float[32]) of %q = %v, want %v", c.in, got, c.want)
		}
		if bits.BitsAvailable() != 0 {
			t.Errorf("BitsAvailable() = %d, want 0", bits.BitsAvailable())
		}
	}
}

func TestFloat64(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"0011111111110000000000000000000000000000000000000000000000000000", 1},
		{"0111111111110000000000000000000000000000000000000000000000000000", math.Inf(1)},
		{"1111111111110000000000000000000000000000000000000000000000000000", math.Inf(-1)},
	}
	for _, c := range cases {
		bits := fromString(t, c.in)
		got, err := Read(bits, Float{Width: 64})
		if err != nil {
			t.Fatalf("Read(Float[64]): %v", err)
		}
		if got != c.want {
			t.Errorf("Read(Float[64]) = %v, want %v", got, c.want)
		}
	}
}

func TestFloatRoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 0.15625, 25, 1e10, -3.5, math.Inf(1), math.Inf(-1)}
	for _, width := range []int{32, 64} {
		for _, v := range values {
			bits := New()
			if err := Write(bits, v, Float{Width: width}); err != nil {
				t.Fatalf("Write(%v, Float[%d]): %v", v, width, err)
			}
			bits.Rewind()
			got, err := Read(bits, Float{Width: width})
			if err != nil {
				t.Fatalf("Read(Float[%d]): %v", width, err)
			}
			if width == 32 {
				v = float64(float32(v))
			}
			if got != v {
				t.Errorf("round trip Float[%d] of %v = %v", width, v, got)
			}
		}
	}
}

func TestFixed(t *testing.T) {
	bits := New()
	if err := Write(bits, 3.5, Fixed{IntBits: 8, FracBits: 8}); err != nil {
		t.Fatalf("Write(3.5, Fixed[8.8]): %v", err)
	}
	if bits.Len() != 16 {
		t.Errorf("Len() = %d, want 16", bits.Len())
	}
	bits.Rewind()
	got, err := Read(bits, Fixed{IntBits: 8, FracBits: 8})
	if err != nil || got != 3.5 {
		t.Errorf("Read(Fixed[8.8]) = %v, %v, want 3.5, nil", got, err)
	}

	for _, v := range []float64{0, 1, -1, -3.25, 100.75, 0.00390625} {
		bits := New()
		if err := Write(bits, v, Fixed{IntBits: 16, FracBits: 16}); err != nil {
			t.Fatalf("Write(%v, Fixed[16.16]): %v", v, err)
		}
		bits.Rewind()
		got, err := Read(bits, Fixed{IntBits: 16, FracBits: 16})
		if err != nil {
			t.Fatalf("Read(Fixed[16.16]): %v", err)
		}
		if got != v {
			t.Errorf("round trip Fixed[16.16] of %v = %v", v, got)
		}
	}

	if err := Write(New(), 1e9, Fixed{IntBits: 8, FracBits: 8}); !errors.Is(err, ErrValueRange) {
		t.Errorf("Write(1e9, Fixed[8.8]) = %v, want ErrValueRange", err)
	}
}

// Fraction decoding: the fraction bits divide by 2^fracbits.
func TestFixedFraction(t *testing.T) {
	bits := fromString(t, "00000011 10000000")
	got, err := Read(bits, Fixed{IntBits: 8, FracBits: 8})
	if err != nil {
		t.Fatalf("Read(Fixed[8.8]): %v", err)
	}
	if got != 3.5 {
		t.Errorf("Read(Fixed[8.8]) of 0x0380 = %v, want 3.5", got)
	}
}
