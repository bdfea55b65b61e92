package bitstream

import (
	"fmt"
	"math"
)

// Format describes how a logical value of type T maps onto bits. Formats
// are stateless descriptors; all mutation happens on the stream they are
// applied to.
type Format[T any] interface {
	// BitLength returns the exact number of bits the format occupies,
	// or -1 when the length depends on the value being read or written.
	BitLength() int

	Decode(s *BitStream) (T, error)
	Encode(s *BitStream, v T) error
}

// Read decodes one value from the stream using the given format. Reads are
// atomic: when the format's width is known up front and fewer bits remain,
// Read fails with ErrOutOfBits before consuming anything.
func Read[T any](s *BitStream, f Format[T]) (T, error) {
	var zero T
	if n := f.BitLength(); n >= 0 && s.BitsAvailable() < n {
		return zero, ErrOutOfBits
	}
	return f.Decode(s)
}

// Write encodes v onto the stream using the given format, starting at the
// cursor.
func Write[T any](s *BitStream, v T, f Format[T]) error {
	return f.Encode(s, v)
}

// ---------------------------------------------------------------------------
// Bit and raw-bit formats
// ---------------------------------------------------------------------------

// BitFormat reads and writes a single bit as a bool.
type BitFormat struct{}

// Bit is the single-bit format.
var Bit = BitFormat{}

func (BitFormat) BitLength() int { return 1 }

func (BitFormat) Decode(s *BitStream) (bool, error) {
	return s.ReadBit()
}

func (BitFormat) Encode(s *BitStream, v bool) error {
	s.WriteBit(v)
	return nil
}

// Bits reads and writes a run of Count raw bits in stored order.
type Bits struct {
	Count int
}

func (f Bits) BitLength() int { return f.Count }

func (f Bits) Decode(s *BitStream) ([]bool, error) {
	return s.ReadBitSeq(f.Count)
}

func (f Bits) Encode(s *BitStream, v []bool) error {
	if f.Count != len(v) {
		return fmt.Errorf("bitstream: bit count mismatch: format %d, value %d", f.Count, len(v))
	}
	s.WriteBitSeq(v)
	return nil
}

// Stream reads and writes a run of raw bits as a sub-stream. Count gives
// the width in bits for reads; writes take the width from the value, and
// Count, if nonzero, must match. A little-endian Stream reverses whole-byte
// order, so its width must be a multiple of eight.
type Stream struct {
	Count        int
	LittleEndian bool
}

func (f Stream) BitLength() int {
	if f.Count == 0 {
		return -1
	}
	return f.Count
}

func (f Stream) Decode(s *BitStream) (*BitStream, error) {
	if f.Count <= 0 {
		return nil, fmt.Errorf("bitstream: stream read requires a bit count")
	}
	if f.LittleEndian && f.Count%8 != 0 {
		return nil, ErrUnalignedEndian
	}
	sub, err := s.ReadStream(f.Count)
	if err != nil {
		return nil, err
	}
	if f.LittleEndian {
		if err := reverseByteOrder(sub.bits); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

func (f Stream) Encode(s *BitStream, v *BitStream) error {
	if f.Count != 0 && f.Count != v.Len() {
		return fmt.Errorf("bitstream: stream length mismatch: format %d, value %d", f.Count, v.Len())
	}
	bits := v.Bits()
	if f.LittleEndian {
		if err := reverseByteOrder(bits); err != nil {
			return err
		}
	}
	s.WriteBitSeq(bits)
	return nil
}

// reverseByteOrder reverses the order of whole bytes in a bit sequence,
// leaving bit order within each byte untouched.
func reverseByteOrder(bits []bool) error {
	if len(bits)%8 != 0 {
		return ErrUnalignedEndian
	}
	n := len(bits) / 8
	for i := 0; i < n/2; i++ {
		a, b := i*8, (n-1-i)*8
		for j := 0; j < 8; j++ {
			bits[a+j], bits[b+j] = bits[b+j], bits[a+j]
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Integer bit fields
// ---------------------------------------------------------------------------

// UB is an unsigned bit field of the given width. A zero Width is only
// valid for writes and encodes the value in the smallest number of whole
// bytes that fit it. Bits accumulate most-significant-first; LittleEndian
// reverses whole-byte order and requires a width that is a multiple of
// eight.
type UB struct {
	Width        int
	LittleEndian bool
}

// Byte is an unsigned 8-bit field.
var Byte = UB{Width: 8}

func (f UB) BitLength() int {
	if f.Width == 0 {
		return -1
	}
	return f.Width
}

func (f UB) Decode(s *BitStream) (uint64, error) {
	if f.Width <= 0 {
		return 0, fmt.Errorf("bitstream: unsigned field read requires a width")
	}
	if !f.LittleEndian {
		return s.ReadUint(f.Width)
	}
	if f.Width%8 != 0 {
		return 0, ErrUnalignedEndian
	}
	data, err := s.ReadBytes(f.Width / 8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := len(data) - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v, nil
}

func (f UB) Encode(s *BitStream, v uint64) error {
	width := f.Width
	if width == 0 {
		width = byteFieldWidth(v)
	}
	if width < 64 && v >= 1<<uint(width) {
		return fmt.Errorf("%w: %d does not fit in %d bits", ErrValueRange, v, width)
	}
	if !f.LittleEndian {
		return s.WriteUint(v, width)
	}
	if width%8 != 0 {
		return ErrUnalignedEndian
	}
	for i := 0; i < width/8; i++ {
		s.WriteUint(v>>(uint(i)*8)&0xFF, 8)
	}
	return nil
}

// byteFieldWidth returns the smallest whole-byte width that fits v.
func byteFieldWidth(v uint64) int {
	width := 8
	for v >= 1<<uint(width) && width < 64 {
		width += 8
	}
	return width
}

// SB is a signed bit field of the given width, interpreted as
// two's-complement. Endianness follows the same whole-byte rule as UB.
type SB struct {
	Width        int
	LittleEndian bool
}

func (f SB) BitLength() int {
	if f.Width == 0 {
		return -1
	}
	return f.Width
}

func (f SB) Decode(s *BitStream) (int64, error) {
	u, err := UB(f).Decode(s)
	if err != nil {
		return 0, err
	}
	return signExtend(u, f.Width), nil
}

func (f SB) Encode(s *BitStream, v int64) error {
	if f.Width <= 0 {
		return fmt.Errorf("bitstream: signed field write requires a width")
	}
	if f.Width < 64 {
		min := -(int64(1) << uint(f.Width-1))
		max := int64(1)<<uint(f.Width-1) - 1
		if v < min || v > max {
			return fmt.Errorf("%w: %d does not fit in signed %d bits", ErrValueRange, v, f.Width)
		}
	}
	mask := ^uint64(0)
	if f.Width < 64 {
		mask = 1<<uint(f.Width) - 1
	}
	return UB(f).Encode(s, uint64(v)&mask)
}

// signExtend interprets the low width bits of u as two's-complement.
func signExtend(u uint64, width int) int64 {
	if width <= 0 || width >= 64 {
		return int64(u)
	}
	if u&(1<<uint(width-1)) != 0 {
		return int64(u) - int64(1)<<uint(width)
	}
	return int64(u)
}

// ---------------------------------------------------------------------------
// Byte strings
// ---------------------------------------------------------------------------

// ByteString is a byte-aligned string. Count gives the number of whole
// bytes to read; writes take the length from the value, and Count, if
// nonzero, must match. LittleEndian reverses the byte sequence, not the
// bit order within bytes.
type ByteString struct {
	Count        int
	LittleEndian bool
}

func (f ByteString) BitLength() int {
	if f.Count == 0 {
		return -1
	}
	return f.Count * 8
}

func (f ByteString) Decode(s *BitStream) ([]byte, error) {
	if f.Count <= 0 {
		return nil, fmt.Errorf("bitstream: byte string read requires a byte count")
	}
	data, err := s.ReadBytes(f.Count)
	if err != nil {
		return nil, err
	}
	if f.LittleEndian {
		reverseBytes(data)
	}
	return data, nil
}

func (f ByteString) Encode(s *BitStream, v []byte) error {
	if f.Count != 0 && f.Count != len(v) {
		return fmt.Errorf("bitstream: byte count mismatch: format %d, value %d", f.Count, len(v))
	}
	if f.LittleEndian {
		rev := make([]byte, len(v))
		copy(rev, v)
		reverseBytes(rev)
		v = rev
	}
	s.WriteBytes(v)
	return nil
}

func reverseBytes(data []byte) {
	for i, j := 0, len(data)-1; i < j; i, j = i+1, j-1 {
		data[i], data[j] = data[j], data[i]
	}
}

// CStringFormat is a null-terminated byte string. Writes append a single
// zero byte after the content; reads consume up to and including the first
// zero byte and return the content without it. A read that exhausts the
// stream without finding a terminator fails without consuming anything.
type CStringFormat struct{}

// CString is the null-terminated string format.
var CString = CStringFormat{}

func (CStringFormat) BitLength() int { return -1 }

func (CStringFormat) Decode(s *BitStream) ([]byte, error) {
	// Scan ahead first so a missing terminator consumes nothing.
	pos := s.cursor
	var out []byte
	for {
		if len(s.bits)-pos < 8 {
			return nil, ErrNoTerminator
		}
		var b byte
		for i := 0; i < 8; i++ {
			b <<= 1
			if s.bits[pos+i] {
				b |= 1
			}
		}
		pos += 8
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	s.cursor = pos
	return out, nil
}

func (CStringFormat) Encode(s *BitStream, v []byte) error {
	s.WriteBytes(v)
	s.WriteUint(0, 8)
	return nil
}

// ---------------------------------------------------------------------------
// Floating point
// ---------------------------------------------------------------------------

// Float is a floating-point format of total width 16, 32 or 64 bits. The
// 32- and 64-bit widths are IEEE 754 single and double precision; the
// 16-bit width is the SWF half-precision layout with a 5-bit exponent
// biased by 16 and a 10-bit mantissa.
type Float struct {
	Width int
}

const (
	half16ExpBits  = 5
	half16MantBits = 10
	half16Bias     = 16
	half16ExpMax   = 1<<half16ExpBits - 1
)

func (f Float) BitLength() int { return f.Width }

func (f Float) Decode(s *BitStream) (float64, error) {
	switch f.Width {
	case 16:
		u, err := s.ReadUint(16)
		if err != nil {
			return 0, err
		}
		return half16ToFloat(uint16(u)), nil
	case 32:
		u, err := s.ReadUint(32)
		if err != nil {
			return 0, err
		}
		return float64(math.Float32frombits(uint32(u))), nil
	case 64:
		u, err := s.ReadUint(64)
		if err != nil {
			return 0, err
		}
		return math.Float64frombits(u), nil
	default:
		return 0, fmt.Errorf("bitstream: unsupported float width %d", f.Width)
	}
}

func (f Float) Encode(s *BitStream, v float64) error {
	switch f.Width {
	case 16:
		return s.WriteUint(uint64(floatToHalf16(v)), 16)
	case 32:
		return s.WriteUint(uint64(math.Float32bits(float32(v))), 32)
	case 64:
		return s.WriteUint(math.Float64bits(v), 64)
	default:
		return fmt.Errorf("bitstream: unsupported float width %d", f.Width)
	}
}

// half16ToFloat reconstructs a value from the SWF 16-bit layout: sign,
// 5-bit exponent with bias 16, 10-bit mantissa.
func half16ToFloat(u uint16) float64 {
	sign := u>>15 == 1
	exp := int(u >> half16MantBits & half16ExpMax)
	mant := uint64(u & (1<<half16MantBits - 1))

	var v float64
	switch {
	case exp == half16ExpMax:
		if mant == 0 {
			v = math.Inf(1)
		} else {
			v = math.NaN()
		}
	case exp == 0:
		v = math.Ldexp(float64(mant), 1-half16Bias-half16MantBits)
	default:
		v = math.Ldexp(float64(mant|1<<half16MantBits), exp-half16Bias-half16MantBits)
	}
	if sign {
		v = -v
	}
	return v
}

// floatToHalf16 encodes a value into the SWF 16-bit layout, rounding the
// mantissa to nearest and saturating overflow to infinity.
func floatToHalf16(v float64) uint16 {
	var sign uint16
	if math.Signbit(v) {
		sign = 1 << 15
		v = -v
	}
	switch {
	case math.IsNaN(v):
		return sign | half16ExpMax<<half16MantBits | 1
	case math.IsInf(v, 0):
		return sign | half16ExpMax<<half16MantBits
	case v == 0:
		return sign
	}

	frac, exp := math.Frexp(v) // v = frac * 2^exp, frac in [0.5, 1)
	biased := exp - 1 + half16Bias
	if biased >= half16ExpMax {
		return sign | half16ExpMax<<half16MantBits
	}
	if biased <= 0 {
		// Subnormal: value = mant * 2^(1 - bias - mantbits).
		mant := uint16(math.Round(math.Ldexp(v, half16Bias+half16MantBits-1)))
		return sign | mant
	}
	mant := uint16(math.Round((frac*2 - 1) * (1 << half16MantBits)))
	if mant == 1<<half16MantBits {
		// Rounding carried into the exponent.
		mant = 0
		biased++
		if biased >= half16ExpMax {
			return sign | half16ExpMax<<half16MantBits
		}
	}
	return sign | uint16(biased)<<half16MantBits | mant
}

// ---------------------------------------------------------------------------
// Fixed point
// ---------------------------------------------------------------------------

// Fixed is a fixed-point format with a two's-complement integer part of
// IntBits bits followed by an unsigned fraction of FracBits bits, decoded
// as integer + fraction/2^FracBits. LittleEndian applies whole-byte
// reversal over the combined width.
type Fixed struct {
	IntBits      int
	FracBits     int
	LittleEndian bool
}

func (f Fixed) BitLength() int { return f.IntBits + f.FracBits }

func (f Fixed) Decode(s *BitStream) (float64, error) {
	width := f.IntBits + f.FracBits
	u, err := UB{Width: width, LittleEndian: f.LittleEndian}.Decode(s)
	if err != nil {
		return 0, err
	}
	intPart := signExtend(u>>uint(f.FracBits), f.IntBits)
	frac := u & (1<<uint(f.FracBits) - 1)
	return float64(intPart) + float64(frac)/float64(uint64(1)<<uint(f.FracBits)), nil
}

func (f Fixed) Encode(s *BitStream, v float64) error {
	width := f.IntBits + f.FracBits
	scaled := math.Round(v * float64(uint64(1)<<uint(f.FracBits)))
	min := -math.Ldexp(1, width-1)
	max := math.Ldexp(1, width-1) - 1
	if scaled < min || scaled > max {
		return fmt.Errorf("%w: %v does not fit in %d.%d fixed point", ErrValueRange, v, f.IntBits, f.FracBits)
	}
	mask := uint64(1)<<uint(width) - 1
	return UB{Width: width, LittleEndian: f.LittleEndian}.Encode(s, uint64(int64(scaled))&mask)
}
