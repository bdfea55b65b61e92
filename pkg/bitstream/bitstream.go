package bitstream

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Errors reported by stream and format operations.
var (
	// ErrOutOfBits indicates a read needed more bits than remain before
	// the end of the stream. Nothing is consumed.
	ErrOutOfBits = errors.New("bitstream: read past end of stream")

	// ErrNoTerminator indicates a CString read exhausted the stream
	// without finding a zero byte.
	ErrNoTerminator = errors.New("bitstream: no null terminator before end of stream")

	// ErrValueRange indicates a value does not fit the width of the
	// requested encoding.
	ErrValueRange = errors.New("bitstream: value out of range for field width")

	// ErrUnalignedEndian indicates a little-endian format was requested
	// for a width that is not a multiple of eight bits.
	ErrUnalignedEndian = errors.New("bitstream: little-endian requires a whole-byte width")
)

// BitStream is an ordered mutable sequence of bits with a cursor. The zero
// value is an empty stream ready for use.
//
// Writing at the end of the stream extends it; writing before the end
// overwrites in place. Reads never extend the stream. A BitStream has a
// single owner: concurrent use requires separate instances.
type BitStream struct {
	bits   []bool
	cursor int
}

// New returns a new empty stream.
func New() *BitStream {
	return &BitStream{}
}

// FromBits returns a stream holding a copy of the given bits, cursor at 0.
func FromBits(bits []bool) *BitStream {
	s := &BitStream{bits: make([]bool, len(bits))}
	copy(s.bits, bits)
	return s
}

// FromBytes returns a stream holding the bytes' bits in order, cursor
// at 0.
func FromBytes(data []byte) *BitStream {
	s := &BitStream{bits: make([]bool, 0, len(data)*8)}
	for _, b := range data {
		for i := 7; i >= 0; i-- {
			s.bits = append(s.bits, b&(1<<i) != 0)
		}
	}
	return s
}

// FromString parses a string of '0' and '1' characters into a stream.
// Whitespace is ignored; any other character is an error.
func FromString(str string) (*BitStream, error) {
	s := &BitStream{bits: make([]bool, 0, len(str))}
	for _, r := range str {
		switch {
		case r == '0':
			s.bits = append(s.bits, false)
		case r == '1':
			s.bits = append(s.bits, true)
		case unicode.IsSpace(r):
		default:
			return nil, fmt.Errorf("bitstream: invalid character %q in bit string", r)
		}
	}
	return s, nil
}

// Len returns the total number of bits in the stream.
func (s *BitStream) Len() int {
	return len(s.bits)
}

// Cursor returns the current cursor position in bits from the start.
func (s *BitStream) Cursor() int {
	return s.cursor
}

// BitsAvailable returns the number of bits between the cursor and the end.
func (s *BitStream) BitsAvailable() int {
	return len(s.bits) - s.cursor
}

// Bits returns a copy of the underlying bit sequence.
func (s *BitStream) Bits() []bool {
	out := make([]bool, len(s.bits))
	copy(out, s.bits)
	return out
}

// String renders the bits in stored order as '0' and '1' characters.
func (s *BitStream) String() string {
	var b strings.Builder
	b.Grow(len(s.bits))
	for _, bit := range s.bits {
		if bit {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Seek repositions the cursor like a file seek. whence is one of
// io.SeekStart, io.SeekCurrent or io.SeekEnd. The resulting position must
// stay within [0, Len()].
func (s *BitStream) Seek(offset int, whence int) (int, error) {
	var pos int
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.cursor + offset
	case io.SeekEnd:
		pos = len(s.bits) - offset
	default:
		return s.cursor, fmt.Errorf("bitstream: invalid seek whence %d", whence)
	}
	if pos < 0 || pos > len(s.bits) {
		return s.cursor, fmt.Errorf("bitstream: seek position %d outside [0, %d]", pos, len(s.bits))
	}
	s.cursor = pos
	return pos, nil
}

// AtStart rewinds the stream and returns it, for chaining a full re-read
// after writes.
func (s *BitStream) AtStart() *BitStream {
	s.cursor = 0
	return s
}

// Rewind moves the cursor back to the start of the stream.
func (s *BitStream) Rewind() {
	s.cursor = 0
}

// SkipToEnd moves the cursor to the end of the stream.
func (s *BitStream) SkipToEnd() {
	s.cursor = len(s.bits)
}

// Flush pads the stream with zero bits up to the next multiple of eight
// bits, counted from the logical end of the stream, and leaves the cursor
// at the end. Flushing an already byte-aligned stream does not change its
// length.
func (s *BitStream) Flush() {
	for len(s.bits)%8 != 0 {
		s.bits = append(s.bits, false)
	}
	s.cursor = len(s.bits)
}

// WriteBit writes one bit at the cursor, overwriting in place or extending
// the stream at the end.
func (s *BitStream) WriteBit(bit bool) {
	if s.cursor < len(s.bits) {
		s.bits[s.cursor] = bit
	} else {
		s.bits = append(s.bits, bit)
	}
	s.cursor++
}

// WriteBitSeq writes the given bits in order starting at the cursor.
func (s *BitStream) WriteBitSeq(bits []bool) {
	for _, b := range bits {
		s.WriteBit(b)
	}
}

// ReadBit consumes and returns one bit.
func (s *BitStream) ReadBit() (bool, error) {
	if s.cursor >= len(s.bits) {
		return false, ErrOutOfBits
	}
	bit := s.bits[s.cursor]
	s.cursor++
	return bit, nil
}

// ReadBitSeq consumes n raw bits and returns them in stored order.
// The read is atomic: if fewer than n bits remain, nothing is consumed.
func (s *BitStream) ReadBitSeq(n int) ([]bool, error) {
	if n < 0 {
		return nil, fmt.Errorf("bitstream: negative bit count %d", n)
	}
	if s.BitsAvailable() < n {
		return nil, ErrOutOfBits
	}
	out := make([]bool, n)
	copy(out, s.bits[s.cursor:s.cursor+n])
	s.cursor += n
	return out, nil
}

// ReadStream consumes n raw bits and returns them as a new stream with its
// cursor at 0.
func (s *BitStream) ReadStream(n int) (*BitStream, error) {
	bits, err := s.ReadBitSeq(n)
	if err != nil {
		return nil, err
	}
	return &BitStream{bits: bits}, nil
}

// ReadUint consumes width bits and accumulates them most-significant-first
// into an unsigned integer. width must be at most 64.
func (s *BitStream) ReadUint(width int) (uint64, error) {
	if width < 0 || width > 64 {
		return 0, fmt.Errorf("bitstream: unsupported field width %d", width)
	}
	if s.BitsAvailable() < width {
		return 0, ErrOutOfBits
	}
	var v uint64
	for i := 0; i < width; i++ {
		v <<= 1
		if s.bits[s.cursor+i] {
			v |= 1
		}
	}
	s.cursor += width
	return v, nil
}

// WriteUint writes the low width bits of v most-significant-first. Bits of
// v above the field width must be zero.
func (s *BitStream) WriteUint(v uint64, width int) error {
	if width < 0 || width > 64 {
		return fmt.Errorf("bitstream: unsupported field width %d", width)
	}
	if width < 64 && v >= 1<<uint(width) {
		return fmt.Errorf("%w: %d does not fit in %d bits", ErrValueRange, v, width)
	}
	for i := width - 1; i >= 0; i-- {
		s.WriteBit(v>>uint(i)&1 == 1)
	}
	return nil
}

// ReadBytes consumes n whole bytes and returns them in stream order.
func (s *BitStream) ReadBytes(n int) ([]byte, error) {
	if s.BitsAvailable() < n*8 {
		return nil, ErrOutOfBits
	}
	out := make([]byte, n)
	for i := range out {
		b, _ := s.ReadUint(8)
		out[i] = byte(b)
	}
	return out, nil
}

// WriteBytes writes the bytes in order, eight bits each.
func (s *BitStream) WriteBytes(data []byte) {
	for _, b := range data {
		s.WriteUint(uint64(b), 8)
	}
}

// WriteZero writes n zero bits at the cursor.
func (s *BitStream) WriteZero(n int) {
	for i := 0; i < n; i++ {
		s.WriteBit(false)
	}
}

// WriteValue writes a value whose format is inferred from its shape:
// bool as a single bit, []bool as raw bits, string and []byte as byte
// strings, *BitStream as raw bits, and unsigned integers as the smallest
// whole-byte big-endian field.
func (s *BitStream) WriteValue(v any) error {
	switch val := v.(type) {
	case bool:
		s.WriteBit(val)
	case []bool:
		s.WriteBitSeq(val)
	case *BitStream:
		s.WriteBitSeq(val.bits)
	case string:
		s.WriteBytes([]byte(val))
	case []byte:
		s.WriteBytes(val)
	case int:
		if val < 0 {
			return fmt.Errorf("bitstream: cannot infer format for negative integer %d", val)
		}
		return Write(s, uint64(val), UB{})
	case uint64:
		return Write(s, val, UB{})
	default:
		return fmt.Errorf("bitstream: cannot infer format for value of type %T", v)
	}
	return nil
}
