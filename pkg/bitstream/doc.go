// Package bitstream implements an ordered, mutable sequence of bits with a
// read/write cursor, plus the format descriptors used to map logical values
// onto packed bit fields.
//
// The stream is the unit of mutation: formats hold no state of their own and
// are applied to a stream via Read and Write. A format knows exactly how many
// bits it occupies before a read or write begins (the one exception is
// CString, which is terminated by its value), so reads are atomic - a read
// that would run past the end of the stream fails before consuming anything.
//
// # Formats
//
// The available descriptors are:
//
//   - Bit: a single bit as a bool
//   - UB / SB: unsigned and signed bit fields of parametrized width
//   - ByteString: a byte-aligned string of n whole bytes
//   - CString: a null-terminated byte string
//   - Float: IEEE-style floating point of total width 16, 32 or 64
//   - Fixed: fixed-point with separate integer and fraction bit widths
//   - Bits / Stream: raw bit runs, as []bool or as a sub-stream
//
// # Endianness
//
// Formats default to big-endian. Requesting little-endian reverses the order
// of whole bytes, never the bit order within a byte, and is therefore only
// valid for widths that are a multiple of eight; other widths fail fast with
// ErrUnalignedEndian.
//
// The 16-bit float format follows the SWF half-precision convention: one sign
// bit, a 5-bit exponent with bias 16, and a 10-bit mantissa. The 32- and
// 64-bit widths are standard IEEE 754 single and double precision.
package bitstream
