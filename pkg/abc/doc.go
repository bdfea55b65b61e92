// Package abc holds the persistent structures of an AVM2 bytecode file:
// qualified names, the constant pool, trait declarations, and the method,
// method-body, instance, class and script records that code generation
// finalizes into.
//
// Records are accumulated through interning tables: IndexFor registers a
// record once and returns a stable index, so repeated finalization of the
// same record is harmless. The File container can be serialized to bytes
// through the bitstream layer; individual instruction encodings are outside
// this package, which treats code as an opaque opcode listing.
package abc
