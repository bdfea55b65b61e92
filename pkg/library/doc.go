// Package library models native type libraries: the class descriptions
// extracted from a platform runtime (names, supertypes, members) that
// code generation consults for ancestor chains and override detection.
//
// A Registry is an explicit value handed to the code generator; there is
// no process-global type table. Registries round-trip through a CBOR
// database file and can be cached in SQLite for per-type lookup without
// loading the whole database.
package library
