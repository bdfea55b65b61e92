// Package codegen builds AVM2 bytecode structures through a stack of
// lexical contexts.
//
// A Generator owns one current context. The global context opens scripts,
// a script opens classes and an init method, a class opens methods and
// initializers, and a method may carry catch overlays. Each context
// accumulates traits, locals and instructions, and finalizes them into the
// owning abc.File tables when it exits. Contexts exit in strict LIFO
// order; Finish drains whatever is still open.
//
// Value loading goes through a per-generator adapter registry, so new
// value shapes can be taught to Load without touching the generator.
package codegen
