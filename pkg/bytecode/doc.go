// Package bytecode implements a dispatch interpreter for a
// register-oriented, actor-style object language in the Rosette virtual
// machine family.
//
// The package owns the opcode set, the register/argument/environment
// machinery those opcodes manipulate, the cooperative strand scheduler, and
// the control-flow flag machine that reconciles the effects of one
// dispatched instruction before the next is fetched.
//
// # Architecture Overview
//
//   - Ob: the tagged value universe (fixnums, booleans, tuples, templates,
//     environments, system-value markers, standard operations, actors).
//   - Location: an address within the machine — an argument register, a
//     context register, a literal-pool atom, or LIMBO — with fetch/store.
//   - Ctxt: the per-strand execution record (the "strand" of the glossary).
//   - Code: a read-only opcode sequence plus literal pool, as produced by an
//     external compiler and consumed here.
//   - Monitor: per-strand instrumentation (opcode counts, tracing).
//   - VMState: the aggregate mutable execution context that Run steps.
//
// # Scope
//
// This package consumes, rather than implements, the surface-language
// compiler, the object system's method-resolution internals, and the
// primitive function table. Those come in as the Code object, the
// lookup/dispatch hooks on Env and StdOprn, and the PrimTable, respectively.
//
// # Serialization
//
// Code objects serialize to a small header plus a CBOR-encoded literal pool
// (see Code.Serialize), since the literal pool holds the full Ob union and
// CBOR already round-trips that shape elsewhere in this module.
package bytecode
