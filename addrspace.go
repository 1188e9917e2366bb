// Package addrspace implements the address-space map and pointer
// resolver at the heart of a symbolic-execution virtual machine: a
// persistent, copy-on-write mapping from memory objects to their
// per-state contents, and the constant/single/multi resolvers that
// decide which objects a (possibly symbolic) pointer may designate.
//
// The expression representation, the solver engine, the memory-object
// allocator, and the executor that drives symbolic interpretation are
// all external collaborators; this package only specifies the
// interfaces it needs from them (see Solver, and the expr package).
package addrspace

import (
	"errors"
	"fmt"
)

// ErrDivergedReadOnly is returned by CopyInConcretes when native memory
// backing a read-only, non-user-specified object has diverged from the
// shadowed copy (spec §6: "read-only objects fail copyIn when the
// native memory has changed").
var ErrDivergedReadOnly = errors.New("addrspace: native memory diverged for read-only object")

// assert panics if condition is false. Internal invariant violations
// (owner mismatch, segment-map desync, mutating an already-owned or
// read-only state) are bugs, not recoverable errors, and abort the
// process exactly like KLEE-style resolvers do.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("addrspace: assertion failed: "+format, args...))
	}
}
