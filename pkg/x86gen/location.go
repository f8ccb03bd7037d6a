// Package x86gen lowers type-checked While programs to x86 instructions.
// Each function is translated in a single depth-first pass over its
// statement tree, threading an immutable translation context through the
// recursion. Parameters and returns are passed on the stack; a fixed pool
// of registers serves expression temporaries with an explicit lock/unlock
// discipline and no spill strategy.
package x86gen

import (
	"fmt"

	"github.com/whilelang/whilec/pkg/x86"
)

// Location describes the destination for the result of an expression:
// either a physical register, or a word in memory addressed relative to a
// base register. Locations are transient; they are created for a single
// translation and never retained across statements.
type Location interface {
	implLocation()
}

// RegisterLocation is the simple case where a result fits in a register
type RegisterLocation struct {
	Register x86.Register
}

// MemoryLocation is a word in memory at a byte offset from a base register
// (typically the frame or stack pointer, or a locked heap base)
type MemoryLocation struct {
	Base   x86.Register
	Offset int
}

func (RegisterLocation) implLocation() {}
func (MemoryLocation) implLocation()   {}

func (l RegisterLocation) String() string { return l.Register.String() }
func (l MemoryLocation) String() string   { return fmt.Sprintf("&(%s+%d)", l.Base, l.Offset) }

// baseRegister returns the register a location occupies: the register
// itself, or the base register of a memory cell.
func baseRegister(loc Location) x86.Register {
	switch l := loc.(type) {
	case RegisterLocation:
		return l.Register
	case MemoryLocation:
		return l.Base
	default:
		panic(fmt.Sprintf("unhandled location type: %T", loc))
	}
}
