package x86gen

import (
	"github.com/whilelang/whilec/pkg/x86"
)

// Context is the per-function translation state: the pool of currently
// unlocked registers, the fixed memory slot of every variable, the label of
// the function's shared epilogue, and the active break/continue targets.
//
// A Context is an immutable value. Locking a register, or entering a loop
// or switch, returns a new context; the caller's context is untouched and
// remains valid for the enclosing scope. At the start of every statement
// the free pool equals the full register pool; no lock survives a
// statement boundary.
type Context struct {
	free      []x86.Register
	vars      map[string]MemoryLocation
	exitLabel string
	breaks    []string
	continues []string
}

// newContext creates the context for a function body. The variable table
// is shared, never mutated after construction.
func newContext(pool []x86.Register, vars map[string]MemoryLocation) Context {
	return Context{free: pool, vars: vars}
}

// VariableLocation returns the fixed stack slot of a variable. Every name
// reaching the generator was resolved by the front end, so a missing slot
// is a contract violation.
func (c Context) VariableLocation(name string) MemoryLocation {
	loc, ok := c.vars[name]
	if !ok {
		fatalf("no stack slot for variable %q", name)
	}
	return loc
}

// WithExitLabel sets the label of the function's shared epilogue
func (c Context) WithExitLabel(label string) Context {
	c.exitLabel = label
	return c
}

// ExitLabel returns the label return statements branch to
func (c Context) ExitLabel() string {
	return c.exitLabel
}

// PushBreak enters a construct which break statements may exit
func (c Context) PushBreak(label string) Context {
	c.breaks = append(append([]string(nil), c.breaks...), label)
	return c
}

// BreakLabel returns the innermost break target
func (c Context) BreakLabel() string {
	if len(c.breaks) == 0 {
		fatalf("break outside loop or switch")
	}
	return c.breaks[len(c.breaks)-1]
}

// PushContinue enters a loop which continue statements may restart
func (c Context) PushContinue(label string) Context {
	c.continues = append(append([]string(nil), c.continues...), label)
	return c
}

// ContinueLabel returns the innermost continue target
func (c Context) ContinueLabel() string {
	if len(c.continues) == 0 {
		fatalf("continue outside loop")
	}
	return c.continues[len(c.continues)-1]
}

// IsLocked reports whether a register is currently locked, that is, absent
// from the free pool. Registers outside the pool (e.g. the frame pointer)
// always report locked.
func (c Context) IsLocked(r x86.Register) bool {
	for _, f := range c.free {
		if f == r {
			return false
		}
	}
	return true
}

// SelectFreeRegister picks a free register. The register is not removed
// from the pool; that only happens when it is locked, so it remains usable
// as a temporary until then.
func (c Context) SelectFreeRegister() RegisterLocation {
	// There is no spill strategy: a translation deep enough to hold six
	// simultaneous locks is beyond what this generator supports.
	if len(c.free) == 0 {
		fatalf("register pool exhausted")
	}
	return RegisterLocation{Register: c.free[0]}
}

// Lock removes the register occupied by a location from the free pool, so
// its value survives subsequent translations. Locking an already locked
// register is a protocol violation.
func (c Context) Lock(loc Location) Context {
	reg := baseRegister(loc)
	if c.IsLocked(reg) {
		fatalf("attempting to lock register %s which is already locked", reg)
	}
	free := make([]x86.Register, 0, len(c.free)-1)
	for _, f := range c.free {
		if f != reg {
			free = append(free, f)
		}
	}
	c.free = free
	return c
}

// Unlock returns a locked register to the free pool. Unlocking a register
// which is not locked is a protocol violation.
func (c Context) Unlock(loc Location) Context {
	reg := baseRegister(loc)
	if !c.IsLocked(reg) {
		fatalf("attempting to unlock register %s which is not locked", reg)
	}
	c.free = append(append([]x86.Register(nil), c.free...), reg)
	return c
}

// TryLock locks a location unless its register is already locked (or sits
// outside the pool entirely, like a frame-pointer-relative variable slot)
func (c Context) TryLock(loc Location) Context {
	if c.IsLocked(baseRegister(loc)) {
		return c
	}
	return c.Lock(loc)
}

// UsedRegisters returns the registers from a pool which are currently
// locked, in pool order. These are the registers a caller must preserve
// across a call.
func (c Context) UsedRegisters(pool []x86.Register) []x86.Register {
	var used []x86.Register
	for _, r := range pool {
		if c.IsLocked(r) {
			used = append(used, r)
		}
	}
	return used
}
