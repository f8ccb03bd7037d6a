package x86gen

import (
	"sort"

	"github.com/whilelang/whilec/pkg/ast"
	"github.com/whilelang/whilec/pkg/x86"
)

// Stack frame layout, all offsets relative to the frame pointer:
//
//	+n .. +2w   caller-allocated argument and return slots
//	+w          return address (pushed by call)
//	 0          saved frame pointer (pushed by the prologue)
//	-w .. -m    locals, one word each
//
// Every value occupies exactly one word: primitives directly, compound
// values as a pointer into the heap. The return slot is named "$", which
// cannot collide with any source-level identifier.

// returnSlot is the variable name of a function's return value slot.
const returnSlot = "$"

// assignCallerFrame maps a function's parameters and return slot to their
// caller-allocated offsets above the frame pointer.
func (g *Generator) assignCallerFrame(fn *ast.FuncDecl, vars map[string]MemoryLocation) {
	offset := g.callerEnvWidth(fn) + 2*g.word
	for _, p := range fn.Params {
		offset -= g.word
		vars[p.Name] = MemoryLocation{Base: x86.BP, Offset: offset}
	}
	if !isVoid(fn.Returns) {
		offset -= g.word
		vars[returnSlot] = MemoryLocation{Base: x86.BP, Offset: offset}
	}
}

// assignCalleeFrame maps every local declared anywhere in the function
// body to an offset below the frame pointer. Names are assigned in sorted
// order so the layout is deterministic.
func (g *Generator) assignCalleeFrame(fn *ast.FuncDecl, vars map[string]MemoryLocation) {
	offset := 0
	for _, name := range localNames(fn.Body) {
		offset -= g.word
		vars[name] = MemoryLocation{Base: x86.BP, Offset: offset}
	}
}

// callerEnvWidth is the unpadded width of the argument and return slots a
// caller provides for a call to fn.
func (g *Generator) callerEnvWidth(fn *ast.FuncDecl) int {
	width := len(fn.Params) * g.word
	if !isVoid(fn.Returns) {
		width += g.word
	}
	return width
}

// calleeFrameWidth is the unpadded width of a function's local slots.
func (g *Generator) calleeFrameWidth(fn *ast.FuncDecl) int {
	return len(localNames(fn.Body)) * g.word
}

// paddedWidth rounds a frame width up to the 16 byte stack alignment the
// C ABI requires at call boundaries.
func paddedWidth(width int) int {
	return (width + 15) &^ 15
}

func isVoid(t ast.Type) bool {
	_, ok := t.(ast.Void)
	return ok
}

// localNames gathers the distinct names of all variables declared in a
// block, including those in nested control flow, in sorted order.
// Declarations are hoisted to the frame; a name declared in two disjoint
// scopes shares one slot.
func localNames(block []ast.Stmt) []string {
	seen := map[string]bool{}
	for _, name := range collectLocals(block) {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectLocals(block []ast.Stmt) []string {
	var names []string
	for _, s := range block {
		names = append(names, stmtLocals(s)...)
	}
	return names
}

func stmtLocals(s ast.Stmt) []string {
	switch s := s.(type) {
	case ast.VarDecl:
		return []string{s.Name}
	case ast.IfElse:
		return append(collectLocals(s.TrueBranch), collectLocals(s.FalseBranch)...)
	case ast.While:
		return collectLocals(s.Body)
	case ast.For:
		names := []string{s.Declaration.Name}
		return append(names, collectLocals(s.Body)...)
	case ast.Switch:
		var names []string
		for _, c := range s.Cases {
			names = append(names, collectLocals(c.Body)...)
		}
		return names
	default:
		return nil
	}
}
