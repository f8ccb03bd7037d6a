package x86gen

import (
	"fmt"

	"github.com/whilelang/whilec/pkg/ast"
	"github.com/whilelang/whilec/pkg/x86"
)

// Generator lowers a type-checked program to x86 instructions for one
// concrete target. A Generator is single-use; create a fresh one per
// Translate call.
type Generator struct {
	target x86.Target
	word   int
	pool   []x86.Register
	prog   *ast.Program
	file   *x86.File
	labels int
}

// NewGenerator creates a code generator for the given target
func NewGenerator(target x86.Target) *Generator {
	return &Generator{
		target: target,
		word:   target.WordSize(),
		pool:   []x86.Register{x86.AX, x86.BX, x86.CX, x86.DX, x86.DI, x86.SI},
	}
}

// Translate lowers a whole program into a single assembly file. Functions
// are emitted in declaration order, followed by the process entry wrapper.
// A contract violation anywhere in the program aborts translation and is
// reported as an InternalError with no partial output.
func (g *Generator) Translate(prog *ast.Program) (file *x86.File, err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(InternalError)
			if !ok {
				panic(r)
			}
			file, err = nil, ie
		}
	}()
	g.prog = prog
	g.file = &x86.File{}
	for i := range prog.Functions {
		g.translateFunction(&prog.Functions[i])
	}
	g.addMainLauncher()
	return g.file, nil
}

// translateFunction emits one function: prologue, padded local frame,
// body, then a single exit label and epilogue which every return inside
// the body branches to.
func (g *Generator) translateFunction(fn *ast.FuncDecl) {
	// Functions are prefixed to avoid clashing with C library symbols.
	g.emit(x86.Label{Name: funcLabel(fn.Name)})
	g.emit(x86.Reg{Op: x86.Push, Reg: x86.BP})
	g.emit(x86.RegReg{Op: x86.Mov, Src: x86.SP, Dst: x86.BP})
	vars := map[string]MemoryLocation{}
	g.assignCallerFrame(fn, vars)
	g.assignCalleeFrame(fn, vars)
	ctx := newContext(g.pool, vars).WithExitLabel(g.freshLabel())
	g.allocStack(g.calleeFrameWidth(fn))
	g.translateBlock(fn.Body, ctx)
	g.emit(x86.Label{Name: ctx.ExitLabel()})
	g.emit(x86.RegReg{Op: x86.Mov, Src: x86.BP, Dst: x86.SP})
	g.emit(x86.Reg{Op: x86.Pop, Reg: x86.BP})
	g.emit(x86.Unit{Op: x86.Ret})
}

// addMainLauncher emits the process entry symbol the linker resolves
// against. It calls the translated main function and forces a zero exit
// code; a non-zero exit only arises from an assertion abort.
func (g *Generator) addMainLauncher() {
	g.emit(x86.Label{Name: g.target.ExternalSymbol("main"), Global: true})
	g.emit(x86.Reg{Op: x86.Push, Reg: x86.BP})
	g.emit(x86.Addr{Op: x86.Call, Target: funcLabel("main")})
	g.emit(x86.Reg{Op: x86.Pop, Reg: x86.BP})
	g.emit(x86.ImmReg{Op: x86.MovImm, Imm: 0, Dst: x86.AX})
	g.emit(x86.Unit{Op: x86.Ret})
}

// funcLabel mangles a source-level function name into its assembly label
func funcLabel(name string) string {
	return "wl_" + name
}

func (g *Generator) freshLabel() string {
	label := fmt.Sprintf("label%d", g.labels)
	g.labels++
	return label
}

func (g *Generator) emit(instructions ...x86.Instruction) {
	g.file.Code = append(g.file.Code, instructions...)
}

func (g *Generator) unwrap(t ast.Type) ast.Type {
	return g.prog.Unwrap(t)
}

// allocStack reserves at least width bytes of stack space, padded to keep
// the stack 16 byte aligned as the System V ABI requires at call sites.
// Returns the padded width actually reserved.
func (g *Generator) allocStack(width int) int {
	if width <= 0 {
		return 0
	}
	padded := paddedWidth(width)
	g.emit(x86.ImmReg{Op: x86.SubImm, Imm: int64(padded), Dst: x86.SP})
	return padded
}

// freeStack releases stack space reserved by allocStack
func (g *Generator) freeStack(width int) {
	if width > 0 {
		g.emit(x86.ImmReg{Op: x86.AddImm, Imm: int64(paddedWidth(width)), Dst: x86.SP})
	}
}

// saveUsed spills every locked register from a pool into freshly reserved
// stack space, in pool order, returning the padded width reserved. Part
// of the caller-save protocol.
func (g *Generator) saveUsed(pool []x86.Register, ctx Context) int {
	used := ctx.UsedRegisters(pool)
	width := g.allocStack(len(used) * g.word)
	for i, r := range used {
		g.emit(x86.Store{Src: r, Offset: i * g.word, Base: x86.SP})
	}
	return width
}

// restoreUsed reloads the registers spilled by saveUsed and releases the
// stack space.
func (g *Generator) restoreUsed(pool []x86.Register, ctx Context) {
	used := ctx.UsedRegisters(pool)
	for i, r := range used {
		g.emit(x86.Load{Offset: i * g.word, Base: x86.SP, Dst: r})
	}
	g.freeStack(len(used) * g.word)
}

// copy moves one word between two locations. Copying a location onto
// itself emits nothing. A memory to memory copy goes through a free
// register; callers must have locked any register they still need.
func (g *Generator) copy(from, to Location, ctx Context) {
	if from == to {
		return
	}
	switch from := from.(type) {
	case RegisterLocation:
		switch to := to.(type) {
		case RegisterLocation:
			g.emit(x86.RegReg{Op: x86.Mov, Src: from.Register, Dst: to.Register})
		case MemoryLocation:
			g.emit(x86.Store{Src: from.Register, Offset: to.Offset, Base: to.Base})
		}
	case MemoryLocation:
		switch to := to.(type) {
		case RegisterLocation:
			g.emit(x86.Load{Offset: from.Offset, Base: from.Base, Dst: to.Register})
		case MemoryLocation:
			tmp := ctx.SelectFreeRegister()
			g.emit(x86.Load{Offset: from.Offset, Base: from.Base, Dst: tmp.Register})
			g.emit(x86.Store{Src: tmp.Register, Offset: to.Offset, Base: to.Base})
		}
	}
}

// copyImm writes an immediate into a location, via a free register when
// the destination is in memory.
func (g *Generator) copyImm(imm int64, to Location, ctx Context) {
	if reg, ok := to.(RegisterLocation); ok {
		g.emit(x86.ImmReg{Op: x86.MovImm, Imm: imm, Dst: reg.Register})
		return
	}
	tmp := ctx.SelectFreeRegister()
	g.emit(x86.ImmReg{Op: x86.MovImm, Imm: imm, Dst: tmp.Register})
	g.copy(tmp, to, ctx)
}

// allocateRegisterPair picks two distinct free registers, neither locked.
// The first remains usable as a scratch until the caller locks it.
func allocateRegisterPair(ctx Context) (RegisterLocation, RegisterLocation) {
	first := ctx.SelectFreeRegister()
	second := ctx.Lock(first).SelectFreeRegister()
	return first, second
}

// multiplyByWordSize scales an index register to a byte offset. Shifts
// are used since the word size is always a power of two.
func (g *Generator) multiplyByWordSize(r x86.Register) {
	for i := 1; i < g.word; i <<= 1 {
		g.emit(x86.Reg{Op: x86.Shl, Reg: r})
	}
}
