package x86gen

import (
	"github.com/whilelang/whilec/pkg/ast"
	"github.com/whilelang/whilec/pkg/x86"
)

// Two calling conventions coexist. User functions pass every parameter
// and the return value on the stack, laid out exactly as the callee's
// caller frame expects. Runtime functions use the C convention: the
// first arguments in fixed registers, the result in the accumulator.
// Both are bracketed by a caller-save of every locked pool register.

// translateInvoke calls a user function. A nil target discards the
// return value (statement position).
func (g *Generator) translateInvoke(e ast.Invoke, target Location, ctx Context) {
	fn, ok := g.prog.Function(e.Name)
	if !ok {
		fatalf("call to unknown function %q", e.Name)
	}
	savedWidth := g.saveUsed(g.pool, ctx)
	envWidth := g.allocStack(g.callerEnvWidth(&fn))
	// Arguments go in back to front, climbing the reserved block; the
	// return slot sits below them at the stack pointer.
	offset := 0
	if !isVoid(fn.Returns) {
		offset = g.word
	}
	for i := len(e.Args) - 1; i >= 0; i-- {
		g.translateExpr(e.Args[i], MemoryLocation{Base: x86.SP, Offset: offset}, ctx)
		offset += g.word
	}
	g.emit(x86.Addr{Op: x86.Call, Target: funcLabel(fn.Name)})
	g.freeStack(envWidth)
	g.restoreUsed(g.pool, ctx)
	if target != nil && !isVoid(fn.Returns) {
		// The return slot is read only after the stack is restored, since
		// the target may itself be stack-pointer relative. Its old
		// position is now below the stack pointer.
		returned := MemoryLocation{Base: x86.SP, Offset: -(envWidth + savedWidth)}
		g.copy(returned, target, ctx)
	}
}

// cParamRegisters is the order in which the C calling convention expects
// the first integer arguments.
var cParamRegisters = [...]x86.Register{x86.DI, x86.SI, x86.DX, x86.CX}

// externalCall invokes a runtime library function. Arguments are
// marshalled from their current registers into the convention's
// parameter registers; when a pending argument already occupies a needed
// parameter register, the two are exchanged rather than overwritten, and
// the substitution is carried through the remaining arguments so longer
// permutation cycles also resolve. The result register, if any, must be
// unlocked or the restore would overwrite the result.
func (g *Generator) externalCall(name string, ctx Context, result *x86.Register, args ...x86.Register) {
	if result != nil && ctx.IsLocked(*result) {
		fatalf("external call result register %s is locked", *result)
	}
	if len(args) > len(cParamRegisters) {
		fatalf("external call to %s with %d register arguments", name, len(args))
	}
	g.saveUsed(g.pool, ctx)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		param := cParamRegisters[i]
		if arg == param {
			continue
		}
		conflict := false
		for j := i + 1; j < len(args); j++ {
			if args[j] == param {
				conflict = true
				args[j] = arg
			}
		}
		if conflict {
			g.emit(x86.RegReg{Op: x86.Xchg, Src: arg, Dst: param})
		} else {
			g.emit(x86.RegReg{Op: x86.Mov, Src: arg, Dst: param})
		}
	}
	g.emit(x86.Addr{Op: x86.Call, Target: g.target.ExternalSymbol(name)})
	if result != nil {
		g.emit(x86.RegReg{Op: x86.Mov, Src: x86.AX, Dst: *result})
	}
	g.restoreUsed(g.pool, ctx)
}
