package x86gen

import (
	"github.com/whilelang/whilec/pkg/ast"
	"github.com/whilelang/whilec/pkg/x86"
)

// translateExpr evaluates an expression into a target location. Most
// forms accept either a register or a memory target; binary and unary
// operators need a register and are routed through a temporary when the
// target is in memory.
func (g *Generator) translateExpr(e ast.Expr, target Location, ctx Context) {
	switch e := e.(type) {
	case ast.Variable:
		g.translateVariable(e, target, ctx)
	case ast.Literal:
		g.translateLiteral(e, target, ctx)
	case ast.Binary:
		if reg, ok := target.(RegisterLocation); ok {
			g.translateBinary(e, reg, ctx)
		} else {
			g.translateViaRegister(e, target, ctx)
		}
	case ast.Unary:
		if reg, ok := target.(RegisterLocation); ok {
			g.translateUnary(e, reg, ctx)
		} else {
			g.translateViaRegister(e, target, ctx)
		}
	case ast.IndexOf:
		g.translateIndexOf(e, target, ctx)
	case ast.RecordAccess:
		g.translateRecordAccess(e, target, ctx)
	case ast.RecordConstructor:
		g.translateRecordConstructor(e, target, ctx)
	case ast.ArrayInitialiser:
		g.translateArrayInitialiser(e, target, ctx)
	case ast.ArrayGenerator:
		g.translateArrayGenerator(e, target, ctx)
	case ast.Invoke:
		g.translateInvoke(e, target, ctx)
	default:
		fatalf("unhandled expression type: %T", e)
	}
}

// translateViaRegister evaluates into a free register, then blasts the
// word out to the memory target.
func (g *Generator) translateViaRegister(e ast.Expr, target Location, ctx Context) {
	tmp := ctx.SelectFreeRegister()
	g.translateExpr(e, tmp, ctx)
	g.copy(tmp, target, ctx)
}

// translateVariable reads a variable's slot. Array-typed variables are
// cloned on every read, which is what gives assignments and argument
// passing their one-level value semantics: the reader always receives a
// fresh compound, and the variable keeps its own.
func (g *Generator) translateVariable(e ast.Variable, target Location, ctx Context) {
	loc := ctx.VariableLocation(e.Name)
	if _, isArray := g.unwrap(e.Ty).(ast.Array); isArray {
		g.compoundCopy(loc, ctx)
	}
	g.copy(loc, target, ctx)
}

func (g *Generator) translateIndexOf(e ast.IndexOf, target Location, ctx Context) {
	base := ctx.SelectFreeRegister()
	g.translateExpr(e.Source, base, ctx)
	ctx = ctx.Lock(base)
	index := ctx.SelectFreeRegister()
	g.translateExpr(e.Index, index, ctx)
	g.multiplyByWordSize(index.Register)
	// Step over the length word.
	g.emit(x86.ImmReg{Op: x86.AddImm, Imm: int64(g.word), Dst: index.Register})
	g.emit(x86.RegReg{Op: x86.Add, Src: index.Register, Dst: base.Register})
	g.copy(MemoryLocation{Base: base.Register, Offset: 0}, target, ctx)
}

func (g *Generator) translateRecordAccess(e ast.RecordAccess, target Location, ctx Context) {
	offset := g.fieldOffset(e.Source.StaticType(), e.Field)
	base := ctx.SelectFreeRegister()
	g.translateExpr(e.Source, base, ctx)
	g.copy(MemoryLocation{Base: base.Register, Offset: offset}, target, ctx)
}

func (g *Generator) translateUnary(e ast.Unary, target RegisterLocation, ctx Context) {
	g.translateExpr(e.Expr, target, ctx)
	switch e.Op {
	case ast.NOT:
		// Complement then mask back down to the boolean bit.
		g.emit(x86.Reg{Op: x86.Not, Reg: target.Register})
		g.emit(x86.ImmReg{Op: x86.AndImm, Imm: 1, Dst: target.Register})
	case ast.NEG:
		g.emit(x86.Reg{Op: x86.Neg, Reg: target.Register})
	case ast.LENGTHOF:
		// The length is the first word of the compound.
		g.emit(x86.Load{Offset: 0, Base: target.Register, Dst: target.Register})
	default:
		fatalf("unhandled unary operator: %s", e.Op)
	}
}

func (g *Generator) translateBinary(e ast.Binary, target RegisterLocation, ctx Context) {
	switch e.Op {
	case ast.ADD, ast.SUB, ast.MUL, ast.DIV, ast.REM:
		g.translateArithmetic(e, target, ctx)
	case ast.AND, ast.OR, ast.EQ, ast.NEQ, ast.LT, ast.LTEQ, ast.GT, ast.GTEQ:
		g.translateReifiedCondition(e, target, ctx)
	default:
		fatalf("unhandled binary operator: %s", e.Op)
	}
}

// translateReifiedCondition materialises a condition used in value
// position as a 0 or 1 in the target register.
func (g *Generator) translateReifiedCondition(e ast.Binary, target RegisterLocation, ctx Context) {
	falseLabel := g.freshLabel()
	exitLabel := g.freshLabel()
	g.translateCondition(e, falseLabel, ctx)
	g.emit(x86.ImmReg{Op: x86.MovImm, Imm: 1, Dst: target.Register})
	g.emit(x86.Addr{Op: x86.Jmp, Target: exitLabel})
	g.emit(x86.Label{Name: falseLabel})
	g.emit(x86.ImmReg{Op: x86.MovImm, Imm: 0, Dst: target.Register})
	g.emit(x86.Label{Name: exitLabel})
}

func (g *Generator) translateArithmetic(e ast.Binary, target RegisterLocation, ctx Context) {
	g.translateExpr(e.Lhs, target, ctx)
	// The left operand must survive the right-hand translation.
	ctx = ctx.Lock(target)
	rhs := ctx.SelectFreeRegister()
	g.translateExpr(e.Rhs, rhs, ctx)
	// Unlock so division does not spill the target over its own result.
	ctx = ctx.Unlock(target)
	switch e.Op {
	case ast.ADD:
		g.emit(x86.RegReg{Op: x86.Add, Src: rhs.Register, Dst: target.Register})
	case ast.SUB:
		g.emit(x86.RegReg{Op: x86.Sub, Src: rhs.Register, Dst: target.Register})
	case ast.MUL:
		g.emit(x86.RegReg{Op: x86.Imul, Src: rhs.Register, Dst: target.Register})
	case ast.DIV:
		g.translateDivision(target, rhs, x86.AX, ctx)
	case ast.REM:
		g.translateDivision(target, rhs, x86.DX, ctx)
	default:
		fatalf("unhandled arithmetic operator: %s", e.Op)
	}
}

// translateDivision emits an idiv. The instruction fixes its operands:
// the dividend sign-extends into DX:AX and the quotient/remainder land in
// AX/DX, so both are preserved around it and the requested one is copied
// out into the target.
func (g *Generator) translateDivision(target, rhs RegisterLocation, result x86.Register, ctx Context) {
	fixed := []x86.Register{x86.AX, x86.DX}
	g.saveUsed(fixed, ctx)
	if rhs.Register == x86.AX || rhs.Register == x86.DX {
		fatalf("division operand %s collides with a fixed division register", rhs.Register)
	}
	g.emit(x86.RegReg{Op: x86.Mov, Src: target.Register, Dst: x86.AX})
	g.emit(x86.Unit{Op: x86.Cqto})
	g.emit(x86.Reg{Op: x86.Idiv, Reg: rhs.Register})
	g.emit(x86.RegReg{Op: x86.Mov, Src: result, Dst: target.Register})
	g.restoreUsed(fixed, ctx)
}
