package x86gen

import (
	"github.com/whilelang/whilec/pkg/ast"
	"github.com/whilelang/whilec/pkg/x86"
)

// Conditions compile to branch threading: translateCondition emits code
// which falls through when the condition holds and jumps to falseLabel
// when it does not. Connectives share continuation labels instead of
// materialising intermediate booleans, which gives short-circuit
// evaluation for free.

func (g *Generator) translateCondition(e ast.Expr, falseLabel string, ctx Context) {
	switch e := e.(type) {
	case ast.Unary:
		g.translateNotCondition(e, falseLabel, ctx)
	case ast.Binary:
		switch e.Op {
		case ast.AND:
			g.translateCondition(e.Lhs, falseLabel, ctx)
			g.translateCondition(e.Rhs, falseLabel, ctx)
		case ast.OR:
			g.translateOrCondition(e, falseLabel, ctx)
		case ast.EQ, ast.NEQ:
			g.translateEqualityCondition(e, falseLabel, ctx)
		case ast.LT, ast.LTEQ, ast.GT, ast.GTEQ:
			g.translateRelationalCondition(e, falseLabel, ctx)
		default:
			fatalf("binary operator %s is not a condition", e.Op)
		}
	default:
		// A variable, field load or invocation producing a boolean. The
		// result always fits in a register; test it against zero.
		loc := ctx.SelectFreeRegister()
		g.translateExpr(e, loc, ctx)
		g.emit(x86.ImmReg{Op: x86.CmpImm, Imm: 0, Dst: loc.Register})
		g.emit(x86.Addr{Op: x86.Jz, Target: falseLabel})
	}
}

// translateNotCondition swaps the continuations: the subcondition jumps
// to a fresh label when false, and falling through (it held) jumps to
// falseLabel instead.
func (g *Generator) translateNotCondition(e ast.Unary, falseLabel string, ctx Context) {
	if e.Op != ast.NOT {
		fatalf("unary operator %s is not a condition", e.Op)
	}
	trueLabel := g.freshLabel()
	g.translateCondition(e.Expr, trueLabel, ctx)
	g.emit(x86.Addr{Op: x86.Jmp, Target: falseLabel})
	g.emit(x86.Label{Name: trueLabel})
}

// translateOrCondition short-circuits: if the left disjunct holds,
// control skips the right one entirely.
func (g *Generator) translateOrCondition(e ast.Binary, falseLabel string, ctx Context) {
	nextLabel := g.freshLabel()
	exitLabel := g.freshLabel()
	g.translateCondition(e.Lhs, nextLabel, ctx)
	g.emit(x86.Addr{Op: x86.Jmp, Target: exitLabel})
	g.emit(x86.Label{Name: nextLabel})
	g.translateCondition(e.Rhs, falseLabel, ctx)
	g.emit(x86.Label{Name: exitLabel})
}

// translateRelationalCondition compares two integers and branches on the
// inverted relation.
func (g *Generator) translateRelationalCondition(e ast.Binary, falseLabel string, ctx Context) {
	lhs, rhs := allocateRegisterPair(ctx)
	g.translateExpr(e.Lhs, lhs, ctx)
	ctx = ctx.Lock(lhs)
	g.translateExpr(e.Rhs, rhs, ctx)
	// AT&T operand order: flags are set from lhs - rhs.
	g.emit(x86.RegReg{Op: x86.Cmp, Src: rhs.Register, Dst: lhs.Register})
	var jump x86.AddrOp
	switch e.Op {
	case ast.LT:
		jump = x86.Jge
	case ast.LTEQ:
		jump = x86.Jg
	case ast.GT:
		jump = x86.Jle
	case ast.GTEQ:
		jump = x86.Jl
	default:
		fatalf("unhandled relational operator %s", e.Op)
	}
	g.emit(x86.Addr{Op: jump, Target: falseLabel})
}

// translateEqualityCondition dispatches on the operand types: primitives
// compare bitwise, compounds go through the structural-equality runtime
// entry so two distinct heap blocks with equal contents compare equal.
func (g *Generator) translateEqualityCondition(e ast.Binary, falseLabel string, ctx Context) {
	lhsType := g.unwrap(e.Lhs.StaticType())
	rhsType := g.unwrap(e.Rhs.StaticType())
	lhs, rhs := allocateRegisterPair(ctx)
	g.translateExpr(e.Lhs, lhs, ctx)
	ctx = ctx.Lock(lhs)
	g.translateExpr(e.Rhs, rhs, ctx)
	ctx = ctx.Unlock(lhs)
	positive := e.Op != ast.EQ
	if ast.IsPrimitive(lhsType) && ast.IsPrimitive(rhsType) {
		g.bitwiseEquality(positive, lhs, rhs, falseLabel, ctx)
	} else {
		g.compoundEquality(positive, lhs, rhs, falseLabel, ctx)
	}
}

// bitwiseEquality compares two locations word for word and branches to
// target when equal (positive) or unequal (negative). Comparing a
// location against itself is statically decided.
func (g *Generator) bitwiseEquality(positive bool, lhs, rhs Location, target string, ctx Context) {
	jump := x86.Jnz
	if positive {
		jump = x86.Jz
	}
	if lhs == rhs {
		if positive {
			g.emit(x86.Addr{Op: x86.Jmp, Target: target})
		}
		return
	}
	lhsReg, lhsIsReg := lhs.(RegisterLocation)
	rhsReg, rhsIsReg := rhs.(RegisterLocation)
	switch {
	case lhsIsReg && rhsIsReg:
		g.emit(x86.RegReg{Op: x86.Cmp, Src: lhsReg.Register, Dst: rhsReg.Register})
	case lhsIsReg:
		tmp := ctx.SelectFreeRegister()
		g.copy(rhs, tmp, ctx)
		g.emit(x86.RegReg{Op: x86.Cmp, Src: lhsReg.Register, Dst: tmp.Register})
	case rhsIsReg:
		tmp := ctx.SelectFreeRegister()
		g.copy(lhs, tmp, ctx)
		g.emit(x86.RegReg{Op: x86.Cmp, Src: rhsReg.Register, Dst: tmp.Register})
	default:
		left := ctx.SelectFreeRegister()
		right := ctx.Lock(left).SelectFreeRegister()
		g.copy(lhs, left, ctx)
		g.copy(rhs, right, ctx)
		g.emit(x86.RegReg{Op: x86.Cmp, Src: right.Register, Dst: left.Register})
	}
	g.emit(x86.Addr{Op: jump, Target: target})
}
