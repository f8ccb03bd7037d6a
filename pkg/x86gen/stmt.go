package x86gen

import (
	"github.com/whilelang/whilec/pkg/ast"
	"github.com/whilelang/whilec/pkg/rt"
	"github.com/whilelang/whilec/pkg/x86"
)

// translateBlock translates a list of statements. All registers are free
// at the start of every statement; locks never cross statements.
func (g *Generator) translateBlock(block []ast.Stmt, ctx Context) {
	for _, s := range block {
		g.translateStmt(s, ctx)
	}
}

func (g *Generator) translateStmt(s ast.Stmt, ctx Context) {
	switch s := s.(type) {
	case ast.Assert:
		g.translateAssert(s, ctx)
	case ast.Assign:
		g.translateAssign(s, ctx)
	case ast.Break:
		g.emit(x86.Addr{Op: x86.Jmp, Target: ctx.BreakLabel()})
	case ast.Continue:
		g.emit(x86.Addr{Op: x86.Jmp, Target: ctx.ContinueLabel()})
	case ast.VarDecl:
		g.translateVarDecl(s, ctx)
	case ast.IfElse:
		g.translateIfElse(s, ctx)
	case ast.While:
		g.translateWhile(s, ctx)
	case ast.For:
		g.translateFor(s, ctx)
	case ast.Return:
		g.translateReturn(s, ctx)
	case ast.Switch:
		g.translateSwitch(s, ctx)
	case ast.Invoke:
		// An invocation in statement position discards its result.
		g.translateInvoke(s, nil, ctx)
	default:
		fatalf("unhandled statement type: %T", s)
	}
}

// translateAssert evaluates the asserted condition into a register and
// hands it to the runtime, which aborts the process when it is false.
func (g *Generator) translateAssert(s ast.Assert, ctx Context) {
	// A boolean always fits in a register.
	loc := ctx.SelectFreeRegister()
	g.translateExpr(s.Expr, loc, ctx)
	g.externalCall(rt.Assertion, ctx, nil, loc.Register)
}

func (g *Generator) translateAssign(s ast.Assign, ctx Context) {
	if v, ok := s.Lhs.(ast.Variable); ok {
		loc := ctx.VariableLocation(v.Name)
		g.translateExpr(s.Rhs, loc, ctx)
		return
	}
	// Writing through a compound: resolve the element or field cell first,
	// then lock its base so the right-hand side cannot clobber it.
	cell := g.translateLVal(s.Lhs, ctx)
	ctx = ctx.Lock(cell)
	g.translateExpr(s.Rhs, cell, ctx)
}

// translateVarDecl only emits code when an initialiser is present; the
// slot itself was reserved by the frame layout.
func (g *Generator) translateVarDecl(s ast.VarDecl, ctx Context) {
	if s.Init != nil {
		loc := ctx.VariableLocation(s.Name)
		g.translateExpr(s.Init, loc, ctx)
	}
}

func (g *Generator) translateIfElse(s ast.IfElse, ctx Context) {
	hasFalseBranch := len(s.FalseBranch) > 0
	exitLabel := g.freshLabel()
	falseLabel := exitLabel
	if hasFalseBranch {
		falseLabel = g.freshLabel()
	}
	g.translateCondition(s.Condition, falseLabel, ctx)
	g.translateBlock(s.TrueBranch, ctx)
	g.emit(x86.Addr{Op: x86.Jmp, Target: exitLabel})
	if hasFalseBranch {
		g.emit(x86.Label{Name: falseLabel})
		g.translateBlock(s.FalseBranch, ctx)
	}
	g.emit(x86.Label{Name: exitLabel})
}

// translateWhile places the loop header at the continue target, so a
// continue re-tests the condition.
func (g *Generator) translateWhile(s ast.While, ctx Context) {
	headerLabel := g.freshLabel()
	breakLabel := g.freshLabel()
	ctx = ctx.PushContinue(headerLabel).PushBreak(breakLabel)
	g.emit(x86.Label{Name: headerLabel})
	g.translateCondition(s.Condition, breakLabel, ctx)
	g.translateBlock(s.Body, ctx)
	g.emit(x86.Addr{Op: x86.Jmp, Target: headerLabel})
	g.emit(x86.Label{Name: breakLabel})
}

// translateFor runs the increment between the continue target and the
// jump back to the header, so a continue still advances the loop.
func (g *Generator) translateFor(s ast.For, ctx Context) {
	g.translateVarDecl(*s.Declaration, ctx)
	headerLabel := g.freshLabel()
	continueLabel := g.freshLabel()
	breakLabel := g.freshLabel()
	ctx = ctx.PushContinue(continueLabel).PushBreak(breakLabel)
	g.emit(x86.Label{Name: headerLabel})
	g.translateCondition(s.Condition, breakLabel, ctx)
	g.translateBlock(s.Body, ctx)
	g.emit(x86.Label{Name: continueLabel})
	g.translateStmt(s.Increment, ctx)
	g.emit(x86.Addr{Op: x86.Jmp, Target: headerLabel})
	g.emit(x86.Label{Name: breakLabel})
}

// translateReturn writes any return value into the reserved return slot,
// then branches to the function's shared epilogue rather than emitting
// stack teardown here.
func (g *Generator) translateReturn(s ast.Return, ctx Context) {
	if s.Expr != nil {
		loc := ctx.VariableLocation(returnSlot)
		g.translateExpr(s.Expr, loc, ctx)
	}
	g.emit(x86.Addr{Op: x86.Jmp, Target: ctx.ExitLabel()})
}

// translateSwitch evaluates the scrutinee exactly once into a locked
// register, then emits a chain of comparisons in source order. A case
// body which does not break falls through into the next case's body,
// jumping over that case's comparison.
func (g *Generator) translateSwitch(s ast.Switch, ctx Context) {
	scrutinee, operand := allocateRegisterPair(ctx)
	exitLabel := g.freshLabel()
	ctx = ctx.PushBreak(exitLabel)
	g.translateExpr(s.Expr, scrutinee, ctx)
	ctx = ctx.Lock(scrutinee)
	scrutineeType := g.unwrap(s.Expr.StaticType())
	nextBody := g.freshLabel()
	for i, c := range s.Cases {
		nextLabel := g.freshLabel()
		if !c.IsDefault() {
			// The case value carries the scrutinee's type.
			value := *c.Value
			value.Ty = s.Expr.StaticType()
			g.translateExpr(value, operand, ctx)
			if ast.IsPrimitive(scrutineeType) {
				g.bitwiseEquality(false, scrutinee, operand, nextLabel, ctx)
			} else {
				// Operands swapped: the scrutinee register is locked and
				// must not serve as the call's result register.
				g.compoundEquality(false, operand, scrutinee, nextLabel, ctx)
			}
		}
		g.emit(x86.Label{Name: nextBody})
		g.translateBlock(c.Body, ctx)
		if !c.IsDefault() && i+1 < len(s.Cases) {
			nextBody = g.freshLabel()
			g.emit(x86.Addr{Op: x86.Jmp, Target: nextBody})
		}
		g.emit(x86.Label{Name: nextLabel})
	}
	g.emit(x86.Label{Name: exitLabel})
}

// translateLVal resolves a non-trivial assignment destination down to a
// single memory cell. Compound bases are evaluated as expressions, so
// reading an array-typed variable on the way clones it first.
func (g *Generator) translateLVal(lval ast.LVal, ctx Context) MemoryLocation {
	switch lval := lval.(type) {
	case ast.Variable:
		return ctx.VariableLocation(lval.Name)
	case ast.RecordAccess:
		return g.translateRecordLVal(lval, ctx)
	case ast.IndexOf:
		return g.translateArrayLVal(lval, ctx)
	default:
		fatalf("unhandled lval type: %T", lval)
		panic("unreachable")
	}
}

func (g *Generator) translateRecordLVal(lval ast.RecordAccess, ctx Context) MemoryLocation {
	src, ok := lval.Source.(ast.LVal)
	if !ok {
		fatalf("record assignment through non-lval source %T", lval.Source)
	}
	cell := g.translateLVal(src, ctx)
	base := ctx.TryLock(cell).SelectFreeRegister()
	g.copy(cell, base, ctx)
	return MemoryLocation{Base: base.Register, Offset: g.fieldOffset(lval.Source.StaticType(), lval.Field)}
}

func (g *Generator) translateArrayLVal(lval ast.IndexOf, ctx Context) MemoryLocation {
	base := ctx.SelectFreeRegister()
	g.translateExpr(lval.Source, base, ctx)
	ctx = ctx.Lock(base)
	index := ctx.SelectFreeRegister()
	g.translateExpr(lval.Index, index, ctx)
	g.multiplyByWordSize(index.Register)
	// Step over the length word.
	g.emit(x86.ImmReg{Op: x86.AddImm, Imm: int64(g.word), Dst: index.Register})
	g.emit(x86.RegReg{Op: x86.Add, Src: index.Register, Dst: base.Register})
	return MemoryLocation{Base: base.Register, Offset: 0}
}

// fieldOffset is the byte offset of a record field's payload, one word in
// from the base for the length word.
func (g *Generator) fieldOffset(recordType ast.Type, field string) int {
	record, ok := g.unwrap(recordType).(ast.Record)
	if !ok {
		fatalf("field access on non-record type %s", recordType)
	}
	index := record.FieldIndex(field)
	if index < 0 {
		fatalf("no field %q in record type %s", field, record)
	}
	return (1 + index) * g.word
}
