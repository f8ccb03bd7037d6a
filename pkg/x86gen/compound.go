package x86gen

import (
	"github.com/whilelang/whilec/pkg/ast"
	"github.com/whilelang/whilec/pkg/rt"
	"github.com/whilelang/whilec/pkg/x86"
)

// Compound values (arrays, records, strings) share one heap layout: a
// length word followed by one word per element. Nested compounds are
// stored as references, so copy and equality are one level deep.

// compoundInitialiser allocates an uninitialised compound of n elements,
// writes its length word, and stores the reference into target. The
// returned register also holds the reference and is deliberately left
// unlocked; callers lock it before filling in the payload.
func (g *Generator) compoundInitialiser(n int, target Location, ctx Context) RegisterLocation {
	base, ok := target.(RegisterLocation)
	if !ok {
		base = ctx.SelectFreeRegister()
	}
	size := (1 + n) * g.word
	g.emit(x86.ImmReg{Op: x86.MovImm, Imm: int64(size), Dst: base.Register})
	g.heapAlloc(base, ctx)
	ctx = ctx.Lock(base)
	g.copyImm(int64(n), MemoryLocation{Base: base.Register, Offset: 0}, ctx)
	g.copy(base, target, ctx)
	return base
}

// heapAlloc calls malloc with the byte count held in target, which on
// return holds the heap pointer instead.
func (g *Generator) heapAlloc(target RegisterLocation, ctx Context) {
	g.externalCall(rt.Malloc, ctx, &target.Register, target.Register)
}

// compoundCopy clones the compound referenced by a location and writes
// the clone's reference back over the original reference.
func (g *Generator) compoundCopy(from Location, ctx Context) {
	base, ok := from.(RegisterLocation)
	if !ok {
		ctx = ctx.TryLock(from)
		base = ctx.SelectFreeRegister()
		g.copy(from, base, ctx)
	}
	g.externalCall(rt.Intcpy, ctx, &base.Register, base.Register)
	g.copy(base, from, ctx)
}

// compoundEquality tests two compound references structurally via the
// runtime and branches to target when equal (positive) or unequal
// (negative). The left operand's register receives the comparison
// result, so it must not be locked.
func (g *Generator) compoundEquality(positive bool, lhs, rhs Location, target string, ctx Context) {
	jump := x86.Jz
	if positive {
		jump = x86.Jnz
	}
	var left, right RegisterLocation
	lhsReg, lhsIsReg := lhs.(RegisterLocation)
	rhsReg, rhsIsReg := rhs.(RegisterLocation)
	switch {
	case lhs == rhs:
		if positive {
			g.emit(x86.Addr{Op: x86.Jmp, Target: target})
		}
		return
	case lhsIsReg && rhsIsReg:
		left, right = lhsReg, rhsReg
	case lhsIsReg:
		left = lhsReg
		right = ctx.SelectFreeRegister()
		g.copy(rhs, right, ctx)
	case rhsIsReg:
		left = ctx.SelectFreeRegister()
		right = rhsReg
		g.copy(lhs, left, ctx)
	default:
		left = ctx.SelectFreeRegister()
		right = ctx.Lock(left).SelectFreeRegister()
		g.copy(lhs, left, ctx)
		g.copy(rhs, right, ctx)
	}
	g.externalCall(rt.Intcmp, ctx, &left.Register, left.Register, right.Register)
	g.emit(x86.ImmReg{Op: x86.CmpImm, Imm: 0, Dst: left.Register})
	g.emit(x86.Addr{Op: jump, Target: target})
}

// translateRecordConstructor allocates the record and fills its fields
// in declaration order.
func (g *Generator) translateRecordConstructor(e ast.RecordConstructor, target Location, ctx Context) {
	base := g.compoundInitialiser(len(e.Fields), target, ctx)
	ctx = ctx.Lock(base)
	offset := g.word
	for _, f := range e.Fields {
		g.translateExpr(f.Expr, MemoryLocation{Base: base.Register, Offset: offset}, ctx)
		offset += g.word
	}
}

// translateArrayInitialiser allocates the array and fills its elements
// in source order.
func (g *Generator) translateArrayInitialiser(e ast.ArrayInitialiser, target Location, ctx Context) {
	base := g.compoundInitialiser(len(e.Args), target, ctx)
	ctx = ctx.Lock(base)
	offset := g.word
	for _, arg := range e.Args {
		g.translateExpr(arg, MemoryLocation{Base: base.Register, Offset: offset}, ctx)
		offset += g.word
	}
}

// translateArrayGenerator builds [value; size]: the size is evaluated
// once, the array allocated to match, and every element slot filled with
// the value through the runtime.
func (g *Generator) translateArrayGenerator(e ast.ArrayGenerator, target Location, ctx Context) {
	size := ctx.SelectFreeRegister()
	g.translateExpr(e.Size, size, ctx)
	ctx = ctx.Lock(size)
	array := ctx.SelectFreeRegister()
	g.copy(size, array, ctx)
	// One extra word for the length field.
	g.emit(x86.Reg{Op: x86.Inc, Reg: array.Register})
	g.emit(x86.ImmReg{Op: x86.ImulImm, Imm: int64(g.word), Dst: array.Register})
	g.heapAlloc(array, ctx)
	ctx = ctx.Lock(array)
	g.copy(size, MemoryLocation{Base: array.Register, Offset: 0}, ctx)
	g.copy(array, target, ctx)
	value := ctx.SelectFreeRegister()
	g.translateExpr(e.Value, value, ctx)
	ctx = ctx.Lock(value)
	g.externalCall(rt.Intfill, ctx, nil, array.Register, value.Register)
}

// translateLiteral lowers a constant of any type. Primitives are
// immediates; strings, arrays and records build a compound at run time
// and fill it element by element, recursing for nested constants.
func (g *Generator) translateLiteral(e ast.Literal, target Location, ctx Context) {
	g.translateConst(g.unwrap(e.Ty), e.Value, target, ctx)
}

// constElem pairs a component constant with its element type, needed to
// recurse into nested compounds.
type constElem struct {
	ty    ast.Type
	value ast.Const
}

func (g *Generator) translateConst(ty ast.Type, value ast.Const, target Location, ctx Context) {
	switch value := value.(type) {
	case ast.BoolConst:
		imm := int64(0)
		if value.Value {
			imm = 1
		}
		g.translatePrimitiveConst(imm, target, ctx)
	case ast.IntConst:
		g.translatePrimitiveConst(value.Value, target, ctx)
	case ast.CharConst:
		g.translatePrimitiveConst(int64(value.Value), target, ctx)
	case ast.StringConst:
		elems := make([]constElem, 0, len(value.Value))
		for _, c := range []rune(value.Value) {
			elems = append(elems, constElem{ty: ast.Int{}, value: ast.CharConst{Value: c}})
		}
		g.translateCompoundConst(elems, target, ctx)
	case ast.ArrayConst:
		arrayType, ok := ty.(ast.Array)
		if !ok {
			fatalf("array constant with non-array type %s", ty)
		}
		elems := make([]constElem, 0, len(value.Elements))
		for _, el := range value.Elements {
			elems = append(elems, constElem{ty: arrayType.Element, value: el})
		}
		g.translateCompoundConst(elems, target, ctx)
	case ast.RecordConst:
		recordType, ok := ty.(ast.Record)
		if !ok {
			fatalf("record constant with non-record type %s", ty)
		}
		// Field order comes from the record type, not the constant.
		elems := make([]constElem, 0, len(recordType.Fields))
		for _, f := range recordType.Fields {
			elems = append(elems, constElem{ty: f.Type, value: recordConstField(value, f.Name)})
		}
		g.translateCompoundConst(elems, target, ctx)
	default:
		fatalf("unhandled constant type: %T", value)
	}
}

func recordConstField(value ast.RecordConst, name string) ast.Const {
	for _, f := range value.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	fatalf("record constant missing field %q", name)
	panic("unreachable")
}

func (g *Generator) translatePrimitiveConst(imm int64, target Location, ctx Context) {
	tmp, ok := target.(RegisterLocation)
	if !ok {
		tmp = ctx.SelectFreeRegister()
	}
	g.emit(x86.ImmReg{Op: x86.MovImm, Imm: imm, Dst: tmp.Register})
	g.copy(tmp, target, ctx)
}

func (g *Generator) translateCompoundConst(elems []constElem, target Location, ctx Context) {
	base := g.compoundInitialiser(len(elems), target, ctx)
	ctx = ctx.Lock(base)
	offset := g.word
	for _, el := range elems {
		g.translateConst(g.unwrap(el.ty), el.value, MemoryLocation{Base: base.Register, Offset: offset}, ctx)
		offset += g.word
	}
}
