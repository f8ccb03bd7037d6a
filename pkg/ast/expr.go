package ast

// Expr is the interface for all expression nodes. Every expression carries
// the resolved static type assigned to it by the front end's type checker.
type Expr interface {
	implExpr()
	// StaticType returns the resolved type of this expression. Named types
	// are not expanded; use Program.Unwrap for that.
	StaticType() Type
}

// LVal is the interface for expressions which may appear on the left-hand
// side of an assignment
type LVal interface {
	Expr
	implLVal()
}

// BinOp represents binary operators
type BinOp int

const (
	ADD BinOp = iota
	SUB
	MUL
	DIV
	REM
	AND
	OR
	EQ
	NEQ
	LT
	LTEQ
	GT
	GTEQ
)

func (op BinOp) String() string {
	names := []string{"+", "-", "*", "/", "%", "&&", "||", "==", "!=", "<", "<=", ">", ">="}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// UnOp represents unary operators
type UnOp int

const (
	NOT UnOp = iota // !
	NEG             // -
	LENGTHOF        // |e|
)

func (op UnOp) String() string {
	names := []string{"!", "-", "|..|"}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// Variable is a use of a named variable
type Variable struct {
	Name string
	Ty   Type
}

// Literal is a constant of any type, including compound constants
type Literal struct {
	Value Const
	Ty    Type
}

// Binary is a binary expression
type Binary struct {
	Op  BinOp
	Lhs Expr
	Rhs Expr
	Ty  Type
}

// Unary is a unary expression
type Unary struct {
	Op   UnOp
	Expr Expr
	Ty   Type
}

// IndexOf is an array element access, source[index]
type IndexOf struct {
	Source Expr
	Index  Expr
	Ty     Type
}

// RecordAccess is a field access, source.field
type RecordAccess struct {
	Source Expr
	Field  string
	Ty     Type
}

// FieldInit is a single field initialiser within a record constructor
type FieldInit struct {
	Name string
	Expr Expr
}

// RecordConstructor constructs a record value, {f1: e1, ..., fn: en}
type RecordConstructor struct {
	Fields []FieldInit
	Ty     Type
}

// ArrayInitialiser constructs an array from element expressions, [e1, ..., en]
type ArrayInitialiser struct {
	Args []Expr
	Ty   Type
}

// ArrayGenerator constructs an array of a given size with every element set
// to a given value, [value; size]
type ArrayGenerator struct {
	Value Expr
	Size  Expr
	Ty    Type
}

// Invoke is a function call. It is both an expression and a statement; in
// statement position any return value is discarded.
type Invoke struct {
	Name string
	Args []Expr
	Ty   Type
}

func (Variable) implExpr()          {}
func (Literal) implExpr()           {}
func (Binary) implExpr()            {}
func (Unary) implExpr()             {}
func (IndexOf) implExpr()           {}
func (RecordAccess) implExpr()      {}
func (RecordConstructor) implExpr() {}
func (ArrayInitialiser) implExpr()  {}
func (ArrayGenerator) implExpr()    {}
func (Invoke) implExpr()            {}

func (Variable) implLVal()     {}
func (IndexOf) implLVal()      {}
func (RecordAccess) implLVal() {}

func (e Variable) StaticType() Type          { return e.Ty }
func (e Literal) StaticType() Type           { return e.Ty }
func (e Binary) StaticType() Type            { return e.Ty }
func (e Unary) StaticType() Type             { return e.Ty }
func (e IndexOf) StaticType() Type           { return e.Ty }
func (e RecordAccess) StaticType() Type      { return e.Ty }
func (e RecordConstructor) StaticType() Type { return e.Ty }
func (e ArrayInitialiser) StaticType() Type  { return e.Ty }
func (e ArrayGenerator) StaticType() Type    { return e.Ty }
func (e Invoke) StaticType() Type            { return e.Ty }

// Const is the interface for literal constant values. Compound constants
// nest, e.g. an array-of-records literal.
type Const interface {
	implConst()
}

// BoolConst is a boolean constant
type BoolConst struct {
	Value bool
}

// IntConst is an integer constant
type IntConst struct {
	Value int64
}

// CharConst is a character constant. Characters are word-sized integers at
// run time; the distinction only matters for diagnostics.
type CharConst struct {
	Value rune
}

// StringConst is a string constant, represented at run time as a compound of
// its character codes
type StringConst struct {
	Value string
}

// ArrayConst is a compound constant with ordered elements. Element types
// come from the enclosing literal's static type.
type ArrayConst struct {
	Elements []Const
}

// RecordConstField pairs a record constant field with its value
type RecordConstField struct {
	Name  string
	Value Const
}

// RecordConst is a compound constant with named fields. Field order and
// types come from the enclosing literal's static type, which determines
// layout.
type RecordConst struct {
	Fields []RecordConstField
}

func (BoolConst) implConst()   {}
func (IntConst) implConst()    {}
func (CharConst) implConst()   {}
func (StringConst) implConst() {}
func (ArrayConst) implConst()  {}
func (RecordConst) implConst() {}
