package ast

// Stmt is the interface for all statement nodes
type Stmt interface {
	implStmt()
}

// Assert checks a condition at run time, aborting the program if it is false
type Assert struct {
	Expr Expr
}

// Assign writes the value of an expression into an lval
type Assign struct {
	Lhs LVal
	Rhs Expr
}

// Break exits the innermost enclosing loop or switch
type Break struct{}

// Continue jumps to the next iteration of the innermost enclosing loop
type Continue struct{}

// VarDecl declares a local variable, optionally with an initialiser
type VarDecl struct {
	Name string
	Type Type
	Init Expr // nil if no initialiser
}

// IfElse branches on a condition. FalseBranch may be empty.
type IfElse struct {
	Condition   Expr
	TrueBranch  []Stmt
	FalseBranch []Stmt
}

// While is a condition-guarded loop
type While struct {
	Condition Expr
	Body      []Stmt
}

// For is a loop with a declaration, condition and increment
type For struct {
	Declaration *VarDecl
	Condition   Expr
	Increment   Stmt
	Body        []Stmt
}

// Return exits the enclosing function, optionally with a value
type Return struct {
	Expr Expr // nil for bare return
}

// Case is a single case within a switch statement. A nil Value marks the
// default case.
type Case struct {
	Value *Literal // nil for default
	Body  []Stmt
}

// IsDefault reports whether this is the default case
func (c Case) IsDefault() bool { return c.Value == nil }

// Switch dispatches on a scrutinee expression over a list of cases
type Switch struct {
	Expr  Expr
	Cases []Case
}

func (Assert) implStmt()   {}
func (Assign) implStmt()   {}
func (Break) implStmt()    {}
func (Continue) implStmt() {}
func (VarDecl) implStmt()  {}
func (IfElse) implStmt()   {}
func (While) implStmt()    {}
func (For) implStmt()      {}
func (Return) implStmt()   {}
func (Switch) implStmt()   {}
func (Invoke) implStmt()   {}
