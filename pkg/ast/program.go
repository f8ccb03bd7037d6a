package ast

// Parameter is a single named, typed function parameter
type Parameter struct {
	Name string
	Type Type
}

// FuncDecl is a named function with typed parameters, a return type and a
// statement body
type FuncDecl struct {
	Name    string
	Params  []Parameter
	Returns Type
	Body    []Stmt
}

// TypeDecl binds a name to a structural type
type TypeDecl struct {
	Name string
	Type Type
}

// Program is a complete, type-checked While program
type Program struct {
	Types     []TypeDecl
	Functions []FuncDecl
}

// Function looks up a function declaration by name
func (p *Program) Function(name string) (FuncDecl, bool) {
	for _, fd := range p.Functions {
		if fd.Name == name {
			return fd, true
		}
	}
	return FuncDecl{}, false
}

// Unwrap strips nominal information from a type, resolving named types
// through the program's type declarations. Resolution is iterative so
// aliases of aliases also unwrap.
func (p *Program) Unwrap(t Type) Type {
	for {
		named, ok := t.(Named)
		if !ok {
			return t
		}
		found := false
		for _, td := range p.Types {
			if td.Name == named.Name {
				t = td.Type
				found = true
				break
			}
		}
		if !found {
			// A dangling name indicates a front-end bug; surface the named
			// type unchanged rather than loop.
			return named
		}
	}
}
