// Package ast defines the abstract syntax tree for the While language as it
// arrives from the front end: fully type checked, with every expression node
// carrying its resolved static type.
package ast

import (
	"fmt"
	"strings"
)

// Type is the interface for all While types
type Type interface {
	implType()
	String() string
}

// Void is the type of functions which return nothing
type Void struct{}

// Null is the type of the null literal
type Null struct{}

// Bool is the boolean type
type Bool struct{}

// Int is the integer type
type Int struct{}

// Named is a reference to a declared type alias
type Named struct {
	Name string
}

// Array is an array type with a given element type
type Array struct {
	Element Type
}

// Field is a single named field of a record type. Field order is
// significant: it determines heap layout.
type Field struct {
	Name string
	Type Type
}

// Record is a record type with an ordered list of fields
type Record struct {
	Fields []Field
}

func (Void) implType()   {}
func (Null) implType()   {}
func (Bool) implType()   {}
func (Int) implType()    {}
func (Named) implType()  {}
func (Array) implType()  {}
func (Record) implType() {}

func (Void) String() string    { return "void" }
func (Null) String() string    { return "null" }
func (Bool) String() string    { return "bool" }
func (Int) String() string     { return "int" }
func (t Named) String() string { return t.Name }
func (t Array) String() string { return t.Element.String() + "[]" }

func (t Record) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, f := range t.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s %s", f.Type, f.Name)
	}
	sb.WriteString("}")
	return sb.String()
}

// FieldIndex returns the ordinal position of a field within a record type,
// or -1 if the record has no such field.
func (t Record) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// IsPrimitive reports whether values of this type fit in a single machine
// word without heap allocation. Compound values (arrays, records, strings)
// are represented as heap references instead.
func IsPrimitive(t Type) bool {
	switch t.(type) {
	case Bool, Int:
		return true
	default:
		return false
	}
}
