package ast

import (
	"strings"
	"testing"
)

func TestDecodeFunction(t *testing.T) {
	doc := `
functions:
  - name: add
    params:
      - {name: x, type: {kind: int}}
      - {name: y, type: {kind: int}}
    returns: {kind: int}
    body:
      - kind: return
        expr:
          kind: binary
          op: "+"
          type: {kind: int}
          lhs: {kind: variable, name: x, type: {kind: int}}
          rhs: {kind: variable, name: y, type: {kind: int}}
`
	prog, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(prog.Functions) != 1 {
		t.Fatalf("Expected 1 function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if fn.Name != "add" {
		t.Errorf("Expected name 'add', got %q", fn.Name)
	}
	if len(fn.Params) != 2 {
		t.Fatalf("Expected 2 parameters, got %d", len(fn.Params))
	}
	if _, ok := fn.Returns.(Int); !ok {
		t.Errorf("Expected int return type, got %s", fn.Returns)
	}
	ret, ok := fn.Body[0].(Return)
	if !ok {
		t.Fatalf("Expected Return statement, got %T", fn.Body[0])
	}
	bin, ok := ret.Expr.(Binary)
	if !ok {
		t.Fatalf("Expected Binary expression, got %T", ret.Expr)
	}
	if bin.Op != ADD {
		t.Errorf("Expected ADD, got %s", bin.Op)
	}
}

func TestDecodeVoidReturnDefault(t *testing.T) {
	doc := `
functions:
  - name: main
    body: []
`
	prog, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if _, ok := prog.Functions[0].Returns.(Void); !ok {
		t.Errorf("Expected void return type, got %s", prog.Functions[0].Returns)
	}
}

func TestDecodeTypeDeclarations(t *testing.T) {
	doc := `
types:
  - name: Point
    type:
      kind: record
      fields:
        - {name: x, type: {kind: int}}
        - {name: y, type: {kind: int}}
  - name: Row
    type:
      kind: array
      element: {kind: named, name: Point}
functions: []
`
	prog, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(prog.Types) != 2 {
		t.Fatalf("Expected 2 type declarations, got %d", len(prog.Types))
	}
	rec, ok := prog.Types[0].Type.(Record)
	if !ok {
		t.Fatalf("Expected Record, got %T", prog.Types[0].Type)
	}
	if rec.FieldIndex("y") != 1 {
		t.Errorf("Expected field y at index 1, got %d", rec.FieldIndex("y"))
	}
	arr, ok := prog.Types[1].Type.(Array)
	if !ok {
		t.Fatalf("Expected Array, got %T", prog.Types[1].Type)
	}
	named, ok := arr.Element.(Named)
	if !ok || named.Name != "Point" {
		t.Errorf("Expected element type Point, got %s", arr.Element)
	}
	// Resolving Row's element through the declarations recovers Point.
	unwrapped := prog.Unwrap(named)
	if _, ok := unwrapped.(Record); !ok {
		t.Errorf("Expected Unwrap to reach the record type, got %s", unwrapped)
	}
}

func TestDecodeStatements(t *testing.T) {
	doc := `
functions:
  - name: main
    body:
      - kind: var
        name: n
        type: {kind: int}
        init: {kind: literal, value: {int: 10}, type: {kind: int}}
      - kind: while
        condition:
          kind: binary
          op: ">"
          type: {kind: bool}
          lhs: {kind: variable, name: n, type: {kind: int}}
          rhs: {kind: literal, value: {int: 0}, type: {kind: int}}
        body:
          - kind: assign
            lhs: {kind: variable, name: n, type: {kind: int}}
            rhs:
              kind: binary
              op: "-"
              type: {kind: int}
              lhs: {kind: variable, name: n, type: {kind: int}}
              rhs: {kind: literal, value: {int: 1}, type: {kind: int}}
          - {kind: continue}
      - kind: switch
        expr: {kind: variable, name: n, type: {kind: int}}
        cases:
          - value: {kind: literal, value: {int: 0}, type: {kind: int}}
            body:
              - {kind: break}
          - body: []
      - kind: assert
        expr:
          kind: binary
          op: "=="
          type: {kind: bool}
          lhs: {kind: variable, name: n, type: {kind: int}}
          rhs: {kind: literal, value: {int: 0}, type: {kind: int}}
`
	prog, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	body := prog.Functions[0].Body
	if len(body) != 4 {
		t.Fatalf("Expected 4 statements, got %d", len(body))
	}
	decl, ok := body[0].(VarDecl)
	if !ok {
		t.Fatalf("Expected VarDecl, got %T", body[0])
	}
	init, ok := decl.Init.(Literal)
	if !ok {
		t.Fatalf("Expected a literal initializer, got %T", decl.Init)
	}
	if c, ok := init.Value.(IntConst); !ok || c.Value != 10 {
		t.Errorf("Expected initializer 10, got %v", init.Value)
	}
	loop, ok := body[1].(While)
	if !ok {
		t.Fatalf("Expected While, got %T", body[1])
	}
	if len(loop.Body) != 2 {
		t.Errorf("Expected 2 loop statements, got %d", len(loop.Body))
	}
	sw, ok := body[2].(Switch)
	if !ok {
		t.Fatalf("Expected Switch, got %T", body[2])
	}
	if len(sw.Cases) != 2 {
		t.Fatalf("Expected 2 cases, got %d", len(sw.Cases))
	}
	if sw.Cases[0].IsDefault() {
		t.Error("First case should not be the default")
	}
	if !sw.Cases[1].IsDefault() {
		t.Error("Second case should be the default")
	}
}

func TestDecodeCompoundConstants(t *testing.T) {
	doc := `
functions:
  - name: main
    body:
      - kind: var
        name: s
        type: {kind: array, element: {kind: int}}
        init:
          kind: literal
          type: {kind: array, element: {kind: int}}
          value: {string: "hi"}
      - kind: var
        name: a
        type: {kind: array, element: {kind: int}}
        init:
          kind: literal
          type: {kind: array, element: {kind: int}}
          value:
            array:
              - {int: 1}
              - {char: "x"}
`
	prog, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	body := prog.Functions[0].Body
	s := body[0].(VarDecl).Init.(Literal)
	if sc, ok := s.Value.(StringConst); !ok || sc.Value != "hi" {
		t.Errorf("Expected string constant \"hi\", got %#v", s.Value)
	}
	a := body[1].(VarDecl).Init.(Literal)
	ac, ok := a.Value.(ArrayConst)
	if !ok {
		t.Fatalf("Expected ArrayConst, got %T", a.Value)
	}
	if len(ac.Elements) != 2 {
		t.Fatalf("Expected 2 elements, got %d", len(ac.Elements))
	}
	if cc, ok := ac.Elements[1].(CharConst); !ok || cc.Value != 'x' {
		t.Errorf("Expected char constant 'x', got %#v", ac.Elements[1])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"missing kind",
			`functions: [{name: main, body: [{expr: {kind: variable, name: x, type: {kind: int}}}]}]`,
			"missing kind",
		},
		{
			"unknown statement kind",
			`functions: [{name: main, body: [{kind: teleport}]}]`,
			"unknown statement kind",
		},
		{
			"expression without type",
			`functions: [{name: main, body: [{kind: assert, expr: {kind: variable, name: x}}]}]`,
			"missing its resolved type",
		},
		{
			"literal assignment target",
			`functions: [{name: main, body: [{kind: assign, lhs: {kind: literal, value: {int: 1}, type: {kind: int}}, rhs: {kind: literal, value: {int: 2}, type: {kind: int}}}]}]`,
			"not assignable",
		},
		{
			"empty constant",
			`functions: [{name: main, body: [{kind: assert, expr: {kind: literal, value: {}, type: {kind: bool}}}]}]`,
			"constant must have one of",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, err)
			}
		})
	}
}
