package ast

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// The YAML form of a type-checked program is the interface contract between
// the external front end and this backend. Every node is a mapping with a
// "kind" discriminator; expressions additionally carry a "type" mapping
// holding their resolved static type.

// Decode parses a type-checked While program from its YAML form.
func Decode(data []byte) (*Program, error) {
	var doc struct {
		Types []struct {
			Name string    `yaml:"name"`
			Type yaml.Node `yaml:"type"`
		} `yaml:"types"`
		Functions []struct {
			Name   string `yaml:"name"`
			Params []struct {
				Name string    `yaml:"name"`
				Type yaml.Node `yaml:"type"`
			} `yaml:"params"`
			Returns yaml.Node   `yaml:"returns"`
			Body    []yaml.Node `yaml:"body"`
		} `yaml:"functions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("malformed program document: %w", err)
	}
	prog := &Program{}
	for _, td := range doc.Types {
		ty, err := decodeType(&td.Type)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", td.Name, err)
		}
		prog.Types = append(prog.Types, TypeDecl{Name: td.Name, Type: ty})
	}
	for _, fd := range doc.Functions {
		fn := FuncDecl{Name: fd.Name, Returns: Void{}}
		for _, pd := range fd.Params {
			ty, err := decodeType(&pd.Type)
			if err != nil {
				return nil, fmt.Errorf("function %s, parameter %s: %w", fd.Name, pd.Name, err)
			}
			fn.Params = append(fn.Params, Parameter{Name: pd.Name, Type: ty})
		}
		if fd.Returns.Kind != 0 {
			ty, err := decodeType(&fd.Returns)
			if err != nil {
				return nil, fmt.Errorf("function %s, return type: %w", fd.Name, err)
			}
			fn.Returns = ty
		}
		for i := range fd.Body {
			s, err := decodeStmt(&fd.Body[i])
			if err != nil {
				return nil, fmt.Errorf("function %s: %w", fd.Name, err)
			}
			fn.Body = append(fn.Body, s)
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

// kindOf extracts the "kind" discriminator from a mapping node
func kindOf(n *yaml.Node) (string, error) {
	var k struct {
		Kind string `yaml:"kind"`
	}
	if err := n.Decode(&k); err != nil {
		return "", fmt.Errorf("line %d: expected mapping node: %w", n.Line, err)
	}
	if k.Kind == "" {
		return "", fmt.Errorf("line %d: missing kind discriminator", n.Line)
	}
	return k.Kind, nil
}

func decodeType(n *yaml.Node) (Type, error) {
	kind, err := kindOf(n)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "void":
		return Void{}, nil
	case "null":
		return Null{}, nil
	case "bool":
		return Bool{}, nil
	case "int":
		return Int{}, nil
	case "named":
		var body struct {
			Name string `yaml:"name"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		return Named{Name: body.Name}, nil
	case "array":
		var body struct {
			Element yaml.Node `yaml:"element"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		elem, err := decodeType(&body.Element)
		if err != nil {
			return nil, err
		}
		return Array{Element: elem}, nil
	case "record":
		var body struct {
			Fields []struct {
				Name string    `yaml:"name"`
				Type yaml.Node `yaml:"type"`
			} `yaml:"fields"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		rec := Record{}
		for _, f := range body.Fields {
			ty, err := decodeType(&f.Type)
			if err != nil {
				return nil, err
			}
			rec.Fields = append(rec.Fields, Field{Name: f.Name, Type: ty})
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("line %d: unknown type kind %q", n.Line, kind)
	}
}

var binOps = map[string]BinOp{
	"+": ADD, "-": SUB, "*": MUL, "/": DIV, "%": REM,
	"&&": AND, "||": OR,
	"==": EQ, "!=": NEQ, "<": LT, "<=": LTEQ, ">": GT, ">=": GTEQ,
}

var unOps = map[string]UnOp{
	"!": NOT, "-": NEG, "lengthof": LENGTHOF,
}

// exprType decodes the mandatory "type" attribute of an expression node
func exprType(n *yaml.Node) (Type, error) {
	var body struct {
		Type yaml.Node `yaml:"type"`
	}
	if err := n.Decode(&body); err != nil {
		return nil, err
	}
	if body.Type.Kind == 0 {
		return nil, fmt.Errorf("line %d: expression is missing its resolved type", n.Line)
	}
	return decodeType(&body.Type)
}

func decodeExpr(n *yaml.Node) (Expr, error) {
	kind, err := kindOf(n)
	if err != nil {
		return nil, err
	}
	ty, err := exprType(n)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "variable":
		var body struct {
			Name string `yaml:"name"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		return Variable{Name: body.Name, Ty: ty}, nil
	case "literal":
		var body struct {
			Value yaml.Node `yaml:"value"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		c, err := decodeConst(&body.Value)
		if err != nil {
			return nil, err
		}
		return Literal{Value: c, Ty: ty}, nil
	case "binary":
		var body struct {
			Op  string    `yaml:"op"`
			Lhs yaml.Node `yaml:"lhs"`
			Rhs yaml.Node `yaml:"rhs"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		op, ok := binOps[body.Op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown binary operator %q", n.Line, body.Op)
		}
		lhs, err := decodeExpr(&body.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeExpr(&body.Rhs)
		if err != nil {
			return nil, err
		}
		return Binary{Op: op, Lhs: lhs, Rhs: rhs, Ty: ty}, nil
	case "unary":
		var body struct {
			Op   string    `yaml:"op"`
			Expr yaml.Node `yaml:"expr"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		op, ok := unOps[body.Op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown unary operator %q", n.Line, body.Op)
		}
		e, err := decodeExpr(&body.Expr)
		if err != nil {
			return nil, err
		}
		return Unary{Op: op, Expr: e, Ty: ty}, nil
	case "index":
		var body struct {
			Source yaml.Node `yaml:"source"`
			Index  yaml.Node `yaml:"index"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		src, err := decodeExpr(&body.Source)
		if err != nil {
			return nil, err
		}
		idx, err := decodeExpr(&body.Index)
		if err != nil {
			return nil, err
		}
		return IndexOf{Source: src, Index: idx, Ty: ty}, nil
	case "access":
		var body struct {
			Source yaml.Node `yaml:"source"`
			Field  string    `yaml:"field"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		src, err := decodeExpr(&body.Source)
		if err != nil {
			return nil, err
		}
		return RecordAccess{Source: src, Field: body.Field, Ty: ty}, nil
	case "record":
		var body struct {
			Fields []struct {
				Name string    `yaml:"name"`
				Expr yaml.Node `yaml:"expr"`
			} `yaml:"fields"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		rc := RecordConstructor{Ty: ty}
		for _, f := range body.Fields {
			e, err := decodeExpr(&f.Expr)
			if err != nil {
				return nil, err
			}
			rc.Fields = append(rc.Fields, FieldInit{Name: f.Name, Expr: e})
		}
		return rc, nil
	case "arrayinit":
		var body struct {
			Args []yaml.Node `yaml:"args"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		ai := ArrayInitialiser{Ty: ty}
		for i := range body.Args {
			e, err := decodeExpr(&body.Args[i])
			if err != nil {
				return nil, err
			}
			ai.Args = append(ai.Args, e)
		}
		return ai, nil
	case "arraygen":
		var body struct {
			Value yaml.Node `yaml:"value"`
			Size  yaml.Node `yaml:"size"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		val, err := decodeExpr(&body.Value)
		if err != nil {
			return nil, err
		}
		size, err := decodeExpr(&body.Size)
		if err != nil {
			return nil, err
		}
		return ArrayGenerator{Value: val, Size: size, Ty: ty}, nil
	case "invoke":
		return decodeInvoke(n, ty)
	default:
		return nil, fmt.Errorf("line %d: unknown expression kind %q", n.Line, kind)
	}
}

func decodeInvoke(n *yaml.Node, ty Type) (Invoke, error) {
	var body struct {
		Name string      `yaml:"name"`
		Args []yaml.Node `yaml:"args"`
	}
	if err := n.Decode(&body); err != nil {
		return Invoke{}, err
	}
	inv := Invoke{Name: body.Name, Ty: ty}
	for i := range body.Args {
		e, err := decodeExpr(&body.Args[i])
		if err != nil {
			return Invoke{}, err
		}
		inv.Args = append(inv.Args, e)
	}
	return inv, nil
}

func decodeLVal(n *yaml.Node) (LVal, error) {
	e, err := decodeExpr(n)
	if err != nil {
		return nil, err
	}
	lv, ok := e.(LVal)
	if !ok {
		return nil, fmt.Errorf("line %d: %T is not assignable", n.Line, e)
	}
	return lv, nil
}

func decodeConst(n *yaml.Node) (Const, error) {
	var body struct {
		Bool   *bool       `yaml:"bool"`
		Int    *int64      `yaml:"int"`
		Char   *string     `yaml:"char"`
		String *string     `yaml:"string"`
		Array  []yaml.Node `yaml:"array"`
		Record []struct {
			Name  string    `yaml:"name"`
			Value yaml.Node `yaml:"value"`
		} `yaml:"record"`
	}
	if err := n.Decode(&body); err != nil {
		return nil, fmt.Errorf("line %d: malformed constant: %w", n.Line, err)
	}
	switch {
	case body.Bool != nil:
		return BoolConst{Value: *body.Bool}, nil
	case body.Int != nil:
		return IntConst{Value: *body.Int}, nil
	case body.Char != nil:
		runes := []rune(*body.Char)
		if len(runes) != 1 {
			return nil, fmt.Errorf("line %d: char constant must be a single character", n.Line)
		}
		return CharConst{Value: runes[0]}, nil
	case body.String != nil:
		return StringConst{Value: *body.String}, nil
	case body.Array != nil:
		ac := ArrayConst{}
		for i := range body.Array {
			c, err := decodeConst(&body.Array[i])
			if err != nil {
				return nil, err
			}
			ac.Elements = append(ac.Elements, c)
		}
		return ac, nil
	case body.Record != nil:
		rc := RecordConst{}
		for _, f := range body.Record {
			c, err := decodeConst(&f.Value)
			if err != nil {
				return nil, err
			}
			rc.Fields = append(rc.Fields, RecordConstField{Name: f.Name, Value: c})
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("line %d: constant must have one of bool, int, char, string, array, record", n.Line)
	}
}

func decodeStmt(n *yaml.Node) (Stmt, error) {
	kind, err := kindOf(n)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "assert":
		var body struct {
			Expr yaml.Node `yaml:"expr"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		e, err := decodeExpr(&body.Expr)
		if err != nil {
			return nil, err
		}
		return Assert{Expr: e}, nil
	case "assign":
		var body struct {
			Lhs yaml.Node `yaml:"lhs"`
			Rhs yaml.Node `yaml:"rhs"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		lhs, err := decodeLVal(&body.Lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := decodeExpr(&body.Rhs)
		if err != nil {
			return nil, err
		}
		return Assign{Lhs: lhs, Rhs: rhs}, nil
	case "break":
		return Break{}, nil
	case "continue":
		return Continue{}, nil
	case "var":
		return decodeVarDecl(n)
	case "if":
		var body struct {
			Condition yaml.Node   `yaml:"condition"`
			Then      []yaml.Node `yaml:"then"`
			Else      []yaml.Node `yaml:"else"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		cond, err := decodeExpr(&body.Condition)
		if err != nil {
			return nil, err
		}
		s := IfElse{Condition: cond}
		if s.TrueBranch, err = decodeBlock(body.Then); err != nil {
			return nil, err
		}
		if s.FalseBranch, err = decodeBlock(body.Else); err != nil {
			return nil, err
		}
		return s, nil
	case "while":
		var body struct {
			Condition yaml.Node   `yaml:"condition"`
			Body      []yaml.Node `yaml:"body"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		cond, err := decodeExpr(&body.Condition)
		if err != nil {
			return nil, err
		}
		s := While{Condition: cond}
		if s.Body, err = decodeBlock(body.Body); err != nil {
			return nil, err
		}
		return s, nil
	case "for":
		var body struct {
			Decl      yaml.Node   `yaml:"decl"`
			Condition yaml.Node   `yaml:"condition"`
			Increment yaml.Node   `yaml:"increment"`
			Body      []yaml.Node `yaml:"body"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		decl, err := decodeVarDecl(&body.Decl)
		if err != nil {
			return nil, err
		}
		cond, err := decodeExpr(&body.Condition)
		if err != nil {
			return nil, err
		}
		incr, err := decodeStmt(&body.Increment)
		if err != nil {
			return nil, err
		}
		s := For{Declaration: &decl, Condition: cond, Increment: incr}
		if s.Body, err = decodeBlock(body.Body); err != nil {
			return nil, err
		}
		return s, nil
	case "return":
		var body struct {
			Expr yaml.Node `yaml:"expr"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		if body.Expr.Kind == 0 {
			return Return{}, nil
		}
		e, err := decodeExpr(&body.Expr)
		if err != nil {
			return nil, err
		}
		return Return{Expr: e}, nil
	case "switch":
		var body struct {
			Expr  yaml.Node `yaml:"expr"`
			Cases []struct {
				Value yaml.Node   `yaml:"value"`
				Body  []yaml.Node `yaml:"body"`
			} `yaml:"cases"`
		}
		if err := n.Decode(&body); err != nil {
			return nil, err
		}
		scrutinee, err := decodeExpr(&body.Expr)
		if err != nil {
			return nil, err
		}
		s := Switch{Expr: scrutinee}
		for i := range body.Cases {
			cd := &body.Cases[i]
			c := Case{}
			if cd.Value.Kind != 0 {
				e, err := decodeExpr(&cd.Value)
				if err != nil {
					return nil, err
				}
				lit, ok := e.(Literal)
				if !ok {
					return nil, fmt.Errorf("line %d: case value must be a literal", cd.Value.Line)
				}
				c.Value = &lit
			}
			if c.Body, err = decodeBlock(cd.Body); err != nil {
				return nil, err
			}
			s.Cases = append(s.Cases, c)
		}
		return s, nil
	case "invoke":
		ty, err := exprType(n)
		if err != nil {
			return nil, err
		}
		return decodeInvoke(n, ty)
	default:
		return nil, fmt.Errorf("line %d: unknown statement kind %q", n.Line, kind)
	}
}

func decodeVarDecl(n *yaml.Node) (VarDecl, error) {
	var body struct {
		Name string    `yaml:"name"`
		Type yaml.Node `yaml:"type"`
		Init yaml.Node `yaml:"init"`
	}
	if err := n.Decode(&body); err != nil {
		return VarDecl{}, err
	}
	ty, err := decodeType(&body.Type)
	if err != nil {
		return VarDecl{}, err
	}
	vd := VarDecl{Name: body.Name, Type: ty}
	if body.Init.Kind != 0 {
		if vd.Init, err = decodeExpr(&body.Init); err != nil {
			return VarDecl{}, err
		}
	}
	return vd, nil
}

func decodeBlock(nodes []yaml.Node) ([]Stmt, error) {
	var out []Stmt
	for i := range nodes {
		s, err := decodeStmt(&nodes[i])
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
