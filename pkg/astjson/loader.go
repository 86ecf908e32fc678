package astjson

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/remexlang/remex/pkg/ast"
)

var sharedValidator = sync.OnceValues(NewValidator)

// LoadProgram reads and decodes a program JSON file.
func LoadProgram(path string) (*ast.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program file: %w", err)
	}
	return Decode(data)
}

// Decode validates and decodes a program JSON document.
func Decode(data []byte) (*ast.Program, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse program JSON: %w", err)
	}

	v, err := sharedValidator()
	if err != nil {
		return nil, err
	}
	if errs := v.ValidateDocument(doc); len(errs) > 0 {
		return nil, fmt.Errorf("invalid program document: %s", errs[0])
	}

	var root node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to decode program JSON: %w", err)
	}
	return decodeProgram(&root)
}

// node is the envelope every tree node decodes into; the kind
// discriminator selects which fields are meaningful.
type node struct {
	Kind     string          `json:"kind"`
	Span     ast.Span        `json:"span"`
	Value    json.RawMessage `json:"value"`
	Pattern  string          `json:"pattern"`
	Elements []node          `json:"elements"`
	Pairs    []pairNode      `json:"pairs"`
	Root     string          `json:"root"`
	Name     string          `json:"name"`
	Segments []node          `json:"segments"`
	Index    int             `json:"index"`
	Expr     *node           `json:"expr"`
	Target   *targetNode     `json:"target"`
	ErrTgt   *targetNode     `json:"errTarget"`
	Default  *node           `json:"default"`
	Op       string          `json:"op"`
	Left     *node           `json:"left"`
	Right    *node           `json:"right"`
	Operand  *node           `json:"operand"`
	Exprs    []node          `json:"exprs"`
	Cond     *node           `json:"cond"`
	Then     *node           `json:"then"`
	Else     *node           `json:"else"`
	Args     []node          `json:"args"`
	Message  *node           `json:"message"`
}

type pairNode struct {
	Span  ast.Span `json:"span"`
	Key   string   `json:"key"`
	Value node     `json:"value"`
}

type targetNode struct {
	Span     ast.Span `json:"span"`
	Root     string   `json:"root"`
	Name     string   `json:"name"`
	Segments []node   `json:"segments"`
}

func decodeProgram(n *node) (*ast.Program, error) {
	exprs, err := decodeExprs(n.Exprs)
	if err != nil {
		return nil, err
	}
	return &ast.Program{Span: n.Span, Exprs: exprs}, nil
}

func decodeExprs(ns []node) ([]ast.Expr, error) {
	exprs := make([]ast.Expr, len(ns))
	for i := range ns {
		e, err := decodeExpr(&ns[i])
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return exprs, nil
}

func decodeExpr(n *node) (ast.Expr, error) {
	switch n.Kind {
	case "IntLiteral":
		var v int64
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("bad integer literal: %w", err)
		}
		return &ast.IntLiteral{Span: n.Span, Value: v}, nil
	case "FloatLiteral":
		var v float64
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("bad float literal: %w", err)
		}
		return &ast.FloatLiteral{Span: n.Span, Value: v}, nil
	case "BoolLiteral":
		var v bool
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("bad boolean literal: %w", err)
		}
		return &ast.BoolLiteral{Span: n.Span, Value: v}, nil
	case "StrLiteral":
		var v string
		if err := json.Unmarshal(n.Value, &v); err != nil {
			return nil, fmt.Errorf("bad string literal: %w", err)
		}
		return &ast.StrLiteral{Span: n.Span, Value: v}, nil
	case "NullLiteral":
		return &ast.NullLiteral{Span: n.Span}, nil
	case "RegexLiteral":
		return &ast.RegexLiteral{Span: n.Span, Pattern: n.Pattern}, nil
	case "ArrayExpr":
		elems, err := decodeExprs(n.Elements)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayExpr{Span: n.Span, Elements: elems}, nil
	case "ObjectExpr":
		pairs := make([]ast.ObjectPair, len(n.Pairs))
		for i, p := range n.Pairs {
			v, err := decodeExpr(&p.Value)
			if err != nil {
				return nil, err
			}
			pairs[i] = ast.ObjectPair{Span: p.Span, Key: p.Key, Value: v}
		}
		return &ast.ObjectExpr{Span: n.Span, Pairs: pairs}, nil
	case "Query":
		segs, err := decodeSegments(n.Segments)
		if err != nil {
			return nil, err
		}
		return &ast.Query{Span: n.Span, Root: ast.Root(n.Root), Name: n.Name, Segments: segs}, nil
	case "Assignment":
		return decodeAssignment(n)
	case "BinaryExpr":
		left, err := decodeExpr(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := decodeExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Span: n.Span, Op: ast.BinaryOp(n.Op), Left: left, Right: right}, nil
	case "UnaryExpr":
		operand, err := decodeExpr(n.Operand)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Span: n.Span, Op: ast.UnaryOp(n.Op), Operand: operand}, nil
	case "Block":
		exprs, err := decodeExprs(n.Exprs)
		if err != nil {
			return nil, err
		}
		return &ast.Block{Span: n.Span, Exprs: exprs}, nil
	case "IfStatement":
		return decodeIf(n)
	case "Call":
		args, err := decodeExprs(n.Args)
		if err != nil {
			return nil, err
		}
		return &ast.Call{Span: n.Span, Name: n.Name, Args: args}, nil
	case "Abort":
		var msg ast.Expr
		if n.Message != nil {
			var err error
			msg, err = decodeExpr(n.Message)
			if err != nil {
				return nil, err
			}
		}
		return &ast.Abort{Span: n.Span, Message: msg}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", n.Kind)
}

func decodeAssignment(n *node) (ast.Expr, error) {
	if n.Target == nil {
		return nil, fmt.Errorf("assignment missing target")
	}
	target, err := decodeTarget(n.Target)
	if err != nil {
		return nil, err
	}
	var errTarget *ast.AssignTarget
	if n.ErrTgt != nil {
		errTarget, err = decodeTarget(n.ErrTgt)
		if err != nil {
			return nil, err
		}
	}
	var def ast.Expr
	if n.Default != nil {
		def, err = decodeExpr(n.Default)
		if err != nil {
			return nil, err
		}
	}
	// The "value" key doubles as the literal payload field, so the
	// envelope keeps it raw; re-decode it as a node here.
	if len(n.Value) == 0 {
		return nil, fmt.Errorf("assignment missing value")
	}
	var valNode node
	if err := json.Unmarshal(n.Value, &valNode); err != nil {
		return nil, fmt.Errorf("bad assignment value: %w", err)
	}
	val, err := decodeExpr(&valNode)
	if err != nil {
		return nil, err
	}
	return &ast.Assignment{Span: n.Span, Target: target, ErrTarget: errTarget, Default: def, Value: val}, nil
}

func decodeIf(n *node) (ast.Expr, error) {
	cond, err := decodeExpr(n.Cond)
	if err != nil {
		return nil, err
	}
	thenExpr, err := decodeExpr(n.Then)
	if err != nil {
		return nil, err
	}
	thenBlock, ok := thenExpr.(*ast.Block)
	if !ok {
		return nil, fmt.Errorf("if branch is not a block")
	}
	var elseBlock *ast.Block
	if n.Else != nil {
		elseExpr, err := decodeExpr(n.Else)
		if err != nil {
			return nil, err
		}
		elseBlock, ok = elseExpr.(*ast.Block)
		if !ok {
			return nil, fmt.Errorf("else branch is not a block")
		}
	}
	return &ast.IfStatement{Span: n.Span, Cond: cond, Then: thenBlock, Else: elseBlock}, nil
}

func decodeTarget(t *targetNode) (*ast.AssignTarget, error) {
	segs, err := decodeSegments(t.Segments)
	if err != nil {
		return nil, err
	}
	return &ast.AssignTarget{Span: t.Span, Root: ast.Root(t.Root), Name: t.Name, Segments: segs}, nil
}

func decodeSegments(ns []node) ([]ast.Segment, error) {
	if len(ns) == 0 {
		return nil, nil
	}
	segs := make([]ast.Segment, len(ns))
	for i := range ns {
		n := &ns[i]
		switch n.Kind {
		case "FieldSegment":
			segs[i] = &ast.FieldSegment{Span: n.Span, Name: n.Name}
		case "IndexSegment":
			segs[i] = &ast.IndexSegment{Span: n.Span, Index: n.Index}
		case "ExprSegment":
			e, err := decodeExpr(n.Expr)
			if err != nil {
				return nil, err
			}
			segs[i] = &ast.ExprSegment{Span: n.Span, Expr: e}
		default:
			return nil, fmt.Errorf("unknown segment kind %q", n.Kind)
		}
	}
	return segs, nil
}
