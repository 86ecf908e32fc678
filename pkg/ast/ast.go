// Package ast defines the Remex input syntax tree node types.
//
// The tree is produced by an external parser; this package fixes the
// node shapes and source spans the compiler consumes, not a grammar.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// BinaryOp represents a binary operator.
type BinaryOp string

const (
	OpAdd   BinaryOp = "+"
	OpSub   BinaryOp = "-"
	OpMul   BinaryOp = "*"
	OpDiv   BinaryOp = "/"
	OpMod   BinaryOp = "%"
	OpGt    BinaryOp = ">"
	OpLt    BinaryOp = "<"
	OpGtEq  BinaryOp = ">="
	OpLtEq  BinaryOp = "<="
	OpEqEq  BinaryOp = "=="
	OpNeq   BinaryOp = "!="
	OpAnd   BinaryOp = "&&"
	OpOr    BinaryOp = "||"
	OpMerge BinaryOp = "|"
	OpIn    BinaryOp = "in"
)

// UnaryOp represents a unary operator.
type UnaryOp string

const (
	OpNeg UnaryOp = "-"
	OpNot UnaryOp = "!"
)

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Literal Expressions ---

type IntLiteral struct {
	Span  Span
	Value int64
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}

type FloatLiteral struct {
	Span  Span
	Value float64
}

func (n *FloatLiteral) Kind() string   { return "FloatLiteral" }
func (n *FloatLiteral) NodeSpan() Span { return n.Span }
func (n *FloatLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}

type NullLiteral struct {
	Span Span
}

func (n *NullLiteral) Kind() string   { return "NullLiteral" }
func (n *NullLiteral) NodeSpan() Span { return n.Span }
func (n *NullLiteral) exprNode()      {}

// RegexLiteral holds an uncompiled pattern; the compiler compiles it
// and diagnoses invalid patterns.
type RegexLiteral struct {
	Span    Span
	Pattern string
}

func (n *RegexLiteral) Kind() string   { return "RegexLiteral" }
func (n *RegexLiteral) NodeSpan() Span { return n.Span }
func (n *RegexLiteral) exprNode()      {}

// --- Container Literals ---

type ArrayExpr struct {
	Span     Span
	Elements []Expr
}

func (n *ArrayExpr) Kind() string   { return "ArrayExpr" }
func (n *ArrayExpr) NodeSpan() Span { return n.Span }
func (n *ArrayExpr) exprNode()      {}

// ObjectPair is one field of an object literal. Keys are compile-time
// constants; values are arbitrary expressions.
type ObjectPair struct {
	Span  Span
	Key   string
	Value Expr
}

type ObjectExpr struct {
	Span  Span
	Pairs []ObjectPair
}

func (n *ObjectExpr) Kind() string   { return "ObjectExpr" }
func (n *ObjectExpr) NodeSpan() Span { return n.Span }
func (n *ObjectExpr) exprNode()      {}

// --- Paths ---

// Root identifies what a path is resolved against.
type Root string

const (
	// RootEvent addresses the target event record.
	RootEvent Root = "event"
	// RootVariable addresses a local variable.
	RootVariable Root = "variable"
)

// Segment is one step of a path: a field name, a literal index, or an
// expression computed at runtime.
type Segment interface {
	Node
	segmentNode() // sealed marker
}

type FieldSegment struct {
	Span Span
	Name string
}

func (n *FieldSegment) Kind() string   { return "FieldSegment" }
func (n *FieldSegment) NodeSpan() Span { return n.Span }
func (n *FieldSegment) segmentNode()   {}

type IndexSegment struct {
	Span  Span
	Index int
}

func (n *IndexSegment) Kind() string   { return "IndexSegment" }
func (n *IndexSegment) NodeSpan() Span { return n.Span }
func (n *IndexSegment) segmentNode()   {}

// ExprSegment is a runtime-computed field name or index.
type ExprSegment struct {
	Span Span
	Expr Expr
}

func (n *ExprSegment) Kind() string   { return "ExprSegment" }
func (n *ExprSegment) NodeSpan() Span { return n.Span }
func (n *ExprSegment) segmentNode()   {}

// Query reads a path from the event or from a variable. A bare
// variable reference is a Query with no segments.
type Query struct {
	Span     Span
	Root     Root
	Name     string // variable name when Root is RootVariable
	Segments []Segment
}

func (n *Query) Kind() string   { return "Query" }
func (n *Query) NodeSpan() Span { return n.Span }
func (n *Query) exprNode()      {}

// --- Assignment ---

// AssignTarget is the left side of an assignment: a variable or a
// path rooted at the event or a variable.
type AssignTarget struct {
	Span     Span
	Root     Root
	Name     string // variable name when Root is RootVariable
	Segments []Segment
}

func (n *AssignTarget) Kind() string   { return "AssignTarget" }
func (n *AssignTarget) NodeSpan() Span { return n.Span }

// Assignment writes the result of Value into Target. When ErrTarget
// is non-nil this is the dual "fallible" form: a runtime error from
// Value is caught, its message bound into ErrTarget, and Default
// (null when nil) bound into Target.
type Assignment struct {
	Span      Span
	Target    *AssignTarget
	ErrTarget *AssignTarget
	Default   Expr
	Value     Expr
}

func (n *Assignment) Kind() string   { return "Assignment" }
func (n *Assignment) NodeSpan() Span { return n.Span }
func (n *Assignment) exprNode()      {}

// --- Operators ---

type BinaryExpr struct {
	Span  Span
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

type UnaryExpr struct {
	Span    Span
	Op      UnaryOp
	Operand Expr
}

func (n *UnaryExpr) Kind() string   { return "UnaryExpr" }
func (n *UnaryExpr) NodeSpan() Span { return n.Span }
func (n *UnaryExpr) exprNode()      {}

// --- Control Flow ---

// Block is an expression sequence; its value is the value of the last
// expression.
type Block struct {
	Span  Span
	Exprs []Expr
}

func (n *Block) Kind() string   { return "Block" }
func (n *Block) NodeSpan() Span { return n.Span }
func (n *Block) exprNode()      {}

// IfStatement evaluates Then or Else depending on Cond. Else may be
// nil, in which case the statement produces null when Cond is false.
type IfStatement struct {
	Span Span
	Cond Expr
	Then *Block
	Else *Block
}

func (n *IfStatement) Kind() string   { return "IfStatement" }
func (n *IfStatement) NodeSpan() Span { return n.Span }
func (n *IfStatement) exprNode()      {}

// --- Function Calls ---

type Call struct {
	Span Span
	Name string
	Args []Expr
}

func (n *Call) Kind() string   { return "Call" }
func (n *Call) NodeSpan() Span { return n.Span }
func (n *Call) exprNode()      {}

// --- Abort ---

// Abort terminates the whole program early. Message is optional.
type Abort struct {
	Span    Span
	Message Expr
}

func (n *Abort) Kind() string   { return "Abort" }
func (n *Abort) NodeSpan() Span { return n.Span }
func (n *Abort) exprNode()      {}

// --- Program ---

// Program is the ordered sequence of root expressions.
type Program struct {
	Span  Span
	Exprs []Expr
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
