// Package formatter renders a Remex syntax tree back to canonical
// source text. The output is for humans: diagnostics tooling and the
// CLI use it to show what a loaded program document actually says.
package formatter

import (
	"math"
	"strconv"
	"strings"

	"github.com/remexlang/remex/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding).
var precedence = map[ast.BinaryOp]int{
	ast.OpOr:  1,
	ast.OpAnd: 2,
	ast.OpEqEq: 3, ast.OpNeq: 3,
	ast.OpGt: 4, ast.OpLt: 4, ast.OpGtEq: 4, ast.OpLtEq: 4, ast.OpIn: 4,
	ast.OpMerge: 5,
	ast.OpAdd:   6, ast.OpSub: 6,
	ast.OpMul: 7, ast.OpDiv: 7, ast.OpMod: 7,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Same precedence on the right side keeps explicit grouping.
	return childPrec == parentPrec && isRight
}

// Format renders a program as source text, one root expression per
// line.
func Format(program *ast.Program) string {
	lines := make([]string, len(program.Exprs))
	for i, e := range program.Exprs {
		lines[i] = formatExpr(e, 0)
	}
	return strings.Join(lines, "\n") + "\n"
}

func formatExpr(e ast.Expr, depth int) string {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(expr.Value, 10)
	case *ast.FloatLiteral:
		return formatFloatLiteral(expr.Value)
	case *ast.BoolLiteral:
		if expr.Value {
			return "true"
		}
		return "false"
	case *ast.StrLiteral:
		return strconv.Quote(expr.Value)
	case *ast.NullLiteral:
		return "null"
	case *ast.RegexLiteral:
		return "r" + strconv.Quote(expr.Pattern)
	case *ast.ArrayExpr:
		return formatArray(expr, depth)
	case *ast.ObjectExpr:
		return formatObject(expr, depth)
	case *ast.Query:
		return formatPath(expr.Root, expr.Name, expr.Segments, depth)
	case *ast.Assignment:
		return formatAssignment(expr, depth)
	case *ast.BinaryExpr:
		leftStr := formatExpr(expr.Left, depth)
		rightStr := formatExpr(expr.Right, depth)
		if needsParens(expr.Left, expr.Op, false) {
			leftStr = "(" + leftStr + ")"
		}
		if needsParens(expr.Right, expr.Op, true) {
			rightStr = "(" + rightStr + ")"
		}
		return leftStr + " " + string(expr.Op) + " " + rightStr
	case *ast.UnaryExpr:
		operandStr := formatExpr(expr.Operand, depth)
		switch expr.Operand.(type) {
		case *ast.BinaryExpr, *ast.UnaryExpr:
			operandStr = "(" + operandStr + ")"
		}
		return string(expr.Op) + operandStr
	case *ast.Block:
		return formatBlock(expr, depth)
	case *ast.IfStatement:
		out := "if " + formatExpr(expr.Cond, depth) + " " + formatBlock(expr.Then, depth)
		if expr.Else != nil {
			out += " else " + formatBlock(expr.Else, depth)
		}
		return out
	case *ast.Call:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a, depth)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.Abort:
		if expr.Message == nil {
			return "abort"
		}
		return "abort " + formatExpr(expr.Message, depth)
	}
	return ""
}

func formatBlock(b *ast.Block, depth int) string {
	if len(b.Exprs) == 0 {
		return "{}"
	}
	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	lines := make([]string, len(b.Exprs))
	for i, e := range b.Exprs {
		lines[i] = inner + formatExpr(e, depth+1)
	}
	return "{\n" + strings.Join(lines, "\n") + "\n" + outer + "}"
}

func formatAssignment(a *ast.Assignment, depth int) string {
	out := formatTarget(a.Target, depth)
	if a.ErrTarget != nil {
		out += ", " + formatTarget(a.ErrTarget, depth)
	}
	out += " = " + formatExpr(a.Value, depth)
	if a.Default != nil {
		out += " ?? " + formatExpr(a.Default, depth)
	}
	return out
}

func formatTarget(t *ast.AssignTarget, depth int) string {
	return formatPath(t.Root, t.Name, t.Segments, depth)
}

func formatPath(root ast.Root, name string, segs []ast.Segment, depth int) string {
	var b strings.Builder
	if root == ast.RootVariable {
		b.WriteString(name)
	}
	for _, seg := range segs {
		switch s := seg.(type) {
		case *ast.FieldSegment:
			b.WriteString("." + s.Name)
		case *ast.IndexSegment:
			b.WriteString("[" + strconv.Itoa(s.Index) + "]")
		case *ast.ExprSegment:
			b.WriteString("[" + formatExpr(s.Expr, depth) + "]")
		}
	}
	if root == ast.RootEvent && len(segs) == 0 {
		return "."
	}
	return b.String()
}

func formatFloatLiteral(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	raw := strconv.FormatFloat(value, 'g', -1, 64)
	if strings.ContainsAny(raw, "eE") {
		expanded := expandScientificNotation(raw)
		if !strings.Contains(expanded, ".") {
			expanded += ".0"
		}
		return expanded
	}
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}

func expandScientificNotation(value string) string {
	lower := strings.ToLower(value)
	parts := strings.SplitN(lower, "e", 2)
	if len(parts) != 2 {
		return value
	}

	mantissa := parts[0]
	exponent, err := strconv.Atoi(parts[1])
	if err != nil {
		return value
	}

	sign := ""
	digits := mantissa
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	} else if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}

	dotIdx := strings.Index(digits, ".")
	intPart := digits
	fracPart := ""
	if dotIdx >= 0 {
		intPart = digits[:dotIdx]
		fracPart = digits[dotIdx+1:]
	}

	compact := intPart + fracPart
	decimalIndex := len(intPart) + exponent

	if decimalIndex <= 0 {
		return sign + "0." + strings.Repeat("0", -decimalIndex) + compact
	}
	if decimalIndex >= len(compact) {
		return sign + compact + strings.Repeat("0", decimalIndex-len(compact)) + ".0"
	}
	return sign + compact[:decimalIndex] + "." + compact[decimalIndex:]
}

func formatObject(o *ast.ObjectExpr, depth int) string {
	if len(o.Pairs) == 0 {
		return "{}"
	}

	inlineParts := make([]string, len(o.Pairs))
	for i, p := range o.Pairs {
		inlineParts[i] = strconv.Quote(p.Key) + ": " + formatExpr(p.Value, depth+1)
	}
	inline := "{ " + strings.Join(inlineParts, ", ") + " }"
	if len(inline) <= 72 {
		return inline
	}

	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	parts := make([]string, len(o.Pairs))
	for i, p := range o.Pairs {
		parts[i] = inner + strconv.Quote(p.Key) + ": " + formatExpr(p.Value, depth+1)
	}
	return "{\n" + strings.Join(parts, ",\n") + "\n" + outer + "}"
}

func formatArray(a *ast.ArrayExpr, depth int) string {
	if len(a.Elements) == 0 {
		return "[]"
	}

	inlineParts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		inlineParts[i] = formatExpr(e, depth+1)
	}
	inline := "[" + strings.Join(inlineParts, ", ") + "]"
	if len(inline) <= 72 {
		return inline
	}

	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = inner + formatExpr(e, depth+1)
	}
	return "[\n" + strings.Join(parts, ",\n") + "\n" + outer + "]"
}
