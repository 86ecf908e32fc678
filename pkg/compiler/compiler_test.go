package compiler_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/compiler"
	"github.com/remexlang/remex/pkg/diag"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/registry"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/stdlib"
	"github.com/remexlang/remex/pkg/value"
)

// --- tree builders ---

func intLit(n int64) ast.Expr     { return &ast.IntLiteral{Value: n} }
func floatLit(f float64) ast.Expr { return &ast.FloatLiteral{Value: f} }
func strLit(s string) ast.Expr    { return &ast.StrLiteral{Value: s} }
func boolLit(b bool) ast.Expr     { return &ast.BoolLiteral{Value: b} }
func nullLit() ast.Expr           { return &ast.NullLiteral{} }

func fieldSegs(names ...string) []ast.Segment {
	segs := make([]ast.Segment, len(names))
	for i, n := range names {
		segs[i] = &ast.FieldSegment{Name: n}
	}
	return segs
}

// eventQ reads a dotted event path.
func eventQ(names ...string) *ast.Query {
	return &ast.Query{Root: ast.RootEvent, Segments: fieldSegs(names...)}
}

func varQ(name string) *ast.Query {
	return &ast.Query{Root: ast.RootVariable, Name: name}
}

func eventTarget(names ...string) *ast.AssignTarget {
	return &ast.AssignTarget{Root: ast.RootEvent, Segments: fieldSegs(names...)}
}

func varTarget(name string) *ast.AssignTarget {
	return &ast.AssignTarget{Root: ast.RootVariable, Name: name}
}

func assignEvent(field string, v ast.Expr) *ast.Assignment {
	return &ast.Assignment{Target: eventTarget(field), Value: v}
}

func assignVar(name string, v ast.Expr) *ast.Assignment {
	return &ast.Assignment{Target: varTarget(name), Value: v}
}

func binExpr(op ast.BinaryOp, l, r ast.Expr) ast.Expr {
	return &ast.BinaryExpr{Op: op, Left: l, Right: r}
}

func callExpr(name string, args ...ast.Expr) ast.Expr {
	return &ast.Call{Name: name, Args: args}
}

func block(exprs ...ast.Expr) *ast.Block { return &ast.Block{Exprs: exprs} }

func program(exprs ...ast.Expr) *ast.Program { return &ast.Program{Exprs: exprs} }

// --- harness ---

func compile(t *testing.T, p *ast.Program, opts ...compiler.Option) (*runtime.Program, []diag.Diagnostic) {
	t.Helper()
	return compiler.Compile(p, stdlib.NewRegistry(), opts...)
}

func compileOK(t *testing.T, p *ast.Program, opts ...compiler.Option) *runtime.Program {
	t.Helper()
	prog, diags := compile(t, p, opts...)
	if prog == nil {
		t.Fatalf("compilation failed:\n%s", diag.FormatAll(diags, true))
	}
	return prog
}

func expectFatal(t *testing.T, p *ast.Program, fragment string) []diag.Diagnostic {
	t.Helper()
	prog, diags := compile(t, p)
	if prog != nil {
		t.Fatalf("expected fatal diagnostics, got a program (diags: %s)", diag.FormatAll(diags, true))
	}
	for _, d := range diags {
		if d.Severity == diag.SeverityError && strings.Contains(d.Message, fragment) {
			return diags
		}
	}
	t.Fatalf("no fatal diagnostic mentioning %q in:\n%s", fragment, diag.FormatAll(diags, true))
	return nil
}

func runOn(t *testing.T, prog *runtime.Program, eventJSON string) (*runtime.Context, value.Value, error) {
	t.Helper()
	var ev value.Value
	if eventJSON != "" {
		var err error
		ev, err = value.FromJSON([]byte(eventJSON))
		if err != nil {
			t.Fatalf("bad event fixture: %v", err)
		}
	}
	ctx := runtime.NewContext(ev)
	v, err := prog.Resolve(ctx)
	return ctx, v, err
}

// --- end to end ---

func TestAssignAndCallEndToEnd(t *testing.T) {
	// .a = 1; .b = upcase(.c)
	prog := compileOK(t, program(
		assignEvent("a", intLit(1)),
		assignEvent("b", callExpr("upcase", eventQ("c"))),
	))
	ctx, _, err := runOn(t, prog, `{"c":"x"}`)
	if err != nil {
		t.Fatal(err)
	}
	if got := value.ToJSONString(ctx.Target); got != `{"a":1,"b":"X","c":"x"}` {
		t.Fatalf("event = %s", got)
	}
}

func TestQueryResultsDoNotAliasTheEvent(t *testing.T) {
	// .a = {"k": 1}; .b = .a; .b.k = "oops"; .a.k
	// The copy assigned to .b must be independent, so the write through
	// .b.k cannot leak a string into .a.k behind the tracked shape.
	prog := compileOK(t, program(
		assignEvent("a", &ast.ObjectExpr{Pairs: []ast.ObjectPair{{Key: "k", Value: intLit(1)}}}),
		assignEvent("b", eventQ("a")),
		&ast.Assignment{Target: eventTarget("b", "k"), Value: strLit("oops")},
		eventQ("a", "k"),
	))
	ctx, v, err := runOn(t, prog, `{}`)
	if err != nil {
		t.Fatal(err)
	}
	if !value.DeepEqual(v, value.NewInt(1)) {
		t.Fatalf(".a.k = %s, write through .b mutated .a", value.ToJSONString(v))
	}
	a := ctx.Target.(value.Object).Fields["a"].(value.Object)
	if !value.DeepEqual(a.Fields["k"], value.NewInt(1)) {
		t.Fatalf("event = %s", value.ToJSONString(ctx.Target))
	}
	if !value.KindOf(v).ContainedIn(prog.TypeDef().Kind) {
		t.Fatalf("runtime kind %s escapes compile kind %s", value.KindOf(v), prog.TypeDef().Kind)
	}
}

func TestIfBranchEndToEnd(t *testing.T) {
	// if .x > 5 { .big = true } else { .big = false }
	p := program(&ast.IfStatement{
		Cond: binExpr(ast.OpGt, eventQ("x"), intLit(5)),
		Then: block(assignEvent("big", boolLit(true))),
		Else: block(assignEvent("big", boolLit(false))),
	})
	prog := compileOK(t, p)

	ctx, _, err := runOn(t, prog, `{"x":10}`)
	if err != nil {
		t.Fatal(err)
	}
	obj := ctx.Target.(value.Object)
	if !value.DeepEqual(obj.Fields["big"], value.NewBool(true)) {
		t.Fatalf("event = %s", value.ToJSONString(ctx.Target))
	}

	// .x absent reads null: the comparison becomes a runtime error.
	_, _, err = runOn(t, prog, `{}`)
	var rtErr *runtime.Error
	if !errors.As(err, &rtErr) {
		t.Fatalf("comparison against null should fail at runtime, got %v", err)
	}
}

func TestDualAssignmentEndToEnd(t *testing.T) {
	// .num, .err = to_int(.raw)
	p := program(&ast.Assignment{
		Target:    eventTarget("num"),
		ErrTarget: eventTarget("err"),
		Value:     callExpr("to_int", eventQ("raw")),
	})
	prog, diags := compile(t, p)
	if prog == nil {
		t.Fatalf("compilation failed:\n%s", diag.FormatAll(diags, true))
	}
	// The dual form handles the error, so nothing warns at the root.
	for _, d := range diags {
		t.Errorf("unexpected diagnostic: %s", diag.Format(d, true))
	}

	ctx, _, err := runOn(t, prog, `{"raw":"42"}`)
	if err != nil {
		t.Fatal(err)
	}
	obj := ctx.Target.(value.Object)
	if !value.DeepEqual(obj.Fields["num"], value.NewInt(42)) {
		t.Fatalf("event = %s", value.ToJSONString(ctx.Target))
	}
	if !value.DeepEqual(obj.Fields["err"], value.NewNull()) {
		t.Fatalf("err should be null on success, event = %s", value.ToJSONString(ctx.Target))
	}

	ctx, _, err = runOn(t, prog, `{"raw":"garbage"}`)
	if err != nil {
		t.Fatal(err)
	}
	obj = ctx.Target.(value.Object)
	if !value.DeepEqual(obj.Fields["num"], value.NewNull()) {
		t.Fatalf("num should fall back to null, event = %s", value.ToJSONString(ctx.Target))
	}
	if _, ok := obj.Fields["err"].(value.Bytes); !ok {
		t.Fatalf("err should hold the message, event = %s", value.ToJSONString(ctx.Target))
	}
}

func TestDualAssignmentDefault(t *testing.T) {
	p := program(&ast.Assignment{
		Target:    eventTarget("num"),
		ErrTarget: eventTarget("err"),
		Default:   intLit(-1),
		Value:     callExpr("to_int", eventQ("raw")),
	})
	prog := compileOK(t, p)
	ctx, _, err := runOn(t, prog, `{"raw":"zzz"}`)
	if err != nil {
		t.Fatal(err)
	}
	obj := ctx.Target.(value.Object)
	if !value.DeepEqual(obj.Fields["num"], value.NewInt(-1)) {
		t.Fatalf("event = %s", value.ToJSONString(ctx.Target))
	}
}

func TestAbortEndToEnd(t *testing.T) {
	p := program(
		assignEvent("before", intLit(1)),
		&ast.Abort{Message: strLit("bad event")},
		assignEvent("after", intLit(2)),
	)
	prog, diags := compile(t, p)
	if prog == nil {
		t.Fatalf("abort programs still compile:\n%s", diag.FormatAll(diags, true))
	}

	warned := false
	for _, d := range diags {
		if d.Severity == diag.SeverityWarning && strings.Contains(d.Message, "unreachable") {
			warned = true
		}
	}
	if !warned {
		t.Error("code after abort should warn as unreachable")
	}

	ctx, _, err := runOn(t, prog, `{}`)
	var abort *runtime.Abort
	if !errors.As(err, &abort) {
		t.Fatalf("want abort, got %v", err)
	}
	obj := ctx.Target.(value.Object)
	if !value.DeepEqual(obj.Fields["before"], value.NewInt(1)) {
		t.Error("mutations before the abort must persist")
	}
	if _, ok := obj.Fields["after"]; ok {
		t.Error("mutations after the abort must not run")
	}
}

// --- type inference ---

func TestInferredKindContainsRuntimeValue(t *testing.T) {
	// Gradual-typing soundness: the compile-time kind of the final
	// expression contains the kind of the value it produces.
	programs := []struct {
		name  string
		tree  *ast.Program
		event string
	}{
		{"int arith", program(binExpr(ast.OpAdd, intLit(1), intLit(2))), `{}`},
		{"division", program(binExpr(ast.OpDiv, intLit(7), intLit(2))), `{}`},
		{"concat", program(binExpr(ast.OpAdd, strLit("a"), strLit("b"))), `{}`},
		{"known field", program(
			assignEvent("n", intLit(5)),
			eventQ("n"),
		), `{}`},
		{"branch union", program(
			assignVar("x", intLit(0)),
			&ast.IfStatement{
				Cond: boolLit(true),
				Then: block(assignVar("x", strLit("s"))),
			},
			varQ("x"),
		), `{}`},
	}

	for _, tt := range programs {
		t.Run(tt.name, func(t *testing.T) {
			prog := compileOK(t, tt.tree)
			_, v, err := runOn(t, prog, tt.event)
			if err != nil {
				t.Fatal(err)
			}
			td := prog.TypeDef()
			if !value.KindOf(v).ContainedIn(td.Kind) {
				t.Fatalf("runtime kind %s escapes compile kind %s", value.KindOf(v), td.Kind)
			}
		})
	}
}

func TestQueryNarrowsTrackedShape(t *testing.T) {
	// After .n = 1, a read of .n is known to be an integer.
	prog := compileOK(t, program(
		assignEvent("n", intLit(1)),
		eventQ("n"),
	))
	td := prog.TypeDef()
	if !td.Kind.Is(kind.Integer) {
		t.Fatalf("tracked field should narrow to integer, got %s", td.Kind)
	}
	if td.Fallible {
		t.Fatal("read of a tracked field is infallible")
	}
}

func TestWithTargetKindNarrowsQueries(t *testing.T) {
	shape := kind.NewObjectOf(map[string]kind.Kind{"name": kind.NewBytes()})
	prog := compileOK(t, program(eventQ("name")), compiler.WithTargetKind(shape))
	if !prog.TypeDef().Kind.Is(kind.Bytes) {
		t.Fatalf("schema'd query should narrow to bytes, got %s", prog.TypeDef().Kind)
	}
}

func TestBranchShapesUnionAfterIf(t *testing.T) {
	// .v is an integer in one branch and a string in the other; a
	// read after the if sees the union, so adding 1 to it warns
	// instead of failing hard.
	p := program(
		&ast.IfStatement{
			Cond: boolLit(true),
			Then: block(assignEvent("v", intLit(1))),
			Else: block(assignEvent("v", strLit("s"))),
		},
		binExpr(ast.OpAdd, eventQ("v"), intLit(1)),
	)
	prog, diags := compile(t, p)
	if prog == nil {
		t.Fatalf("union-typed operand should compile with a warning:\n%s", diag.FormatAll(diags, true))
	}
	warned := false
	for _, d := range diags {
		if d.Severity == diag.SeverityWarning && strings.Contains(d.Message, "incompatible") {
			warned = true
		}
	}
	if !warned {
		t.Fatalf("expected a possible-mismatch warning:\n%s", diag.FormatAll(diags, true))
	}
}

func TestDynamicSegmentCollapsesToFallibleAny(t *testing.T) {
	p := program(&ast.Query{
		Root: ast.RootEvent,
		Segments: []ast.Segment{
			&ast.ExprSegment{Expr: eventQ("key")},
		},
	})
	prog := compileOK(t, p)
	td := prog.TypeDef()
	if !td.Kind.IsAny() || !td.Fallible {
		t.Fatalf("dynamic segment should produce fallible any, got %s fallible=%v", td.Kind, td.Fallible)
	}
}

func TestRootFallibleWarns(t *testing.T) {
	p := program(binExpr(ast.OpDiv, intLit(1), intLit(0)))
	prog, diags := compile(t, p)
	if prog == nil {
		t.Fatal("fallible root expressions are warnings, not errors")
	}
	found := false
	for _, d := range diags {
		if d.Severity == diag.SeverityWarning && strings.Contains(d.Message, "may fail") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing unhandled-fallibility warning:\n%s", diag.FormatAll(diags, true))
	}
}

// --- constant folding ---

func TestPureCallsFoldToLiterals(t *testing.T) {
	prog := compileOK(t, program(callExpr("upcase", strLit("abc"))))
	folded, ok := prog.Exprs[0].(*runtime.Literal)
	if !ok {
		t.Fatalf("literal-arg pure call should fold, got %T", prog.Exprs[0])
	}
	if !value.DeepEqual(folded.Value, value.NewBytes("ABC")) {
		t.Fatalf("folded to %s", value.ToJSONString(folded.Value))
	}
	if folded.TD.Fallible {
		t.Error("folded literal is infallible")
	}
}

func TestFoldFailureIsFatal(t *testing.T) {
	expectFatal(t, program(callExpr("to_int", strLit("never a number"))), "always fails")
}

func TestFoldHooksReadAmbientConfig(t *testing.T) {
	type scaleKey struct{}
	fns := stdlib.NewRegistry()
	fns.Register(registry.Func{
		Name:   "scale",
		Params: []registry.Param{{Name: "value", Kind: kind.NewInteger(), Required: true}},
		Return: kind.NewInteger(),
		Fold: func(cfg registry.Config, args []value.Value) (value.Value, error) {
			factor := int64(1)
			if cfg != nil {
				if v, ok := cfg.Get(scaleKey{}); ok {
					factor = v.(int64)
				}
			}
			return value.NewInt(args[0].(value.Int).Value * factor), nil
		},
		Call: func(_ *runtime.Context, args []value.Value) (value.Value, error) {
			return args[0], nil
		},
	})

	cfg := compiler.NewConfig()
	cfg.Set(scaleKey{}, int64(3))
	prog, diags := compiler.Compile(program(callExpr("scale", intLit(7))), fns, compiler.WithConfig(cfg))
	if prog == nil {
		t.Fatalf("compilation failed:\n%s", diag.FormatAll(diags, true))
	}
	folded, ok := prog.Exprs[0].(*runtime.Literal)
	if !ok {
		t.Fatalf("literal-arg call should fold, got %T", prog.Exprs[0])
	}
	if !value.DeepEqual(folded.Value, value.NewInt(21)) {
		t.Fatalf("folded to %s", value.ToJSONString(folded.Value))
	}
}

// --- diagnostics ---

func TestUndefinedVariableIsFatal(t *testing.T) {
	expectFatal(t, program(varQ("ghost")), `undefined variable "ghost"`)
}

func TestImpossibleOperandsAreFatal(t *testing.T) {
	expectFatal(t, program(binExpr(ast.OpAdd, intLit(1), boolLit(true))), "invalid operands")
}

func TestNonBooleanConditionIsFatal(t *testing.T) {
	p := program(&ast.IfStatement{Cond: intLit(1), Then: block(nullLit())})
	expectFatal(t, p, "if condition must be a boolean")
}

func TestNonStringAbortMessageIsFatal(t *testing.T) {
	expectFatal(t, program(&ast.Abort{Message: intLit(3)}), "abort message must be a string")
}

func TestInvalidRegexIsFatal(t *testing.T) {
	expectFatal(t, program(&ast.RegexLiteral{Pattern: "("}), "invalid regular expression")
}

func TestUnknownFunctionIsFatal(t *testing.T) {
	expectFatal(t, program(callExpr("no_such_function")), "unknown function")
}

func TestArityMismatchIsFatal(t *testing.T) {
	expectFatal(t, program(callExpr("upcase")), "argument")
}

func TestGuaranteedArgMismatchIsFatal(t *testing.T) {
	expectFatal(t, program(callExpr("upcase", intLit(1))), "upcase")
}

func TestSameDualTargetIsFatal(t *testing.T) {
	p := program(&ast.Assignment{
		Target:    varTarget("x"),
		ErrTarget: varTarget("x"),
		Value:     callExpr("to_int", strLit("1")),
	})
	expectFatal(t, p, "must differ")
}

func TestDiagnosticsKeepVisitOrder(t *testing.T) {
	p := program(
		varQ("first"),
		varQ("second"),
	)
	_, diags := compile(t, p)
	if len(diags) < 2 {
		t.Fatalf("expected two diagnostics, got %d", len(diags))
	}
	if !strings.Contains(diags[0].Message, "first") || !strings.Contains(diags[1].Message, "second") {
		t.Fatalf("diagnostics out of visit order:\n%s", diag.FormatAll(diags, true))
	}
}

func TestCompilationContinuesPastFatal(t *testing.T) {
	// Both errors surface in a single pass.
	p := program(
		varQ("ghost"),
		binExpr(ast.OpAdd, intLit(1), boolLit(true)),
	)
	_, diags := compile(t, p)
	fatals := 0
	for _, d := range diags {
		if d.Severity == diag.SeverityError {
			fatals++
		}
	}
	if fatals < 2 {
		t.Fatalf("want both errors reported, got:\n%s", diag.FormatAll(diags, true))
	}
}

// --- capability set ---

func TestDisabledNodeKindIsFatal(t *testing.T) {
	nodes := compiler.AllNodes()
	nodes["Abort"] = false
	p := program(&ast.Abort{})
	prog, diags := compiler.Compile(p, stdlib.NewRegistry(), compiler.WithNodes(nodes))
	if prog != nil {
		t.Fatal("disabled node kind must fail compilation")
	}
	found := false
	for _, d := range diags {
		if strings.Contains(d.Message, "not enabled") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing capability diagnostic:\n%s", diag.FormatAll(diags, true))
	}
}

// --- variables ---

func TestVariableFlowThroughProgram(t *testing.T) {
	// x = .count; .doubled = x * 2
	prog := compileOK(t, program(
		assignVar("x", eventQ("count")),
		assignEvent("doubled", binExpr(ast.OpMul, varQ("x"), intLit(2))),
	))
	ctx, _, err := runOn(t, prog, `{"count":21}`)
	if err != nil {
		t.Fatal(err)
	}
	obj := ctx.Target.(value.Object)
	if !value.DeepEqual(obj.Fields["doubled"], value.NewInt(42)) {
		t.Fatalf("event = %s", value.ToJSONString(ctx.Target))
	}
}

func TestVariablesDoNotLeakIntoOutput(t *testing.T) {
	prog := compileOK(t, program(
		assignVar("tmp", intLit(1)),
		assignEvent("out", varQ("tmp")),
	))
	ctx, _, err := runOn(t, prog, `{}`)
	if err != nil {
		t.Fatal(err)
	}
	if got := value.ToJSONString(ctx.Target); got != `{"out":1}` {
		t.Fatalf("variables must not appear in the event: %s", got)
	}
}

func TestBlockProducesLastValue(t *testing.T) {
	prog := compileOK(t, program(block(intLit(1), strLit("last"))))
	_, v, err := runOn(t, prog, `{}`)
	if err != nil {
		t.Fatal(err)
	}
	if !value.DeepEqual(v, value.NewBytes("last")) {
		t.Fatalf("got %s", value.ToJSONString(v))
	}
}
