package runtime_test

import (
	"errors"
	"testing"
	"time"

	"github.com/remexlang/remex/pkg/ast"
	"github.com/remexlang/remex/pkg/kind"
	"github.com/remexlang/remex/pkg/path"
	"github.com/remexlang/remex/pkg/runtime"
	"github.com/remexlang/remex/pkg/value"
)

// --- helpers ---

func lit(v value.Value) runtime.Expr {
	return &runtime.Literal{TD: kind.Infallible(value.KindOf(v)), Value: v}
}

func bin(op ast.BinaryOp, left, right runtime.Expr) *runtime.Binary {
	return &runtime.Binary{TD: kind.Fallible(kind.NewAny()), Op: op, Left: left, Right: right}
}

func resolve(t *testing.T, e runtime.Expr) value.Value {
	t.Helper()
	v, err := e.Resolve(runtime.NewContext(nil))
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	return v
}

func expectValue(t *testing.T, got, want value.Value) {
	t.Helper()
	if !value.DeepEqual(got, want) {
		t.Fatalf("got %s, want %s", value.ToJSONString(got), value.ToJSONString(want))
	}
}

func expectRuntimeError(t *testing.T, e runtime.Expr) *runtime.Error {
	t.Helper()
	_, err := e.Resolve(runtime.NewContext(nil))
	var rtErr *runtime.Error
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected a runtime error, got %v", err)
	}
	return rtErr
}

// failing is a call node that always produces a runtime error.
func failing(msg string) runtime.Expr {
	return &runtime.Call{
		TD:   kind.Fallible(kind.NewAny()),
		Name: "fail",
		Func: func(_ *runtime.Context, _ []value.Value) (value.Value, error) {
			return nil, &runtime.Error{Message: msg}
		},
	}
}

// counting is a call node that records how many times it ran.
func counting(v value.Value, n *int) runtime.Expr {
	return &runtime.Call{
		TD:   kind.Infallible(value.KindOf(v)),
		Name: "count",
		Func: func(_ *runtime.Context, _ []value.Value) (value.Value, error) {
			*n++
			return v, nil
		},
	}
}

// --- arithmetic ---

func TestAddIntegers(t *testing.T) {
	expectValue(t, resolve(t, bin(ast.OpAdd, lit(value.NewInt(2)), lit(value.NewInt(3)))), value.NewInt(5))
}

func TestAddMixedNumericPromotesToFloat(t *testing.T) {
	got := resolve(t, bin(ast.OpAdd, lit(value.NewInt(2)), lit(value.NewFloat(0.5))))
	expectValue(t, got, value.NewFloat(2.5))
}

func TestAddConcatenatesStrings(t *testing.T) {
	got := resolve(t, bin(ast.OpAdd, lit(value.NewBytes("foo")), lit(value.NewBytes("bar"))))
	expectValue(t, got, value.NewBytes("foobar"))
}

func TestAddStringAndIntFails(t *testing.T) {
	expectRuntimeError(t, bin(ast.OpAdd, lit(value.NewBytes("x")), lit(value.NewInt(1))))
}

func TestDivisionAlwaysFloat(t *testing.T) {
	got := resolve(t, bin(ast.OpDiv, lit(value.NewInt(7)), lit(value.NewInt(2))))
	expectValue(t, got, value.NewFloat(3.5))
}

func TestDivisionByZeroFails(t *testing.T) {
	expectRuntimeError(t, bin(ast.OpDiv, lit(value.NewInt(1)), lit(value.NewInt(0))))
	expectRuntimeError(t, bin(ast.OpDiv, lit(value.NewFloat(1)), lit(value.NewFloat(0))))
}

func TestIntegerArithmeticStaysInteger(t *testing.T) {
	expectValue(t, resolve(t, bin(ast.OpSub, lit(value.NewInt(5)), lit(value.NewInt(2)))), value.NewInt(3))
	expectValue(t, resolve(t, bin(ast.OpMul, lit(value.NewInt(4)), lit(value.NewInt(3)))), value.NewInt(12))
	expectValue(t, resolve(t, bin(ast.OpMod, lit(value.NewInt(7)), lit(value.NewInt(3)))), value.NewInt(1))
}

func TestModuloByZeroFails(t *testing.T) {
	expectRuntimeError(t, bin(ast.OpMod, lit(value.NewInt(1)), lit(value.NewInt(0))))
}

// --- comparison and equality ---

func TestComparisonCrossPromotes(t *testing.T) {
	got := resolve(t, bin(ast.OpGt, lit(value.NewInt(3)), lit(value.NewFloat(2.5))))
	expectValue(t, got, value.NewBool(true))
}

func TestComparisonStringsLexicographic(t *testing.T) {
	got := resolve(t, bin(ast.OpLt, lit(value.NewBytes("abc")), lit(value.NewBytes("abd"))))
	expectValue(t, got, value.NewBool(true))
}

func TestComparisonMixedTypesFails(t *testing.T) {
	expectRuntimeError(t, bin(ast.OpLt, lit(value.NewBytes("a")), lit(value.NewInt(1))))
}

func TestEqualityIsDeep(t *testing.T) {
	left := lit(value.NewArray([]value.Value{value.NewInt(1), value.NewBytes("a")}))
	right := lit(value.NewArray([]value.Value{value.NewInt(1), value.NewBytes("a")}))
	expectValue(t, resolve(t, bin(ast.OpEqEq, left, right)), value.NewBool(true))
	expectValue(t, resolve(t, bin(ast.OpNeq, left, right)), value.NewBool(false))
}

func TestEqualityCrossPromotesNumbers(t *testing.T) {
	got := resolve(t, bin(ast.OpEqEq, lit(value.NewInt(2)), lit(value.NewFloat(2.0))))
	expectValue(t, got, value.NewBool(true))
}

func TestEqualityDifferentTypesIsFalse(t *testing.T) {
	got := resolve(t, bin(ast.OpEqEq, lit(value.NewBytes("1")), lit(value.NewInt(1))))
	expectValue(t, got, value.NewBool(false))
}

// --- logical ---

func TestLogicalShortCircuitAnd(t *testing.T) {
	runs := 0
	e := bin(ast.OpAnd, lit(value.NewBool(false)), counting(value.NewBool(true), &runs))
	expectValue(t, resolve(t, e), value.NewBool(false))
	if runs != 0 {
		t.Fatal("right operand of && must not run when left is false")
	}
}

func TestLogicalShortCircuitOr(t *testing.T) {
	runs := 0
	e := bin(ast.OpOr, lit(value.NewBool(true)), counting(value.NewBool(false), &runs))
	expectValue(t, resolve(t, e), value.NewBool(true))
	if runs != 0 {
		t.Fatal("right operand of || must not run when left is true")
	}
}

func TestLogicalShortCircuitSkipsRightError(t *testing.T) {
	e := bin(ast.OpAnd, lit(value.NewBool(false)), failing("boom"))
	expectValue(t, resolve(t, e), value.NewBool(false))
}

func TestLogicalNonBooleanFails(t *testing.T) {
	expectRuntimeError(t, bin(ast.OpAnd, lit(value.NewInt(1)), lit(value.NewBool(true))))
	expectRuntimeError(t, bin(ast.OpOr, lit(value.NewBool(false)), lit(value.NewInt(1))))
}

// --- merge and containment ---

func TestMergeRightWins(t *testing.T) {
	left := lit(value.NewObject(map[string]value.Value{"a": value.NewInt(1), "b": value.NewInt(2)}))
	right := lit(value.NewObject(map[string]value.Value{"b": value.NewInt(20), "c": value.NewInt(3)}))
	got := resolve(t, bin(ast.OpMerge, left, right))
	want := value.NewObject(map[string]value.Value{
		"a": value.NewInt(1), "b": value.NewInt(20), "c": value.NewInt(3),
	})
	expectValue(t, got, want)
}

func TestMergeIsShallow(t *testing.T) {
	left := lit(value.NewObject(map[string]value.Value{
		"nested": value.NewObject(map[string]value.Value{"keep": value.NewInt(1)}),
	}))
	right := lit(value.NewObject(map[string]value.Value{
		"nested": value.NewObject(map[string]value.Value{"new": value.NewInt(2)}),
	}))
	got := resolve(t, bin(ast.OpMerge, left, right)).(value.Object)
	nested := got.Fields["nested"].(value.Object)
	if _, ok := nested.Fields["keep"]; ok {
		t.Fatal("merge should be shallow: nested objects replaced, not merged")
	}
}

func TestInArrayMembership(t *testing.T) {
	arr := lit(value.NewArray([]value.Value{value.NewInt(1), value.NewBytes("x")}))
	expectValue(t, resolve(t, bin(ast.OpIn, lit(value.NewBytes("x")), arr)), value.NewBool(true))
	expectValue(t, resolve(t, bin(ast.OpIn, lit(value.NewInt(9)), arr)), value.NewBool(false))
}

func TestInSubstring(t *testing.T) {
	got := resolve(t, bin(ast.OpIn, lit(value.NewBytes("ell")), lit(value.NewBytes("hello"))))
	expectValue(t, got, value.NewBool(true))
}

func TestInObjectKey(t *testing.T) {
	obj := lit(value.NewObject(map[string]value.Value{"k": value.NewNull()}))
	expectValue(t, resolve(t, bin(ast.OpIn, lit(value.NewBytes("k")), obj)), value.NewBool(true))
	expectValue(t, resolve(t, bin(ast.OpIn, lit(value.NewBytes("z")), obj)), value.NewBool(false))
}

// --- unary ---

func TestUnaryNeg(t *testing.T) {
	e := &runtime.Unary{TD: kind.Infallible(kind.NewInteger()), Op: ast.OpNeg, Operand: lit(value.NewInt(4))}
	expectValue(t, resolve(t, e), value.NewInt(-4))
}

func TestUnaryNotRequiresBoolean(t *testing.T) {
	good := &runtime.Unary{TD: kind.Infallible(kind.NewBoolean()), Op: ast.OpNot, Operand: lit(value.NewBool(false))}
	expectValue(t, resolve(t, good), value.NewBool(true))

	bad := &runtime.Unary{TD: kind.Infallible(kind.NewBoolean()), Op: ast.OpNot, Operand: lit(value.NewInt(1))}
	expectRuntimeError(t, bad)
}

// --- query and assignment ---

func eventTarget(segs ...path.Segment) *runtime.Target {
	out := make([]runtime.SegmentExpr, len(segs))
	for i, s := range segs {
		out[i] = runtime.SegmentExpr{Static: s}
	}
	return &runtime.Target{Root: ast.RootEvent, Segments: out}
}

func TestAssignThenQuery(t *testing.T) {
	ctx := runtime.NewContext(nil)
	assign := &runtime.Assign{
		TD:     kind.Infallible(kind.NewInteger()),
		Target: eventTarget(path.Field{Name: "a"}, path.Field{Name: "b"}),
		Value:  lit(value.NewInt(42)),
	}
	if _, err := assign.Resolve(ctx); err != nil {
		t.Fatal(err)
	}

	q := &runtime.Query{
		TD:   kind.Infallible(kind.NewInteger()),
		Root: ast.RootEvent,
		Segments: []runtime.SegmentExpr{
			{Static: path.Field{Name: "a"}},
			{Static: path.Field{Name: "b"}},
		},
	}
	v, err := q.Resolve(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expectValue(t, v, value.NewInt(42))
}

func TestVariableAssignAndRead(t *testing.T) {
	ctx := runtime.NewContext(nil)
	assign := &runtime.Assign{
		TD:     kind.Infallible(kind.NewBytes()),
		Target: &runtime.Target{Root: ast.RootVariable, Name: "x"},
		Value:  lit(value.NewBytes("v")),
	}
	if _, err := assign.Resolve(ctx); err != nil {
		t.Fatal(err)
	}
	q := &runtime.Query{TD: kind.Infallible(kind.NewBytes()), Root: ast.RootVariable, Name: "x"}
	v, err := q.Resolve(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expectValue(t, v, value.NewBytes("v"))
}

func TestQueryReturnsIndependentContainers(t *testing.T) {
	ctx := runtime.NewContext(value.NewObject(map[string]value.Value{
		"a": value.NewObject(map[string]value.Value{"k": value.NewInt(1)}),
	}))
	q := &runtime.Query{
		TD:       kind.Infallible(kind.NewObject()),
		Root:     ast.RootEvent,
		Segments: []runtime.SegmentExpr{{Static: path.Field{Name: "a"}}},
	}
	v, err := q.Resolve(ctx)
	if err != nil {
		t.Fatal(err)
	}
	v.(value.Object).Fields["k"] = value.NewBytes("oops")

	a := ctx.Target.(value.Object).Fields["a"].(value.Object)
	expectValue(t, a.Fields["k"], value.NewInt(1))
}

func TestUnsetVariableReadsNull(t *testing.T) {
	ctx := runtime.NewContext(nil)
	q := &runtime.Query{TD: kind.Infallible(kind.NewNull()), Root: ast.RootVariable, Name: "missing"}
	v, err := q.Resolve(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expectValue(t, v, value.NewNull())
}

func TestDualAssignCatchesError(t *testing.T) {
	ctx := runtime.NewContext(nil)
	assign := &runtime.Assign{
		TD:        kind.Infallible(kind.Of(kind.Integer | kind.Null)),
		Target:    eventTarget(path.Field{Name: "ok"}),
		ErrTarget: eventTarget(path.Field{Name: "err"}),
		Value:     failing("it broke"),
	}
	if _, err := assign.Resolve(ctx); err != nil {
		t.Fatalf("dual assignment must catch the error, got %v", err)
	}

	obj := ctx.Target.(value.Object)
	expectValue(t, obj.Fields["ok"], value.NewNull())
	expectValue(t, obj.Fields["err"], value.NewBytes("it broke"))
}

func TestDualAssignUsesDefault(t *testing.T) {
	ctx := runtime.NewContext(nil)
	assign := &runtime.Assign{
		TD:        kind.Infallible(kind.NewInteger()),
		Target:    eventTarget(path.Field{Name: "ok"}),
		ErrTarget: eventTarget(path.Field{Name: "err"}),
		Default:   lit(value.NewInt(-1)),
		Value:     failing("nope"),
	}
	if _, err := assign.Resolve(ctx); err != nil {
		t.Fatal(err)
	}
	obj := ctx.Target.(value.Object)
	expectValue(t, obj.Fields["ok"], value.NewInt(-1))
}

func TestDualAssignSuccessClearsErrTarget(t *testing.T) {
	ctx := runtime.NewContext(nil)
	assign := &runtime.Assign{
		TD:        kind.Infallible(kind.NewInteger()),
		Target:    eventTarget(path.Field{Name: "ok"}),
		ErrTarget: eventTarget(path.Field{Name: "err"}),
		Value:     lit(value.NewInt(9)),
	}
	if _, err := assign.Resolve(ctx); err != nil {
		t.Fatal(err)
	}
	obj := ctx.Target.(value.Object)
	expectValue(t, obj.Fields["ok"], value.NewInt(9))
	expectValue(t, obj.Fields["err"], value.NewNull())
}

func TestDualAssignDoesNotCatchAbort(t *testing.T) {
	ctx := runtime.NewContext(nil)
	assign := &runtime.Assign{
		TD:        kind.Infallible(kind.NewNull()),
		Target:    eventTarget(path.Field{Name: "ok"}),
		ErrTarget: eventTarget(path.Field{Name: "err"}),
		Value:     &runtime.AbortExpr{},
	}
	_, err := assign.Resolve(ctx)
	var abort *runtime.Abort
	if !errors.As(err, &abort) {
		t.Fatalf("abort must unwind through dual assignment, got %v", err)
	}
}

// --- if, abort, program ---

func TestIfElseBranches(t *testing.T) {
	e := &runtime.If{
		TD:   kind.Infallible(kind.NewBytes()),
		Cond: lit(value.NewBool(false)),
		Then: lit(value.NewBytes("then")),
		Else: lit(value.NewBytes("else")),
	}
	expectValue(t, resolve(t, e), value.NewBytes("else"))
}

func TestIfWithoutElseProducesNull(t *testing.T) {
	e := &runtime.If{
		TD:   kind.Infallible(kind.Of(kind.Bytes | kind.Null)),
		Cond: lit(value.NewBool(false)),
		Then: lit(value.NewBytes("then")),
	}
	expectValue(t, resolve(t, e), value.NewNull())
}

func TestIfNonBooleanCondFails(t *testing.T) {
	e := &runtime.If{
		TD:   kind.Fallible(kind.NewAny()),
		Cond: lit(value.NewInt(1)),
		Then: lit(value.NewNull()),
	}
	expectRuntimeError(t, e)
}

func TestAbortStopsProgramKeepingMutations(t *testing.T) {
	runs := 0
	prog := &runtime.Program{Exprs: []runtime.Expr{
		&runtime.Assign{
			TD:     kind.Infallible(kind.NewInteger()),
			Target: eventTarget(path.Field{Name: "before"}),
			Value:  lit(value.NewInt(1)),
		},
		&runtime.AbortExpr{Message: lit(value.NewBytes("stop here"))},
		counting(value.NewInt(0), &runs),
	}}

	ctx := runtime.NewContext(nil)
	_, err := prog.Resolve(ctx)
	var abort *runtime.Abort
	if !errors.As(err, &abort) {
		t.Fatalf("want abort, got %v", err)
	}
	if abort.Error() != "aborted: stop here" {
		t.Errorf("abort message = %q", abort.Error())
	}
	if runs != 0 {
		t.Error("expressions after abort must not run")
	}
	obj := ctx.Target.(value.Object)
	expectValue(t, obj.Fields["before"], value.NewInt(1))
}

func TestProgramResultIsLastExpression(t *testing.T) {
	prog := &runtime.Program{Exprs: []runtime.Expr{
		lit(value.NewInt(1)),
		lit(value.NewBytes("final")),
	}}
	v, err := prog.Resolve(runtime.NewContext(nil))
	if err != nil {
		t.Fatal(err)
	}
	expectValue(t, v, value.NewBytes("final"))
}

func TestProgramDeterministic(t *testing.T) {
	prog := &runtime.Program{Exprs: []runtime.Expr{
		&runtime.Assign{
			TD:     kind.Infallible(kind.NewInteger()),
			Target: eventTarget(path.Field{Name: "n"}),
			Value:  bin(ast.OpMul, lit(value.NewInt(6)), lit(value.NewInt(7))),
		},
	}}

	first := ""
	for i := 0; i < 3; i++ {
		ctx := runtime.NewContext(value.NewObject(map[string]value.Value{"seed": value.NewInt(1)}))
		if _, err := prog.Resolve(ctx); err != nil {
			t.Fatal(err)
		}
		got := value.ToJSONString(ctx.Target)
		if first == "" {
			first = got
		} else if got != first {
			t.Fatalf("run %d produced %s, want %s", i, got, first)
		}
	}
}

func TestProgramCloneIsIndependent(t *testing.T) {
	orig := &runtime.Program{Exprs: []runtime.Expr{
		&runtime.Assign{
			TD:     kind.Infallible(kind.NewInteger()),
			Target: eventTarget(path.Field{Name: "n"}),
			Value:  lit(value.NewInt(1)),
		},
	}}
	copied := orig.Clone()

	ctx1 := runtime.NewContext(nil)
	ctx2 := runtime.NewContext(nil)
	if _, err := orig.Resolve(ctx1); err != nil {
		t.Fatal(err)
	}
	if _, err := copied.Resolve(ctx2); err != nil {
		t.Fatal(err)
	}
	if !value.DeepEqual(ctx1.Target, ctx2.Target) {
		t.Fatal("clone diverged from the original")
	}
}

func TestContextWithNowPinsClock(t *testing.T) {
	pinned := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := runtime.NewContext(nil).WithNow(pinned)
	if !ctx.Now().Equal(pinned) {
		t.Fatalf("Now() = %v, want %v", ctx.Now(), pinned)
	}
}

func TestIsTerminate(t *testing.T) {
	if !runtime.IsTerminate(&runtime.Error{Message: "x"}) {
		t.Error("runtime error is a termination signal")
	}
	if !runtime.IsTerminate(&runtime.Abort{}) {
		t.Error("abort is a termination signal")
	}
	if runtime.IsTerminate(errors.New("plain")) {
		t.Error("plain errors are not termination signals")
	}
}
