package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/arbor-lang/arbor/internal/lattice"
	"github.com/arbor-lang/arbor/internal/methods"
)

var sp = ir.Span{}

func newTestEngine() *Engine {
	return NewEngine(methods.New(), lattice.NewRegistry())
}

func TestInferFunctionSimpleArithmeticReturnsInt64(t *testing.T) {
	body := ir.NewBlock(sp,
		ir.NewReturn(ir.NewBinary(ir.OpAdd, ir.NewIdent("a", sp), ir.NewIdent("b", sp), sp), sp),
	)
	fn := ir.NewFunction("add", []ir.Param{{Name: "a"}, {Name: "b"}}, body, sp)

	e := newTestEngine()
	params := map[string]*lattice.LatticeType{
		"a": lattice.Concrete(lattice.CInt64),
		"b": lattice.Concrete(lattice.CInt64),
	}
	res := e.InferFunction(fn, params)
	require.NotNil(t, res.Return)
	assert.Equal(t, lattice.CInt64, res.Return.ConcreteKind())
}

func TestInferFunctionFallsOffEndReturnsNothing(t *testing.T) {
	body := ir.NewBlock(sp, ir.NewExprStmt(ir.NewInt(1, sp), sp))
	fn := ir.NewFunction("noop", nil, body, sp)

	e := newTestEngine()
	res := e.InferFunction(fn, nil)
	assert.Equal(t, lattice.CNothing, res.Return.ConcreteKind())
}

func TestInferFunctionIfElseJoinsBranchReturnTypes(t *testing.T) {
	thenBlock := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(1, sp), sp))
	elseBlock := ir.NewBlock(sp, ir.NewReturn(ir.NewString("x", sp), sp))
	ifStmt := ir.NewIf(ir.NewIdent("flag", sp), thenBlock, elseBlock, sp)
	body := ir.NewBlock(sp, ifStmt)
	fn := ir.NewFunction("pick", []ir.Param{{Name: "flag"}}, body, sp)

	e := newTestEngine()
	res := e.InferFunction(fn, map[string]*lattice.LatticeType{"flag": lattice.Concrete(lattice.CBool)})
	require.NotNil(t, res.Return)
	assert.Equal(t, lattice.KindUnion, res.Return.Kind(), "joining Int64 and String return types should form a union")
}

func TestInferFunctionWhileLoopConvergesWithoutHittingIterCap(t *testing.T) {
	// while flag { x = 1 }
	whileStmt := &ir.WhileStmt{
		Cond: ir.NewIdent("flag", sp),
		Body: ir.NewBlock(sp, ir.NewAssign(ir.NewIdent("x", sp), ir.NewInt(1, sp), sp)),
	}
	body := ir.NewBlock(sp, whileStmt)
	fn := ir.NewFunction("loop", []ir.Param{{Name: "flag"}, {Name: "x"}}, body, sp)

	e := newTestEngine()
	res := e.InferFunction(fn, map[string]*lattice.LatticeType{
		"flag": lattice.Concrete(lattice.CBool),
		"x":    lattice.Concrete(lattice.CInt64),
	})
	assert.Empty(t, e.Diags.All(), "a single-assignment loop body should converge on the first fixpoint pass")
	assert.Equal(t, lattice.CNothing, res.Return.ConcreteKind())
}

func TestInterpretTryMergesBodyAndCatchAndAlwaysRunsFinally(t *testing.T) {
	tryStmt := &ir.TryStmt{
		Body:        ir.NewBlock(sp, ir.NewReturn(ir.NewInt(1, sp), sp)),
		HasCatch:    true,
		CatchVar:    "e",
		CatchBody:   ir.NewBlock(sp, ir.NewReturn(ir.NewString("err", sp), sp)),
		HasFinally:  true,
		FinallyBody: ir.NewBlock(sp, ir.NewExprStmt(ir.NewInt(0, sp), sp)),
	}
	body := ir.NewBlock(sp, tryStmt)
	fn := ir.NewFunction("f", nil, body, sp)

	e := newTestEngine()
	res := e.InferFunction(fn, nil)
	require.NotNil(t, res.Return)
	assert.Equal(t, lattice.KindUnion, res.Return.Kind())
}

func TestResolveTypeExprMapsPrimitiveNames(t *testing.T) {
	e := newTestEngine()
	got := e.resolveTypeExpr(&ir.TypeExpr{Name: "Float64"})
	assert.Equal(t, lattice.CFloat64, got.ConcreteKind())
}

func TestResolveTypeExprArrayDims(t *testing.T) {
	e := newTestEngine()
	got := e.resolveTypeExpr(&ir.TypeExpr{Name: "Int64", Dims: 1})
	assert.Equal(t, lattice.CArray, got.ConcreteKind())
	assert.Equal(t, lattice.CInt64, got.Elem().ConcreteKind())
}

func TestResolveTypeExprUnknownNameIsAbstract(t *testing.T) {
	e := newTestEngine()
	got := e.resolveTypeExpr(&ir.TypeExpr{Name: "Widget"})
	assert.Equal(t, lattice.KindConcrete, got.Kind())
	assert.Equal(t, lattice.CAbstract, got.ConcreteKind())
}

func TestResolveTypeExprNilIsAny(t *testing.T) {
	e := newTestEngine()
	assert.True(t, e.resolveTypeExpr(nil).IsTop())
}
