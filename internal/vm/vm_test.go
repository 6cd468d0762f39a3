package vm

import (
	"testing"

	"github.com/arbor-lang/arbor/internal/bytecode"
	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sp = ir.Span{}

func compileFunc(t *testing.T, f *ir.Function) *bytecode.Module {
	t.Helper()
	c := bytecode.NewCompiler()
	m, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{f}})
	require.NoError(t, err)
	return m
}

func TestRunSimpleArithmetic(t *testing.T) {
	body := ir.NewBlock(sp,
		ir.NewReturn(ir.NewBinary(ir.OpAdd, ir.NewIdent("a", sp), ir.NewIdent("b", sp), sp), sp),
	)
	f := ir.NewFunction("add", []ir.Param{{Name: "a"}, {Name: "b"}}, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	result, err := machine.Run("add", []Value{I64(3), I64(4)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.I)
}

func TestRunIfElse(t *testing.T) {
	then := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(1, sp), sp))
	els := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(2, sp), sp))
	cond := ir.NewBinary(ir.OpGt, ir.NewIdent("a", sp), ir.NewInt(0, sp), sp)
	body := ir.NewBlock(sp, ir.NewIf(cond, then, els, sp))
	f := ir.NewFunction("sign", []ir.Param{{Name: "a"}}, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	pos, err := machine.Run("sign", []Value{I64(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos.I)

	machine2 := New(m, nil)
	neg, err := machine2.Run("sign", []Value{I64(-5)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), neg.I)
}

func TestRunWhileLoopCountdown(t *testing.T) {
	cond := ir.NewBinary(ir.OpGt, ir.NewIdent("n", sp), ir.NewInt(0, sp), sp)
	decr := ir.NewAssign(ir.NewIdent("n", sp), ir.NewBinary(ir.OpSub, ir.NewIdent("n", sp), ir.NewInt(1, sp), sp), sp)
	loopBody := ir.NewBlock(sp, decr)
	body := ir.NewBlock(sp, &ir.WhileStmt{Cond: cond, Body: loopBody}, ir.NewReturn(ir.NewIdent("n", sp), sp))
	f := ir.NewFunction("countdown", []ir.Param{{Name: "n"}}, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	result, err := machine.Run("countdown", []Value{I64(10)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.I)
}

func TestRunForEachOverArray(t *testing.T) {
	// fn sumAll(xs) { total = 0; for x in xs { total = total + x } return total }
	declTotal := &ir.LocalDeclStmt{Name: "total", Init: ir.NewInt(0, sp)}
	addStmt := ir.NewAssign(ir.NewIdent("total", sp),
		ir.NewBinary(ir.OpAdd, ir.NewIdent("total", sp), ir.NewIdent("x", sp), sp), sp)
	forStmt := &ir.ForStmt{Var: "x", Iterable: ir.NewIdent("xs", sp), Body: ir.NewBlock(sp, addStmt)}
	body := ir.NewBlock(sp, declTotal, forStmt, ir.NewReturn(ir.NewIdent("total", sp), sp))
	f := ir.NewFunction("sumAll", []ir.Param{{Name: "xs"}}, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	arr := Array([]Value{I64(1), I64(2), I64(3)}, []int{3})
	result, err := machine.Run("sumAll", []Value{arr})
	require.NoError(t, err)
	assert.Equal(t, int64(6), result.I)
}

func TestRunForLoopBreakLeavesStackBalanced(t *testing.T) {
	// fn firstOver(xs, limit) {
	//   found = 0
	//   for x in xs {
	//     if x > limit { found = x; break }
	//   }
	//   return found + 1
	// }
	declFound := &ir.LocalDeclStmt{Name: "found", Init: ir.NewInt(0, sp)}
	setFound := ir.NewAssign(ir.NewIdent("found", sp), ir.NewIdent("x", sp), sp)
	ifBody := ir.NewBlock(sp, setFound, &ir.BreakStmt{})
	cond := ir.NewBinary(ir.OpGt, ir.NewIdent("x", sp), ir.NewIdent("limit", sp), sp)
	ifStmt := ir.NewIf(cond, ifBody, nil, sp)
	forStmt := &ir.ForStmt{Var: "x", Iterable: ir.NewIdent("xs", sp), Body: ir.NewBlock(sp, ifStmt)}
	ret := ir.NewReturn(ir.NewBinary(ir.OpAdd, ir.NewIdent("found", sp), ir.NewInt(1, sp), sp), sp)
	body := ir.NewBlock(sp, declFound, forStmt, ret)
	f := ir.NewFunction("firstOver", []ir.Param{{Name: "xs"}, {Name: "limit"}}, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	arr := Array([]Value{I64(1), I64(2), I64(9), I64(4)}, []int{4})
	result, err := machine.Run("firstOver", []Value{arr, I64(5)})
	require.NoError(t, err)
	assert.Equal(t, int64(10), result.I) // found=9, +1

	// A second run, on a fresh VM, with a limit no element exceeds covers
	// the path where the loop ends without a break.
	machine2 := New(m, nil)
	result2, err := machine2.Run("firstOver", []Value{arr, I64(100)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result2.I) // never exceeds limit, found stays 0
}

func TestRunForLoopContinueSkipsRestOfBody(t *testing.T) {
	// fn sumOdds(xs) {
	//   total = 0
	//   for x in xs {
	//     if x == 0 { continue }
	//     total = total + x
	//   }
	//   return total
	// }
	declTotal := &ir.LocalDeclStmt{Name: "total", Init: ir.NewInt(0, sp)}
	isZero := ir.NewBinary(ir.OpEq, ir.NewIdent("x", sp), ir.NewInt(0, sp), sp)
	skipBody := ir.NewBlock(sp, &ir.ContinueStmt{})
	skipIf := ir.NewIf(isZero, skipBody, nil, sp)
	addStmt := ir.NewAssign(ir.NewIdent("total", sp),
		ir.NewBinary(ir.OpAdd, ir.NewIdent("total", sp), ir.NewIdent("x", sp), sp), sp)
	loopBody := ir.NewBlock(sp, skipIf, addStmt)
	forStmt := &ir.ForStmt{Var: "x", Iterable: ir.NewIdent("xs", sp), Body: loopBody}
	body := ir.NewBlock(sp, declTotal, forStmt, ir.NewReturn(ir.NewIdent("total", sp), sp))
	f := ir.NewFunction("sumOdds", []ir.Param{{Name: "xs"}}, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	arr := Array([]Value{I64(1), I64(0), I64(3), I64(0), I64(5)}, []int{5})
	result, err := machine.Run("sumOdds", []Value{arr})
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.I)
}

func TestRunTryCatchRecoversFromThrow(t *testing.T) {
	// fn safe() { try { panic("boom") } catch e { return 99 } }
	tryBody := ir.NewBlock(sp, ir.NewExprStmt(&ir.BuiltinExpr{Name: "panic", Args: []ir.Expr{ir.NewString("boom", sp)}}, sp))
	catchBody := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(99, sp), sp))
	tryStmt := &ir.TryStmt{Body: tryBody, HasCatch: true, CatchVar: "e", CatchBody: catchBody}
	body := ir.NewBlock(sp, tryStmt, ir.NewReturn(ir.NewInt(0, sp), sp))
	f := ir.NewFunction("safe", nil, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	result, err := machine.Run("safe", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(99), result.I)
}

func TestRunTryFinallyAlwaysRuns(t *testing.T) {
	// fn f() { total = 0; try { total = 1 } finally { total = total + 10 } return total }
	declTotal := &ir.LocalDeclStmt{Name: "total", Init: ir.NewInt(0, sp)}
	setOne := ir.NewAssign(ir.NewIdent("total", sp), ir.NewInt(1, sp), sp)
	tryBody := ir.NewBlock(sp, setOne)
	finallyBody := ir.NewBlock(sp, ir.NewAssign(ir.NewIdent("total", sp),
		ir.NewBinary(ir.OpAdd, ir.NewIdent("total", sp), ir.NewInt(10, sp), sp), sp))
	tryStmt := &ir.TryStmt{Body: tryBody, HasFinally: true, FinallyBody: finallyBody}
	body := ir.NewBlock(sp, declTotal, tryStmt, ir.NewReturn(ir.NewIdent("total", sp), sp))
	f := ir.NewFunction("f", nil, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	result, err := machine.Run("f", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), result.I)
}

func TestRunTryFinallyRunsWhenCatchBodyItselfThrows(t *testing.T) {
	// fn f() {
	//   total = 0
	//   try {
	//     try { panic("first") } catch e { panic("second") } finally { total = total + 1 }
	//   } catch e2 { }
	//   return total
	// }
	declTotal := &ir.LocalDeclStmt{Name: "total", Init: ir.NewInt(0, sp)}
	innerTryBody := ir.NewBlock(sp, ir.NewExprStmt(&ir.BuiltinExpr{Name: "panic", Args: []ir.Expr{ir.NewString("first", sp)}}, sp))
	innerCatchBody := ir.NewBlock(sp, ir.NewExprStmt(&ir.BuiltinExpr{Name: "panic", Args: []ir.Expr{ir.NewString("second", sp)}}, sp))
	innerFinallyBody := ir.NewBlock(sp, ir.NewAssign(ir.NewIdent("total", sp),
		ir.NewBinary(ir.OpAdd, ir.NewIdent("total", sp), ir.NewInt(1, sp), sp), sp))
	innerTry := &ir.TryStmt{
		Body: innerTryBody, HasCatch: true, CatchVar: "e", CatchBody: innerCatchBody,
		HasFinally: true, FinallyBody: innerFinallyBody,
	}
	outerTry := &ir.TryStmt{Body: ir.NewBlock(sp, innerTry), HasCatch: true, CatchVar: "e2", CatchBody: ir.NewBlock(sp)}
	body := ir.NewBlock(sp, declTotal, outerTry, ir.NewReturn(ir.NewIdent("total", sp), sp))
	f := ir.NewFunction("f", nil, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	result, err := machine.Run("f", nil)
	require.NoError(t, err, "the outer try catches the second panic, so the run as a whole still succeeds")
	assert.Equal(t, int64(1), result.I, "the inner finally must still run even though the exception reaching it was thrown from inside its own catch body")
}

func TestRunCallsBetweenFunctions(t *testing.T) {
	helperBody := ir.NewBlock(sp, ir.NewReturn(ir.NewBinary(ir.OpMul, ir.NewIdent("x", sp), ir.NewInt(2, sp), sp), sp))
	helper := ir.NewFunction("double", []ir.Param{{Name: "x"}}, helperBody, sp)

	mainBody := ir.NewBlock(sp, ir.NewReturn(&ir.CallExpr{Callee: "double", Args: []ir.Expr{ir.NewInt(21, sp)}}, sp))
	mainFn := ir.NewFunction("main", nil, mainBody, sp)

	c := bytecode.NewCompiler()
	m, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{mainFn, helper}})
	require.NoError(t, err)

	machine := New(m, nil)
	result, err := machine.Run("main", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.I)
}

func TestRunIntegerDivisionByZeroRaisesAndIsCatchable(t *testing.T) {
	tryBody := ir.NewBlock(sp, ir.NewExprStmt(ir.NewBinary(ir.OpDiv, ir.NewInt(1, sp), ir.NewInt(0, sp), sp), sp))
	catchBody := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(-1, sp), sp))
	tryStmt := &ir.TryStmt{Body: tryBody, HasCatch: true, CatchBody: catchBody}
	body := ir.NewBlock(sp, tryStmt, ir.NewReturn(ir.NewInt(0, sp), sp))
	f := ir.NewFunction("divguard", nil, body, sp)
	m := compileFunc(t, f)

	machine := New(m, nil)
	result, err := machine.Run("divguard", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), result.I)
}

func TestValuesEqualVsIdentical(t *testing.T) {
	a := F64(0.0)
	b := F64(-0.0)
	assert.True(t, valuesEqual(a, b), "IEEE equality treats +0.0 == -0.0")
	assert.False(t, valuesIdentical(a, b), "bit identity distinguishes +0.0 from -0.0")
}

func TestSetMemberKeyUsesBitIdentity(t *testing.T) {
	nan := F64(nanValue())
	s := NewSet()
	s.Set.Elems = append(s.Set.Elems, nan)
	// a NaN is only equal to itself under bit-identity, so re-adding the
	// exact same NaN payload must be treated as already present.
	key1 := s.Set.Elems[0].bitsKey()
	key2 := nan.bitsKey()
	assert.Equal(t, key1, key2)
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func arrOf(elems ...Value) Value { return Array(elems, []int{len(elems)}) }

// TestSetOpsArrayFirstSeenOrder covers spec §8 scenario 4's worked
// examples: array operands preserve first-seen order and stay arrays.
func TestSetOpsArrayFirstSeenOrder(t *testing.T) {
	a := arrOf(I64(1), I64(2))
	b := arrOf(I64(2), I64(3))

	u, err := setUnion(a, b)
	require.NoError(t, err)
	assert.Equal(t, KindArray, u.Kind)
	assert.Equal(t, []Value{I64(1), I64(2), I64(3)}, u.Array.Elems)

	i, err := setIntersect(arrOf(I64(1), I64(2), I64(3)), arrOf(I64(2), I64(3), I64(4)))
	require.NoError(t, err)
	assert.Equal(t, []Value{I64(2), I64(3)}, i.Array.Elems)

	d, err := setDiff(arrOf(I64(1), I64(2), I64(3)), arrOf(I64(2)))
	require.NoError(t, err)
	assert.Equal(t, []Value{I64(1), I64(3)}, d.Array.Elems)

	s, err := setSymDiff(arrOf(I64(1), I64(2)), arrOf(I64(2), I64(3)))
	require.NoError(t, err)
	assert.Equal(t, []Value{I64(1), I64(3)}, s.Array.Elems)
}

// TestSetOpsResultIsSetWhenEitherOperandIsASet covers the "result is a set
// if either argument is a set" rule.
func TestSetOpsResultIsSetWhenEitherOperandIsASet(t *testing.T) {
	set := NewSet()
	set.Set.Elems = []Value{I64(2), I64(3)}

	u, err := setUnion(arrOf(I64(1), I64(2)), set)
	require.NoError(t, err)
	assert.Equal(t, KindSet, u.Kind)
	assert.Equal(t, []Value{I64(1), I64(2), I64(3)}, u.Set.Elems)
}

// TestSetOpsBangMutatesFirstArgument covers the `!`-suffixed variants'
// contract of mutating and returning the first operand.
func TestSetOpsBangMutatesFirstArgument(t *testing.T) {
	a := arrOf(I64(1), I64(2))
	res, err := setUnion(a, arrOf(I64(2), I64(3)))
	require.NoError(t, err)
	mutated := mutateInPlace(a, res)
	assert.Same(t, a.Array, mutated.Array)
	assert.Equal(t, []Value{I64(1), I64(2), I64(3)}, a.Array.Elems)
}

func TestSetOpsPredicates(t *testing.T) {
	ab, err := setIsSubset(arrOf(I64(1), I64(2)), arrOf(I64(1), I64(2), I64(3)))
	require.NoError(t, err)
	assert.True(t, ab.B)

	disjoint, err := setIsDisjoint(arrOf(I64(1), I64(2)), arrOf(I64(3), I64(4)))
	require.NoError(t, err)
	assert.True(t, disjoint.B)

	eq, err := setIsSetEqual(arrOf(I64(1), I64(2)), arrOf(I64(2), I64(1)))
	require.NoError(t, err)
	assert.True(t, eq.B, "set equality ignores order")
}

// TestSetOpsUsesBitIdentityForFloats covers the NaN/-0.0 membership rule
// (spec §7) inside set-algebra builtins, not just execSetAdd: a NaN is a
// member of its own union, and +0.0/-0.0 are distinct members.
func TestSetOpsUsesBitIdentityForFloats(t *testing.T) {
	nan := F64(nanValue())
	u, err := setUnion(arrOf(nan), arrOf(nan))
	require.NoError(t, err)
	assert.Len(t, u.Array.Elems, 1, "the same NaN payload deduplicates against itself under bit identity")

	zeroes, err := setUnion(arrOf(F64(0.0)), arrOf(F64(-0.0)))
	require.NoError(t, err)
	assert.Len(t, zeroes.Array.Elems, 2, "+0.0 and -0.0 are distinct members under bit identity")
}

func TestRngBuiltinsWireThroughDefaultBuiltins(t *testing.T) {
	fns := defaultBuiltins()
	machine := &VM{Rng: NewDefaultRng(&fixedRandSource{f: 0.5, normal: 1.5})}

	got, err := fns[bytecode.BuiltinRandF64](machine, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got.F)

	got, err = fns[bytecode.BuiltinRandnF64](machine, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.F)

	got, err = fns[bytecode.BuiltinRandArray](machine, []Value{I64(3)})
	require.NoError(t, err)
	assert.Len(t, got.Array.Elems, 3)
	assert.Equal(t, 0.5, got.Array.Elems[0].F)

	_, err = fns[bytecode.BuiltinSeedGlobalRng](machine, []Value{I64(42)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), machine.Rng.(*mathRand).src.(*fixedRandSource).seeded)
}

func TestStringBuiltinsDistinguishDebugVsUserFacing(t *testing.T) {
	fns := defaultBuiltins()
	s := Str("hi")

	toString, err := fns[bytecode.BuiltinToString](nil, []Value{s})
	require.NoError(t, err)
	assert.Equal(t, `"hi"`, toString.S)

	toStr, err := fns[bytecode.BuiltinToStr](nil, []Value{s})
	require.NoError(t, err)
	assert.Equal(t, "hi", toStr.S)

	concat, err := fns[bytecode.BuiltinConcatStrings](nil, []Value{Str("a"), Str("b")})
	require.NoError(t, err)
	assert.Equal(t, "ab", concat.S)

	debugConcat, err := fns[bytecode.BuiltinStringConcat](nil, []Value{Str("a"), Str("b")})
	require.NoError(t, err)
	assert.Equal(t, `"a""b"`, debugConcat.S)
}

type fixedRandSource struct {
	f, normal float64
	seeded    int64
}

func (f *fixedRandSource) Float64() float64     { return f.f }
func (f *fixedRandSource) Int63n(n int64) int64 { return 0 }
func (f *fixedRandSource) NormFloat64() float64 { return f.normal }
func (f *fixedRandSource) Seed(seed int64)      { f.seeded = seed }
