package unionsplit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-lang/arbor/internal/infer"
	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/arbor-lang/arbor/internal/lattice"
)

var sp = ir.Span{}

func unionVar(env *infer.Env, name string) *lattice.LatticeType {
	u := lattice.Join(lattice.Concrete(lattice.CInt64), lattice.Concrete(lattice.CString))
	env.Bind(name, u)
	return u
}

func TestSplitFindsIsaTestOnUnionTypedVariable(t *testing.T) {
	env := infer.NewEnv()
	unionVar(env, "x")
	cond := &ir.CallExpr{Callee: "isa", Args: []ir.Expr{ir.NewIdent("x", sp), ir.NewIdent("Int64", sp)}}

	cands := Split(cond, env, nil)
	require.Len(t, cands, 1)
	assert.Equal(t, "x", cands[0].Var)
}

func TestSplitIgnoresIsaOnNonUnionVariable(t *testing.T) {
	env := infer.NewEnv()
	env.Bind("x", lattice.Concrete(lattice.CInt64))
	cond := &ir.CallExpr{Callee: "isa", Args: []ir.Expr{ir.NewIdent("x", sp), ir.NewIdent("Int64", sp)}}

	cands := Split(cond, env, nil)
	assert.Empty(t, cands)
}

func TestSplitFindsIdenticalNothingTestEitherOperandOrder(t *testing.T) {
	env := infer.NewEnv()
	unionVar(env, "x")
	nothing := &ir.LiteralExpr{Kind: ir.LitNothing}

	cond1 := &ir.BinaryExpr{Op: ir.OpIdentical, Left: ir.NewIdent("x", sp), Right: nothing}
	cands1 := Split(cond1, env, nil)
	require.Len(t, cands1, 1)
	assert.Equal(t, "x", cands1[0].Var)

	cond2 := &ir.BinaryExpr{Op: ir.OpIdentical, Left: nothing, Right: ir.NewIdent("x", sp)}
	cands2 := Split(cond2, env, nil)
	require.Len(t, cands2, 1)
	assert.Equal(t, "x", cands2[0].Var)
}

func TestSplitRecursesThroughAndOr(t *testing.T) {
	env := infer.NewEnv()
	unionVar(env, "x")
	unionVar(env, "y")
	cond := &ir.BinaryExpr{
		Op: ir.OpAnd,
		Left: &ir.CallExpr{Callee: "isa", Args: []ir.Expr{ir.NewIdent("x", sp), ir.NewIdent("Int64", sp)}},
		Right: &ir.BinaryExpr{
			Op:    ir.OpIdentical,
			Left:  ir.NewIdent("y", sp),
			Right: &ir.LiteralExpr{Kind: ir.LitNothing},
		},
	}
	cands := Split(cond, env, nil)
	require.Len(t, cands, 2)
	assert.Equal(t, "x", cands[0].Var)
	assert.Equal(t, "y", cands[1].Var)
}

func TestSplitRecursesThroughNot(t *testing.T) {
	env := infer.NewEnv()
	unionVar(env, "x")
	cond := &ir.UnaryExpr{
		Op: ir.OpNot,
		X:  &ir.CallExpr{Callee: "isa", Args: []ir.Expr{ir.NewIdent("x", sp), ir.NewIdent("Int64", sp)}},
	}
	cands := Split(cond, env, nil)
	require.Len(t, cands, 1)
	assert.Equal(t, "x", cands[0].Var)
}

func TestSpecializeIfNothingArmNarrowsThenToNothing(t *testing.T) {
	env := infer.NewEnv()
	unionVar(env, "x")
	cond := &ir.BinaryExpr{Op: ir.OpIdentical, Left: ir.NewIdent("x", sp), Right: &ir.LiteralExpr{Kind: ir.LitNothing}}
	cands := Split(cond, env, nil)
	require.Len(t, cands, 1)

	var sawThenEnv, sawElseEnv *infer.Env
	analyze := func(stmts []ir.Stmt, in *infer.Env) (*infer.Env, map[string]bool) {
		if sawThenEnv == nil {
			sawThenEnv = in
		} else {
			sawElseEnv = in
		}
		return in.Clone(), map[string]bool{}
	}

	SpecializeIf(cands[0], env, nil, nil, analyze)
	require.NotNil(t, sawThenEnv)
	require.NotNil(t, sawElseEnv)
	xType := sawThenEnv.Lookup("x")
	assert.Equal(t, lattice.KindConcrete, xType.Kind())
	assert.Equal(t, lattice.CNothing, xType.ConcreteKind())
}

func TestSplitResolvesIsaTargetTypeFromTable(t *testing.T) {
	env := infer.NewEnv()
	unionVar(env, "x")
	cond := &ir.CallExpr{Callee: "isa", Args: []ir.Expr{ir.NewIdent("x", sp), ir.NewIdent("Int64", sp)}}
	typeNames := map[string]*lattice.LatticeType{"Int64": lattice.Concrete(lattice.CInt64)}

	cands := Split(cond, env, typeNames)
	require.Len(t, cands, 1)
	require.NotNil(t, cands[0].TargetType)
	assert.Equal(t, lattice.CInt64, cands[0].TargetType.ConcreteKind())
}

func TestSpecializeIfIsaArmNarrowsThenToMetType(t *testing.T) {
	env := infer.NewEnv()
	unionVar(env, "x")
	cond := &ir.CallExpr{Callee: "isa", Args: []ir.Expr{ir.NewIdent("x", sp), ir.NewIdent("Int64", sp)}}
	typeNames := map[string]*lattice.LatticeType{"Int64": lattice.Concrete(lattice.CInt64)}
	cands := Split(cond, env, typeNames)
	require.Len(t, cands, 1)

	var sawThenEnv, sawElseEnv *infer.Env
	analyze := func(stmts []ir.Stmt, in *infer.Env) (*infer.Env, map[string]bool) {
		if sawThenEnv == nil {
			sawThenEnv = in
		} else {
			sawElseEnv = in
		}
		return in.Clone(), map[string]bool{}
	}

	SpecializeIf(cands[0], env, nil, nil, analyze)
	require.NotNil(t, sawThenEnv)
	xType := sawThenEnv.Lookup("x")
	assert.Equal(t, lattice.KindConcrete, xType.Kind())
	assert.Equal(t, lattice.CInt64, xType.ConcreteKind(), "meeting the union against the isa target should narrow to just the Int64 member")
}

func TestSpecializeIfMergesWrittenNames(t *testing.T) {
	env := infer.NewEnv()
	unionVar(env, "x")
	cond := &ir.BinaryExpr{Op: ir.OpIdentical, Left: ir.NewIdent("x", sp), Right: &ir.LiteralExpr{Kind: ir.LitNothing}}
	cands := Split(cond, env, nil)
	require.Len(t, cands, 1)

	analyze := func(stmts []ir.Stmt, in *infer.Env) (*infer.Env, map[string]bool) {
		out := in.Clone()
		out.Bind("y", lattice.Concrete(lattice.CBool))
		return out, map[string]bool{"y": true}
	}

	result := SpecializeIf(cands[0], env, nil, nil, analyze)
	assert.True(t, result.Written["y"])
	assert.True(t, result.Merged.Has("y"))
}
