package bytecode

import (
	"testing"

	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/stretchr/testify/require"
)

var sp = ir.Span{}

func fn(name string, params []ir.Param, body *ir.Block) *ir.Function {
	return ir.NewFunction(name, params, body, sp)
}

func TestCompileSimpleArithmeticFunction(t *testing.T) {
	// fn add(a, b) { return a + b }
	body := ir.NewBlock(sp,
		ir.NewReturn(ir.NewBinary(ir.OpAdd, ir.NewIdent("a", sp), ir.NewIdent("b", sp), sp), sp),
	)
	f := fn("add", []ir.Param{{Name: "a"}, {Name: "b"}}, body)

	c := NewCompiler()
	m, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{f}})
	require.NoError(t, err)
	require.Len(t, m.Functions, 1)
	require.Equal(t, "add", m.Functions[0].Name)
	require.Equal(t, 2, m.Functions[0].NumParams)
}

func TestCompileProgramTwoFunctionsForwardCall(t *testing.T) {
	// fn helper() { return 1 }
	// fn main() { return helper() }
	helperBody := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(1, sp), sp))
	helperFn := fn("helper", nil, helperBody)

	mainBody := ir.NewBlock(sp, ir.NewReturn(&ir.CallExpr{Callee: "helper"}, sp))
	mainFn := fn("main", nil, mainBody)

	c := NewCompiler()
	// main is compiled before helper is registered in program order, but
	// both names are pre-indexed by CompileProgram's first pass so the
	// forward reference resolves.
	m, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{mainFn, helperFn}})
	require.NoError(t, err)
	require.Contains(t, m.FuncIndex, "helper")
	require.Contains(t, m.FuncIndex, "main")
}

func TestCompileProgramReusesExistingModuleAcrossCalls(t *testing.T) {
	c := NewCompiler()

	f1Body := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(1, sp), sp))
	_, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{fn("one", nil, f1Body)}})
	require.NoError(t, err)

	f2Body := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(2, sp), sp))
	_, err = c.CompileProgram(&ir.Program{Functions: []*ir.Function{fn("two", nil, f2Body)}})
	require.NoError(t, err)

	// A second CompileProgram call on the same Compiler must not clobber the
	// first function's slot (regression: FuncIndex-keyed write, not
	// positional-index write).
	require.Len(t, c.Module.Functions, 2)
	idx1 := c.Module.FuncIndex["one"]
	idx2 := c.Module.FuncIndex["two"]
	require.Equal(t, "one", c.Module.Functions[idx1].Name)
	require.Equal(t, "two", c.Module.Functions[idx2].Name)
}

func TestCompileIfElse(t *testing.T) {
	// fn choose(a) { if a { return 1 } else { return 2 } }
	then := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(1, sp), sp))
	els := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(2, sp), sp))
	body := ir.NewBlock(sp, ir.NewIf(ir.NewIdent("a", sp), then, els, sp))
	f := fn("choose", []ir.Param{{Name: "a"}}, body)

	c := NewCompiler()
	m, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{f}})
	require.NoError(t, err)
	require.NotEmpty(t, m.Functions[0].Code)
}

func TestCompileWhileLoop(t *testing.T) {
	// fn countdown(n) { while n > 0 { n = n - 1 } return n }
	cond := ir.NewBinary(ir.OpGt, ir.NewIdent("n", sp), ir.NewInt(0, sp), sp)
	decr := ir.NewAssign(ir.NewIdent("n", sp), ir.NewBinary(ir.OpSub, ir.NewIdent("n", sp), ir.NewInt(1, sp), sp), sp)
	loopBody := ir.NewBlock(sp, decr)
	body := ir.NewBlock(sp, &ir.WhileStmt{Cond: cond, Body: loopBody}, ir.NewReturn(ir.NewIdent("n", sp), sp))
	f := fn("countdown", []ir.Param{{Name: "n"}}, body)

	c := NewCompiler()
	_, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{f}})
	require.NoError(t, err)
}

func TestCompileUnsupportedStmtErrors(t *testing.T) {
	body := ir.NewBlock(sp, &ir.GotoStmt{Label: "nope"})
	f := fn("bad", nil, body)
	c := NewCompiler()
	_, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{f}})
	require.Error(t, err)
}

func TestCompileCallToUnknownFunctionErrors(t *testing.T) {
	body := ir.NewBlock(sp, ir.NewReturn(&ir.CallExpr{Callee: "missing"}, sp))
	f := fn("caller", nil, body)
	c := NewCompiler()
	_, err := c.CompileProgram(&ir.Program{Functions: []*ir.Function{f}})
	require.Error(t, err)
}
