package aot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-lang/arbor/internal/lattice"
)

func i64Type() Type {
	return Type{Lattice: lattice.Concrete(lattice.CInt64)}
}

func constNode(v any) *Node {
	return &Node{Kind: NodeConst, Type: i64Type(), Const: v}
}

func namedRef(name string) *Node {
	return &Node{Kind: NodeParam, Type: i64Type(), Name: name}
}

func TestEmitFuncSignatureAndConst(t *testing.T) {
	fn := &Func{
		Name:       "add",
		ParamNames: []string{"a", "b"},
		ParamTypes: []Type{i64Type(), i64Type()},
		ReturnType: i64Type(),
		Body: []*Node{
			{Kind: NodeReturn, Args: []*Node{namedRef("a")}},
		},
	}
	var sb strings.Builder
	e := NewEmitter(&sb, DefaultConfig())
	err := e.Emit(&Program{Funcs: []*Func{fn}})
	require.NoError(t, err)
	out := sb.String()
	assert.Contains(t, out, "func add(a int64, b int64) int64 {")
	assert.Contains(t, out, "return a")
}

func TestEmitBinaryDivEmitsRuntimeCheckWhenEnabled(t *testing.T) {
	fn := &Func{
		Name:       "divide",
		ParamNames: []string{"a", "b"},
		ParamTypes: []Type{i64Type(), i64Type()},
		ReturnType: i64Type(),
		Body: []*Node{
			{Kind: NodeBinary, Op: "div", Args: []*Node{namedRef("a"), namedRef("b")}},
		},
	}
	var sb strings.Builder
	cfg := DefaultConfig()
	cfg.RuntimeChecks = true
	e := NewEmitter(&sb, cfg)
	require.NoError(t, e.Emit(&Program{Funcs: []*Func{fn}}))
	assert.Contains(t, sb.String(), `if b == 0 { panic("division by zero") }`)
}

func TestEmitBinaryDivSkipsRuntimeCheckWhenDisabled(t *testing.T) {
	fn := &Func{
		Name:       "divide",
		ParamNames: []string{"a", "b"},
		ParamTypes: []Type{i64Type(), i64Type()},
		ReturnType: i64Type(),
		Body: []*Node{
			{Kind: NodeBinary, Op: "div", Args: []*Node{namedRef("a"), namedRef("b")}},
		},
	}
	var sb strings.Builder
	cfg := DefaultConfig()
	cfg.RuntimeChecks = false
	e := NewEmitter(&sb, cfg)
	require.NoError(t, e.Emit(&Program{Funcs: []*Func{fn}}))
	assert.NotContains(t, sb.String(), "division by zero")
}

func TestEmitIfElseNesting(t *testing.T) {
	fn := &Func{
		Name: "choose",
		Body: []*Node{
			{
				Kind: NodeIf,
				Cond: namedRef("flag"),
				Then: []*Node{{Kind: NodeReturn, Args: []*Node{constNode(int64(1))}}},
				Else: []*Node{{Kind: NodeReturn, Args: []*Node{constNode(int64(0))}}},
			},
		},
		ReturnType: i64Type(),
	}
	var sb strings.Builder
	e := NewEmitter(&sb, DefaultConfig())
	require.NoError(t, e.Emit(&Program{Funcs: []*Func{fn}}))
	out := sb.String()
	assert.Contains(t, out, "if flag {")
	assert.Contains(t, out, "} else {")
}

func TestEmitStructLayout(t *testing.T) {
	layout := StructLayout{
		Name:   "Point",
		Fields: []string{"x", "y"},
		Types:  []Type{i64Type(), i64Type()},
	}
	var sb strings.Builder
	e := NewEmitter(&sb, DefaultConfig())
	require.NoError(t, e.Emit(&Program{Structs: []StructLayout{layout}}))
	out := sb.String()
	assert.Contains(t, out, "type Point struct {")
	assert.Contains(t, out, "x int64")
}

func TestEmitPureModeCollectsAllDynamicSitesBeforeFailing(t *testing.T) {
	fn := &Func{
		Name: "f",
		Body: []*Node{
			{Kind: NodeDynamicFallback, Op: "isa-dispatch", Name: "call1", Span: Span{Func: "f", Line: 1}},
			{Kind: NodeDynamicFallback, Op: "union-unbox", Name: "call2", Span: Span{Func: "f", Line: 2}},
		},
	}
	cfg := DefaultConfig()
	cfg.Pure = true
	var sb strings.Builder
	e := NewEmitter(&sb, cfg)
	err := e.Emit(&Program{Funcs: []*Func{fn}})
	require.Error(t, err)
	pme, ok := err.(*PureModeError)
	require.True(t, ok)
	assert.Len(t, pme.Diagnostics, 2, "both dynamic sites must be reported, not just the first")
	assert.Equal(t, 1, pme.Diagnostics[0].Span.Line)
	assert.Equal(t, 2, pme.Diagnostics[1].Span.Line)
}

func TestEmitNonPureModeStillEmitsDynamicFallbackComment(t *testing.T) {
	fn := &Func{
		Name: "f",
		Body: []*Node{
			{Kind: NodeDynamicFallback, Op: "isa-dispatch", Name: "dyn", Span: Span{Func: "f", Line: 1}},
		},
	}
	var sb strings.Builder
	e := NewEmitter(&sb, DefaultConfig())
	require.NoError(t, e.Emit(&Program{Funcs: []*Func{fn}}))
	assert.Contains(t, sb.String(), "dyn /* dynamic: isa-dispatch */")
}

func TestCTypeNameMapsConcreteKinds(t *testing.T) {
	cases := []struct {
		kind lattice.ConcreteType
		want string
	}{
		{lattice.CInt8, "int8"},
		{lattice.CInt64, "int64"},
		{lattice.CUint32, "uint32"},
		{lattice.CFloat64, "float64"},
		{lattice.CBool, "bool"},
		{lattice.CChar, "rune"},
		{lattice.CString, "Handle"},
	}
	for _, c := range cases {
		got := cTypeName(Type{Lattice: lattice.Concrete(c.kind)})
		assert.Equal(t, c.want, got, "concrete kind %v", c.kind)
	}
}

func TestCTypeNameHandleOverridesLattice(t *testing.T) {
	got := cTypeName(Type{Lattice: lattice.Concrete(lattice.CInt64), IsHandle: true})
	assert.Equal(t, "Handle", got)
}

func TestCTypeNameNilLatticeIsAny(t *testing.T) {
	assert.Equal(t, "any", cTypeName(Type{}))
}

func TestDynamicOpDiagnosticString(t *testing.T) {
	d := DynamicOpDiagnostic{Span: Span{Func: "g", Line: 5}, Reason: "multiple dispatch"}
	assert.Equal(t, "g:5: dynamic operation not permitted in pure mode: multiple dispatch", d.String())
}
