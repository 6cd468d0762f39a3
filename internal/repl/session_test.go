package repl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-lang/arbor/internal/ir"
)

var sp = ir.Span{}

func constFn(name string, v int64) *ir.Function {
	body := ir.NewBlock(sp, ir.NewReturn(ir.NewInt(v, sp), sp))
	return ir.NewFunction(name, nil, body, sp)
}

func TestNewSessionHasStableID(t *testing.T) {
	s := New()
	require.NotEmpty(t, s.ID)
}

func TestNewSessionIDsAreUnique(t *testing.T) {
	a := New()
	b := New()
	assert.NotEqual(t, a.ID, b.ID)
}

func TestEvalReturnsValueAndInferredType(t *testing.T) {
	s := New()
	res, err := s.Eval(constFn("answer", 42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Value.I)
	require.NotNil(t, res.Type)
}

func TestEvalPersistsDefinitionsAcrossCallsWithinSession(t *testing.T) {
	s := New()
	caller := func(name, callee string) *ir.Function {
		body := ir.NewBlock(sp, ir.NewReturn(&ir.CallExpr{Callee: callee}, sp))
		return ir.NewFunction(name, nil, body, sp)
	}

	_, err := s.Eval(constFn("helper", 7))
	require.NoError(t, err)

	res, err := s.Eval(caller("caller", "helper"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.Value.I, "a later Eval call should be able to call an earlier one's definition")
}

func TestLastTracksMostRecentEvalResult(t *testing.T) {
	s := New()
	_, err := s.Eval(constFn("first", 1))
	require.NoError(t, err)
	_, err = s.Eval(constFn("second", 2))
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.Last().I)
}
