package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanStringWithAndWithoutFile(t *testing.T) {
	assert.Equal(t, "3:5", Span{Line: 3, Col: 5}.String())
	assert.Equal(t, "a.jl:3:5", Span{File: "a.jl", Line: 3, Col: 5}.String())
}

func TestDiagnosticStringIncludesHintWhenPresent(t *testing.T) {
	d := &Diagnostic{Code: CodeNoMethod, Span: Span{Line: 1, Col: 1}, Message: "no method foo"}
	assert.Equal(t, "1:1: [no-method] no method foo", d.String())

	d.Hint = "did you mean bar?"
	assert.Equal(t, "1:1: [no-method] no method foo (did you mean bar?)", d.String())
}

func TestBagAddDeduplicatesBySpanAndCode(t *testing.T) {
	b := NewBag()
	span := Span{Line: 2, Col: 3}
	b.Add(&Diagnostic{Code: CodeUnsupported, Span: span, Message: "first"})
	b.Add(&Diagnostic{Code: CodeUnsupported, Span: span, Message: "second"})
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, "second", b.All()[0].Message, "a later Add at the same (span, code) replaces the prior entry")
}

func TestBagAddKeepsDistinctCodesAtSameSpan(t *testing.T) {
	b := NewBag()
	span := Span{Line: 2, Col: 3}
	b.Add(&Diagnostic{Code: CodeUnsupported, Span: span})
	b.Add(&Diagnostic{Code: CodeNoMethod, Span: span})
	assert.Equal(t, 2, b.Len())
}

func TestBagAllSortedBySpanThenCode(t *testing.T) {
	b := NewBag()
	b.Add(&Diagnostic{Code: CodeNoMethod, Span: Span{Line: 2, Col: 1}})
	b.Add(&Diagnostic{Code: CodeUnsupported, Span: Span{Line: 1, Col: 5}})
	b.Add(&Diagnostic{Code: CodeAmbiguousMethod, Span: Span{Line: 1, Col: 2}})

	all := b.All()
	require := assert.New(t)
	require.Len(all, 3)
	require.Equal(Span{Line: 1, Col: 2}, all[0].Span)
	require.Equal(Span{Line: 1, Col: 5}, all[1].Span)
	require.Equal(Span{Line: 2, Col: 1}, all[2].Span)
}

func TestBagWidenRecordsUnionWidenedDiagnostic(t *testing.T) {
	b := NewBag()
	b.Widen(Span{Line: 1, Col: 1}, "x", "fixpoint did not converge")
	all := b.All()
	require := assert.New(t)
	require.Len(all, 1)
	require.Equal(CodeUnionWidened, all[0].Code)
	require.Equal(SeverityWidened, all[0].Severity)
	require.Contains(all[0].Message, "x widened to Any")
}

func TestBagHasErrorsOnlyTrueForErrorSeverity(t *testing.T) {
	b := NewBag()
	b.Add(&Diagnostic{Code: CodeUnsupported, Span: Span{Line: 1}, Severity: SeverityWidened})
	assert.False(t, b.HasErrors())

	b.Add(&Diagnostic{Code: CodeNoMethod, Span: Span{Line: 2}, Severity: SeverityError})
	assert.True(t, b.HasErrors())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "widened", SeverityWidened.String())
}
