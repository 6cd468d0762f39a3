package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbor-lang/arbor/internal/diagnostics"
)

func TestErrorStringIncludesSpanWhenPresent(t *testing.T) {
	span := diagnostics.Span{File: "a.jl", Line: 3, Col: 5}
	e := New(SyntaxError, span, "unexpected token")
	assert.Equal(t, "SyntaxError at a.jl:3:5: unexpected token", e.Error())
}

func TestErrorStringOmitsSpanWhenZero(t *testing.T) {
	e := New(UnsupportedFeature, diagnostics.Span{}, "macros")
	assert.Equal(t, "UnsupportedFeature: macros", e.Error())
}

func TestVmErrorStringIncludesReason(t *testing.T) {
	e := Vm(ReasonIndexOutOfBounds, diagnostics.Span{}, "index 5 out of bounds")
	assert.Equal(t, "VmError(index-out-of-bounds): index 5 out of bounds", e.Error())
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	e := Wrap(cause, IncludeError, diagnostics.Span{}, "failed to read include")
	require.Error(t, e)
	assert.True(t, errors.Is(e, cause), "the original cause must remain reachable through Unwrap")
	assert.Contains(t, e.Unwrap().Error(), "disk full")
}

func TestWithHintReturnsCopyLeavingOriginalUntouched(t *testing.T) {
	orig := New(DispatchError, diagnostics.Span{}, "no method")
	hinted := orig.WithHint("did you mean foo()?")
	assert.Empty(t, orig.Hint)
	assert.Equal(t, "did you mean foo()?", hinted.Hint)
}

func TestDispatchSetsHintBasedOnAmbiguity(t *testing.T) {
	ambiguous := Dispatch(true, diagnostics.Span{}, "tie")
	assert.Contains(t, ambiguous.Hint, "multiple")

	notFound := Dispatch(false, diagnostics.Span{}, "no match")
	assert.Contains(t, notFound.Hint, "no applicable")
}

func TestCancelledIsVmErrorWithCancelledReason(t *testing.T) {
	e := Cancelled(diagnostics.Span{})
	assert.Equal(t, VmError, e.Kind)
	assert.Equal(t, ReasonCancelled, e.Reason)
}

func TestIsKindMatchesErrorKind(t *testing.T) {
	e := Syntax(diagnostics.Span{}, "bad")
	assert.True(t, IsKind(e, SyntaxError))
	assert.False(t, IsKind(e, VmError))
	assert.False(t, IsKind(errors.New("plain"), SyntaxError))
}

func TestKindStringCoversEveryKind(t *testing.T) {
	cases := map[Kind]string{
		SyntaxError:         "SyntaxError",
		UnsupportedFeature:  "UnsupportedFeature",
		IncludeError:        "IncludeError",
		VmError:             "VmError",
		DispatchError:       "DispatchError",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
