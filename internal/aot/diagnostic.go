package aot

import "fmt"

// DynamicOpDiagnostic reports one site that still needs a tagged-union
// runtime fallback despite pure mode forbidding them (spec §4.7: "if any
// site still needs one, emission fails with a DynamicOpDiagnostic pointing
// at the offending span").
type DynamicOpDiagnostic struct {
	Span   Span
	Reason string
}

func (d DynamicOpDiagnostic) String() string {
	return fmt.Sprintf("%s:%d: dynamic operation not permitted in pure mode: %s", d.Span.Func, d.Span.Line, d.Reason)
}

// PureModeError collects every DynamicOpDiagnostic found during one
// emission pass. Pure mode uses a collect-all-then-fail-at-finish policy
// (an Open Question resolved in DESIGN.md) rather than failing at the
// first offending site, so a single emit attempt reports every site that
// needs fixing.
type PureModeError struct {
	Diagnostics []DynamicOpDiagnostic
}

func (e *PureModeError) Error() string {
	s := fmt.Sprintf("pure-mode emission failed: %d dynamic operation site(s)", len(e.Diagnostics))
	for _, d := range e.Diagnostics {
		s += "\n  " + d.String()
	}
	return s
}
