// Package diagnostics implements the span-carrying diagnostic records shared
// by the lowering, inference, and bytecode compilation stages.
package diagnostics

import (
	"fmt"
	"sort"
)

// Span locates a diagnostic in source text. It mirrors the span carried by
// every core IR node (internal/ir) and every CST node (internal/cst).
type Span struct {
	File      string
	Line, Col int
	EndLine   int
	EndCol    int
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Line, s.Col)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Col)
}

// Severity classifies a diagnostic. Type inference never raises an error
// (spec §7): it emits a Severity Widened diagnostic and keeps going.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityWidened
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityWidened:
		return "widened"
	default:
		return "unknown"
	}
}

// Code is a short stable identifier for a diagnostic, used for
// deduplication and for tests that assert on diagnostic identity rather
// than on message text.
type Code string

const (
	CodeUnionWidened     Code = "union-widened"
	CodeFixpointOverflow Code = "fixpoint-overflow"
	CodeAmbiguousMethod  Code = "ambiguous-method"
	CodeNoMethod         Code = "no-method"
	CodeUnsupported      Code = "unsupported-construct"
	CodeDynamicOp        Code = "dynamic-op"
	CodeCircularInclude  Code = "circular-include"
)

// Diagnostic is a single structured record. It intentionally does not
// implement `error` directly on every call site; callers that need an error
// wrap it with internal/errs.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Span     Span
	Message  string
	Hint     string
}

func (d *Diagnostic) String() string {
	if d.Hint != "" {
		return fmt.Sprintf("%s: [%s] %s (%s)", d.Span, d.Code, d.Message, d.Hint)
	}
	return fmt.Sprintf("%s: [%s] %s", d.Span, d.Code, d.Message)
}

// Bag accumulates diagnostics during a pass over a program, deduplicating
// by (span, code) the way funvibe-funxy's analyzer deduplicates by
// "line:col:code".
type Bag struct {
	seen map[string]*Diagnostic
}

// NewBag returns an empty diagnostic bag.
func NewBag() *Bag {
	return &Bag{seen: make(map[string]*Diagnostic)}
}

// Add records d, overwriting any prior diagnostic with the same key.
func (b *Bag) Add(d *Diagnostic) {
	key := fmt.Sprintf("%s:%d:%d:%s", d.Span.File, d.Span.Line, d.Span.Col, d.Code)
	b.seen[key] = d
}

// Widen records a widening diagnostic at span for variable name.
func (b *Bag) Widen(span Span, name, reason string) {
	b.Add(&Diagnostic{
		Code:     CodeUnionWidened,
		Severity: SeverityWidened,
		Span:     span,
		Message:  fmt.Sprintf("%s widened to Any: %s", name, reason),
	})
}

// All returns every diagnostic sorted by span, then code, for deterministic
// output.
func (b *Bag) All() []*Diagnostic {
	out := make([]*Diagnostic, 0, len(b.seen))
	for _, d := range b.seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.Span.Line != c.Span.Line {
			return a.Span.Line < c.Span.Line
		}
		if a.Span.Col != c.Span.Col {
			return a.Span.Col < c.Span.Col
		}
		return a.Code < c.Code
	})
	return out
}

// Len reports the number of distinct diagnostics recorded.
func (b *Bag) Len() int { return len(b.seen) }

// HasErrors reports whether any diagnostic in the bag is an error-severity
// diagnostic.
func (b *Bag) HasErrors() bool {
	for _, d := range b.seen {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
