// Package methods implements the method table described in spec §3
// ("Method signatures and the method table") and §4 ("Dynamic dispatch /
// method overloading", spec §9): the single locus of polymorphism shared
// by the abstract interpreter and the VM's dynamic fallbacks.
package methods

import (
	"fmt"
	"sort"

	"github.com/arbor-lang/arbor/internal/lattice"
)

// TypeParamBound declares an optional upper/lower bound on a type parameter.
type TypeParamBound struct {
	Name  string
	Upper *lattice.LatticeType // nil: unbounded above (Any)
	Lower *lattice.LatticeType // nil: unbounded below (Bottom)
}

// MethodSig binds a function name to a parameter-type tuple, a set of
// type-parameter declarations, and a return-type slot (spec §3).
type MethodSig struct {
	Name       string
	Params     []*lattice.LatticeType
	TypeParams []TypeParamBound
	Return     *lattice.LatticeType // may be nil until inference fills it
}

// Arity returns the number of positional parameters.
func (s *MethodSig) Arity() int { return len(s.Params) }

// Table maps function name to an ordered list of signatures (spec §3:
// "MethodTable maps function name → ordered list of signatures").
type Table struct {
	sigs map[string][]*MethodSig
}

// New returns an empty method table.
func New() *Table {
	return &Table{sigs: make(map[string][]*MethodSig)}
}

// Define registers sig under its Name. Multiple signatures per name form
// an overload set resolved by specificity at each call site.
func (t *Table) Define(sig *MethodSig) {
	t.sigs[sig.Name] = append(t.sigs[sig.Name], sig)
}

// Signatures returns every signature registered for name.
func (t *Table) Signatures(name string) []*MethodSig {
	return t.sigs[name]
}

// DispatchError distinguishes the two resolution failures from spec §7:
// "no-method (no applicable signature) from ambiguous (multiple
// maximally-specific)".
type DispatchError struct {
	Name      string
	Args      []*lattice.LatticeType
	Ambiguous bool
	Candidates []*MethodSig // the tied candidates, when Ambiguous
}

func (e *DispatchError) Error() string {
	if e.Ambiguous {
		return fmt.Sprintf("ambiguous method %s for argument types %v: %d maximally-specific candidates", e.Name, e.Args, len(e.Candidates))
	}
	return fmt.Sprintf("no method %s applicable to argument types %v", e.Name, e.Args)
}

// Resolve returns the most specific signature registered under name that
// accepts args, per spec §3: "Specificity is computed by summing
// per-argument scores (concrete > abstract > any; more deeply parametric
// types score higher); ties report AmbiguousMethod."
func (t *Table) Resolve(name string, args []*lattice.LatticeType) (*MethodSig, error) {
	candidates := t.sigs[name]
	var applicable []*MethodSig
	for _, c := range candidates {
		if c.Arity() != len(args) {
			continue
		}
		if applicableTo(c, args) {
			applicable = append(applicable, c)
		}
	}
	if len(applicable) == 0 {
		return nil, &DispatchError{Name: name, Args: args}
	}

	scores := make([]int, len(applicable))
	best := -1
	for i, c := range applicable {
		scores[i] = specificity(c, args)
		if best == -1 || scores[i] > scores[best] {
			best = i
		}
	}
	var tied []*MethodSig
	for i, c := range applicable {
		if scores[i] == scores[best] {
			tied = append(tied, c)
		}
	}
	if len(tied) > 1 {
		return nil, &DispatchError{Name: name, Args: args, Ambiguous: true, Candidates: tied}
	}
	return applicable[best], nil
}

func applicableTo(sig *MethodSig, args []*lattice.LatticeType) bool {
	for i, p := range sig.Params {
		if !lattice.Subtype(args[i], p) {
			return false
		}
	}
	return true
}

// specificity sums a per-argument score: concrete types score highest,
// abstract types score lower, Any scores lowest; more deeply parametric
// concrete types (arrays/tuples/structs with type args) score higher than
// a bare concrete scalar, per spec §3.
func specificity(sig *MethodSig, args []*lattice.LatticeType) int {
	total := 0
	for _, p := range sig.Params {
		total += paramScore(p)
	}
	return total
}

func paramScore(p *lattice.LatticeType) int {
	switch p.Kind() {
	case lattice.KindTop:
		return 0
	case lattice.KindUnion:
		// A union parameter is less specific than any one of its members
		// but more specific than Any.
		min := 1 << 30
		for _, m := range p.Members() {
			if s := paramScore(m); s < min {
				min = s
			}
		}
		return min - 1
	case lattice.KindConcrete:
		if p.ConcreteKind() == lattice.CAbstract {
			return 10
		}
		score := 100
		score += parametricDepth(p) * 10
		return score
	default:
		return 0
	}
}

func parametricDepth(p *lattice.LatticeType) int {
	switch p.ConcreteKind() {
	case lattice.CArray:
		return 1 + parametricDepth(p.Elem())
	case lattice.CTuple:
		d := 0
		for _, e := range p.Elems() {
			if ed := parametricDepth(e); ed > d {
				d = ed
			}
		}
		return 1 + d
	case lattice.CStruct:
		d := 0
		for _, a := range p.TypeArgs() {
			if ad := parametricDepth(a); ad > d {
				d = ad
			}
		}
		if len(p.TypeArgs()) > 0 {
			return 1 + d
		}
		return 0
	case lattice.CSet, lattice.CRange:
		return 1 + parametricDepth(p.Elem())
	default:
		return 0
	}
}

// SortedNames returns every registered function name, sorted, useful for
// deterministic iteration in the IPO call-graph builder.
func (t *Table) SortedNames() []string {
	names := make([]string, 0, len(t.sigs))
	for n := range t.sigs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
