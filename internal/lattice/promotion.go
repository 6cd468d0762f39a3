package lattice

import "fmt"

// promoKey identifies an ordered pair of ConcreteType for the promotion
// registry.
type promoKey struct{ a, b ConcreteType }

// Registry holds user/prelude-extended promotion rules plus the built-in
// priority-table fallback (spec §4.1: "Promotion: two inputs produce the
// target type by consulting a registry first ..., falling back to a
// priority table"). It is constructed once at prelude load and then frozen
// (spec §9 "Global mutable state": "constructed during prelude loading and
// then frozen per session").
type Registry struct {
	rules  map[promoKey]*LatticeType
	frozen bool
}

// NewRegistry returns an empty, mutable promotion registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[promoKey]*LatticeType)}
}

// Register adds a promotion rule for the unordered pair (a, b) -> result.
// It panics if called after Freeze, matching the "frozen per session"
// lifecycle: extending promotion rules mid-session would make inference
// results depend on evaluation order.
func (r *Registry) Register(a, b ConcreteType, result *LatticeType) {
	if r.frozen {
		panic("lattice: Registry.Register called after Freeze")
	}
	r.rules[promoKey{a, b}] = result
	r.rules[promoKey{b, a}] = result
}

// Freeze locks the registry against further Register calls.
func (r *Registry) Freeze() { r.frozen = true }

// priority ranks numeric concrete types for the fallback promotion table
// (spec §4.1: "priority table (complex > rational > big-int > float64 >
// float32 > int64 > int32 > ...)"). Lower index = lower priority.
var priorityOrder = []ConcreteType{
	CInt8, CUint8, CInt16, CUint16, CInt32, CUint32,
	CInt64, CUint64, CFloat32, CFloat64, CBigInt, CRational, CComplex,
}

func priority(c ConcreteType) (int, bool) {
	for i, p := range priorityOrder {
		if p == c {
			return i, true
		}
	}
	return -1, false
}

// Promote resolves the result type of combining a and b, per spec §4.1.
func (reg *Registry) Promote(a, b *LatticeType) (*LatticeType, error) {
	if a.kind != KindConcrete || b.kind != KindConcrete {
		return nil, fmt.Errorf("lattice: Promote requires concrete operands, got %s and %s", a, b)
	}
	if a.concrete == b.concrete {
		return a, nil
	}
	if reg != nil {
		if t, ok := reg.rules[promoKey{a.concrete, b.concrete}]; ok {
			return t, nil
		}
	}

	pa, aok := priority(a.concrete)
	pb, bok := priority(b.concrete)
	if !aok || !bok {
		return nil, fmt.Errorf("lattice: no promotion rule for %s and %s", a, b)
	}
	if pa >= pb {
		return a, nil
	}
	return b, nil
}

// DefaultRegistry builds the registry extended from the embedded
// standard-library prelude (spec §4.1). The concrete prelude contents are
// out of scope (spec §1: "embedded standard-library source text" is an
// external collaborator); this registers the handful of cross-kind rules
// the prelude is known to special-case (e.g. Bool promotes arithmetically
// to Int64, Char to Int32) so inference of simple programs does not have
// to fall through to the (numeric-only) priority table.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(CBool, CInt64, Concrete(CInt64))
	r.Register(CChar, CInt32, Concrete(CInt32))
	r.Register(CBigInt, CFloat64, Concrete(CFloat64))
	r.Register(CRational, CFloat64, Concrete(CFloat64))
	return r
}
