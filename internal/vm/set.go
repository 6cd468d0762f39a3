package vm

import (
	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/errs"
)

// setElems extracts the element slice of a value usable as a set-algebra
// operand (either concrete kind), and reports whether it was already a
// KindSet, so the result can stay a set when either operand is one (spec
// §4.8 "Set operations").
func setElems(v Value) ([]Value, bool, error) {
	switch v.Kind {
	case KindSet:
		return v.Set.Elems, true, nil
	case KindArray:
		return v.Array.Elems, false, nil
	default:
		return nil, false, errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "set operation on non-collection value")
	}
}

// containsElem uses bit-identity equality for floats, matching execSetAdd's
// membership rule (spec §7: NaN is a member, -0.0/+0.0 are distinct).
func containsElem(elems []Value, target Value) bool {
	for _, e := range elems {
		if e.bitsKey() == target.bitsKey() {
			return true
		}
	}
	return false
}

// dedupeFirstSeen collects elems in first-seen order, dropping later
// duplicates under bit-identity equality (spec §4.8/§8 scenario 4: "arrays
// preserve first-seen order").
func dedupeFirstSeen(elems ...[]Value) []Value {
	var out []Value
	for _, es := range elems {
		for _, e := range es {
			if !containsElem(out, e) {
				out = append(out, e)
			}
		}
	}
	return out
}

// wrapSetResult boxes elems back into a set if either operand was a set,
// otherwise as an array (spec §4.8: "if either argument is a set, the
// result is a set").
func wrapSetResult(elems []Value, aIsSet, bIsSet bool) Value {
	if aIsSet || bIsSet {
		return Value{Kind: KindSet, Set: &SetData{Elems: elems}}
	}
	return Array(elems, []int{len(elems)})
}

func setUnion(a, b Value) (Value, error) {
	aElems, aIsSet, err := setElems(a)
	if err != nil {
		return Value{}, err
	}
	bElems, bIsSet, err := setElems(b)
	if err != nil {
		return Value{}, err
	}
	return wrapSetResult(dedupeFirstSeen(aElems, bElems), aIsSet, bIsSet), nil
}

func setIntersect(a, b Value) (Value, error) {
	aElems, aIsSet, err := setElems(a)
	if err != nil {
		return Value{}, err
	}
	bElems, bIsSet, err := setElems(b)
	if err != nil {
		return Value{}, err
	}
	var out []Value
	for _, e := range dedupeFirstSeen(aElems) {
		if containsElem(bElems, e) {
			out = append(out, e)
		}
	}
	return wrapSetResult(out, aIsSet, bIsSet), nil
}

func setDiff(a, b Value) (Value, error) {
	aElems, aIsSet, err := setElems(a)
	if err != nil {
		return Value{}, err
	}
	bElems, bIsSet, err := setElems(b)
	if err != nil {
		return Value{}, err
	}
	var out []Value
	for _, e := range dedupeFirstSeen(aElems) {
		if !containsElem(bElems, e) {
			out = append(out, e)
		}
	}
	return wrapSetResult(out, aIsSet, bIsSet), nil
}

func setSymDiff(a, b Value) (Value, error) {
	aElems, aIsSet, err := setElems(a)
	if err != nil {
		return Value{}, err
	}
	bElems, bIsSet, err := setElems(b)
	if err != nil {
		return Value{}, err
	}
	var out []Value
	for _, e := range dedupeFirstSeen(aElems) {
		if !containsElem(bElems, e) {
			out = append(out, e)
		}
	}
	for _, e := range dedupeFirstSeen(bElems) {
		if !containsElem(aElems, e) {
			out = append(out, e)
		}
	}
	return wrapSetResult(out, aIsSet, bIsSet), nil
}

func setIsSubset(a, b Value) (Value, error) {
	aElems, _, err := setElems(a)
	if err != nil {
		return Value{}, err
	}
	bElems, _, err := setElems(b)
	if err != nil {
		return Value{}, err
	}
	for _, e := range aElems {
		if !containsElem(bElems, e) {
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func setIsDisjoint(a, b Value) (Value, error) {
	aElems, _, err := setElems(a)
	if err != nil {
		return Value{}, err
	}
	bElems, _, err := setElems(b)
	if err != nil {
		return Value{}, err
	}
	for _, e := range aElems {
		if containsElem(bElems, e) {
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func setIsSetEqual(a, b Value) (Value, error) {
	subAB, err := setIsSubset(a, b)
	if err != nil {
		return Value{}, err
	}
	subBA, err := setIsSubset(b, a)
	if err != nil {
		return Value{}, err
	}
	return Bool(subAB.B && subBA.B), nil
}

// mutateInPlace rewrites a's backing elements to result's, matching the
// `!`-suffixed builtins' contract of mutating and returning the first
// argument rather than allocating a fresh value.
func mutateInPlace(a, result Value) Value {
	switch a.Kind {
	case KindSet:
		elems, _, _ := setElems(result)
		a.Set.Elems = elems
		return a
	case KindArray:
		elems, _, _ := setElems(result)
		a.Array.Elems = elems
		a.Array.Shape = []int{len(elems)}
		return a
	default:
		return result
	}
}
