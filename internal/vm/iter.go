package vm

// IterState is the opaque per-collection iteration cursor returned by
// IterateFirst and threaded through IterateNext (spec §4.8: "the state is
// opaque to the VM and specific to the collection kind").
type IterState struct {
	kind  Kind
	index int
	// for KindRange, cur holds the current element value directly rather
	// than re-deriving it from index*step, so float ranges accumulate
	// error the same way a manual loop would (consistent epsilon behavior).
	cur Value
}

// IterateFirst returns the first element of coll (if any), the opaque
// state to resume from, and whether an element was produced.
func IterateFirst(coll Value) (elem Value, state IterState, ok bool) {
	switch coll.Kind {
	case KindArray:
		if len(coll.Array.Elems) == 0 {
			return Nothing(), IterState{}, false
		}
		return coll.Array.Elems[0], IterState{kind: KindArray, index: 0}, true

	case KindTuple:
		if len(coll.Tuple) == 0 {
			return Nothing(), IterState{}, false
		}
		return coll.Tuple[0], IterState{kind: KindTuple, index: 0}, true

	case KindSet:
		if len(coll.Set.Elems) == 0 {
			return Nothing(), IterState{}, false
		}
		return coll.Set.Elems[0], IterState{kind: KindSet, index: 0}, true

	case KindDict:
		if len(coll.Dict.Keys) == 0 {
			return Nothing(), IterState{}, false
		}
		return Tuple(coll.Dict.Keys[0], coll.Dict.Values[0]), IterState{kind: KindDict, index: 0}, true

	case KindRange:
		return rangeFirst(coll.Range)

	default:
		return Nothing(), IterState{}, false
	}
}

// IterateNext resumes iteration from state over coll.
func IterateNext(coll Value, state IterState) (elem Value, next IterState, ok bool) {
	switch state.kind {
	case KindArray:
		i := state.index + 1
		if i >= len(coll.Array.Elems) {
			return Nothing(), IterState{}, false
		}
		return coll.Array.Elems[i], IterState{kind: KindArray, index: i}, true

	case KindTuple:
		i := state.index + 1
		if i >= len(coll.Tuple) {
			return Nothing(), IterState{}, false
		}
		return coll.Tuple[i], IterState{kind: KindTuple, index: i}, true

	case KindSet:
		i := state.index + 1
		if i >= len(coll.Set.Elems) {
			return Nothing(), IterState{}, false
		}
		return coll.Set.Elems[i], IterState{kind: KindSet, index: i}, true

	case KindDict:
		i := state.index + 1
		if i >= len(coll.Dict.Keys) {
			return Nothing(), IterState{}, false
		}
		return Tuple(coll.Dict.Keys[i], coll.Dict.Values[i]), IterState{kind: KindDict, index: i}, true

	case KindRange:
		return rangeNext(coll.Range, state)

	default:
		return Nothing(), IterState{}, false
	}
}

// rangeEpsilon bounds float-range termination (spec §4.8: "MakeRangeF64
// ... uses epsilon-tolerant termination"), since repeated float addition
// can overshoot the nominal stop value by an ulp.
const rangeEpsilon = 1e-9

func rangeFirst(r *RangeData) (Value, IterState, bool) {
	if r.IsFloat {
		start := r.Start.F
		if rangeDoneF(start, r.Stop.F, r.Step.F) {
			return Nothing(), IterState{}, false
		}
		return F64(start), IterState{kind: KindRange, cur: F64(start)}, true
	}
	start := r.Start.I
	if rangeDoneI(start, r.Stop.I, r.Step.I) {
		return Nothing(), IterState{}, false
	}
	return I64(start), IterState{kind: KindRange, cur: I64(start)}, true
}

func rangeNext(r *RangeData, state IterState) (Value, IterState, bool) {
	if r.IsFloat {
		next := state.cur.F + r.Step.F
		if rangeDoneF(next, r.Stop.F, r.Step.F) {
			return Nothing(), IterState{}, false
		}
		return F64(next), IterState{kind: KindRange, cur: F64(next)}, true
	}
	next := state.cur.I + r.Step.I
	if rangeDoneI(next, r.Stop.I, r.Step.I) {
		return Nothing(), IterState{}, false
	}
	return I64(next), IterState{kind: KindRange, cur: I64(next)}, true
}

func rangeDoneI(cur, stop, step int64) bool {
	if step >= 0 {
		return cur > stop
	}
	return cur < stop
}

func rangeDoneF(cur, stop, step float64) bool {
	if step >= 0 {
		return cur > stop+rangeEpsilon
	}
	return cur < stop-rangeEpsilon
}
