package lattice

// Join returns the least upper bound of a and b (spec §4.1): "equal types
// collapse; otherwise form a flat union, applying canonical ordering, then
// enforce widening rules."
func Join(a, b *LatticeType) *LatticeType {
	if a.IsBottom() {
		return b
	}
	if b.IsBottom() {
		return a
	}
	if a.IsTop() || b.IsTop() {
		return Top()
	}
	if Equal(a, b) {
		return a
	}

	members := flatten(a)
	members = append(members, flatten(b)...)
	members = dedupe(members)

	if len(members) == 1 {
		return members[0]
	}
	u := &LatticeType{kind: KindUnion, members: members}
	return widen(u)
}

// Meet returns the greatest lower bound of a and b, used for narrowing
// (spec §4.1).
func Meet(a, b *LatticeType) *LatticeType {
	if a.IsTop() {
		return b
	}
	if b.IsTop() {
		return a
	}
	if a.IsBottom() || b.IsBottom() {
		return Bottom()
	}
	if Equal(a, b) {
		return a
	}

	aMembers := flatten(a)
	bMembers := flatten(b)
	var common []*LatticeType
	for _, x := range aMembers {
		for _, y := range bMembers {
			if Equal(x, y) || Subtype(x, y) {
				common = append(common, x)
				break
			}
			if Subtype(y, x) {
				common = append(common, y)
				break
			}
		}
	}
	common = dedupe(common)
	switch len(common) {
	case 0:
		return Bottom()
	case 1:
		return common[0]
	default:
		return &LatticeType{kind: KindUnion, members: common}
	}
}

// Subtype reports whether a is a subtype of b (spec §4.1), i.e. the
// lattice order: reflexive, transitive; covariant in array element type
// and invariant in dimensionality; element-wise covariant for tuples at
// equal arity (spec §3 invariants).
func Subtype(a, b *LatticeType) bool {
	if a.IsBottom() {
		return true
	}
	if b.IsTop() {
		return true
	}
	if a.IsTop() {
		return b.IsTop()
	}
	if b.IsBottom() {
		return a.IsBottom()
	}
	if Equal(a, b) {
		return true
	}

	if b.kind == KindUnion {
		for _, m := range flatten(a) {
			ok := false
			for _, bm := range b.members {
				if Subtype(m, bm) {
					ok = true
					break
				}
			}
			if !ok {
				return false
			}
		}
		return true
	}
	if a.kind == KindUnion {
		// a (a union) is a subtype of concrete b only if every member is.
		for _, m := range a.members {
			if !Subtype(m, b) {
				return false
			}
		}
		return true
	}

	// both concrete
	if a.concrete == CArray && b.concrete == CArray {
		return a.dims == b.dims && Subtype(a.elem, b.elem)
	}
	if a.concrete == CTuple && b.concrete == CTuple {
		if len(a.elems) != len(b.elems) {
			return false
		}
		for i := range a.elems {
			if !Subtype(a.elems[i], b.elems[i]) {
				return false
			}
		}
		return true
	}
	if a.concrete == CSet && b.concrete == CSet {
		return Subtype(a.elem, b.elem)
	}
	if a.concrete == CDict && b.concrete == CDict {
		return Subtype(a.dictKeyT, b.dictKeyT) && Subtype(a.dictValT, b.dictValT)
	}
	if a.concrete == CStruct && b.concrete == CStruct && a.name == b.name {
		if len(a.typeArgs) != len(b.typeArgs) {
			return false
		}
		for i := range a.typeArgs {
			if !Subtype(a.typeArgs[i], b.typeArgs[i]) {
				return false
			}
		}
		return true
	}
	return a.key() == b.key()
}

// Subtract removes members of b from a, used by else-branch narrowing
// after an `isa` check (spec §4.1).
func Subtract(a, b *LatticeType) *LatticeType {
	if a.IsBottom() {
		return Bottom()
	}
	if Subtype(a, b) {
		return Bottom()
	}
	if a.IsTop() {
		// subtracting a concrete type from Any yields Any: we don't know
		// the full complement in an open-world lattice, so keep a
		// deliberately conservative result (spec §9 notes widening at >8
		// members resolves to Any for the same reason).
		return Top()
	}

	members := flatten(a)
	var remain []*LatticeType
	for _, m := range members {
		if !Subtype(m, b) {
			remain = append(remain, m)
		}
	}
	switch len(remain) {
	case 0:
		return Bottom()
	case 1:
		return remain[0]
	default:
		return widen(&LatticeType{kind: KindUnion, members: dedupe(remain)})
	}
}

// flatten returns t's member set: a single-element slice for a concrete
// type, or the (already flat, per invariant) member list for a union.
func flatten(t *LatticeType) []*LatticeType {
	if t.kind == KindUnion {
		out := make([]*LatticeType, len(t.members))
		copy(out, t.members)
		return out
	}
	return []*LatticeType{t}
}

// dedupe removes duplicate members (by canonical key), then drops any
// member that is a strict Subtype of another surviving member, and sorts
// the result by key for deterministic ordering (spec §3: "canonicalized by
// a deterministic ordering"). The subsumption pass is required for the
// absorption law join(a, meet(a,b)) == a to hold when a and b are unions
// with covariant compound members (e.g. Array(Any,1) and Array(Int64,1)):
// meet can select the narrower member from one side, and without dropping
// it as subsumed, re-joining against the wider member would grow the union
// instead of collapsing back to the original.
func dedupe(members []*LatticeType) []*LatticeType {
	seen := make(map[string]*LatticeType, len(members))
	order := make([]string, 0, len(members))
	for _, m := range members {
		k := m.key()
		if _, ok := seen[k]; !ok {
			seen[k] = m
			order = append(order, k)
		}
	}
	keyDeduped := make([]*LatticeType, len(order))
	for i, k := range order {
		keyDeduped[i] = seen[k]
	}

	out := dropSubsumed(keyDeduped)
	sortByKey(out)
	return out
}

// dropSubsumed returns the maximal elements of members under Subtype: a
// member is dropped if some other distinct member is a strict supertype of
// it (subsumes it), since a narrower member adds nothing to a union already
// containing its supertype.
func dropSubsumed(members []*LatticeType) []*LatticeType {
	out := make([]*LatticeType, 0, len(members))
	for i, m := range members {
		subsumed := false
		for j, n := range members {
			if i == j {
				continue
			}
			if Subtype(m, n) && !Subtype(n, m) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			out = append(out, m)
		}
	}
	return out
}

func sortByKey(members []*LatticeType) {
	for i := 1; i < len(members); i++ {
		j := i
		for j > 0 && members[j-1].key() > members[j].key() {
			members[j-1], members[j] = members[j], members[j-1]
			j--
		}
	}
}

// widen enforces spec §3's invariant: "Unions with > MAX_UNION_LENGTH=8
// members or nesting depth > MAX_UNION_COMPLEXITY=5 must be widened to Any".
func widen(u *LatticeType) *LatticeType {
	if u.kind != KindUnion {
		return u
	}
	if len(u.members) < 2 {
		if len(u.members) == 1 {
			return u.members[0]
		}
		return Bottom()
	}
	if len(u.members) > MaxUnionLength || u.depth() > MaxUnionComplexity {
		return Top()
	}
	return u
}
