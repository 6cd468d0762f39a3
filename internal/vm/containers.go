package vm

import (
	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/errs"
)

func (v *VM) execIndexGet(nIdx int) error {
	idxs := make([]Value, nIdx)
	for i := nIdx - 1; i >= 0; i-- {
		ix, err := v.pop()
		if err != nil {
			return err
		}
		idxs[i] = ix
	}
	container, err := v.pop()
	if err != nil {
		return err
	}
	switch container.Kind {
	case KindArray:
		i := int(idxs[0].I)
		if i < 0 || i >= len(container.Array.Elems) {
			return errs.Vm(errs.ReasonIndexOutOfBounds, diagnostics.Span{}, "array index out of bounds")
		}
		v.push(container.Array.Elems[i])
	case KindTuple:
		i := int(idxs[0].I)
		if i < 0 || i >= len(container.Tuple) {
			return errs.Vm(errs.ReasonIndexOutOfBounds, diagnostics.Span{}, "tuple index out of bounds")
		}
		v.push(container.Tuple[i])
	case KindDict:
		for i, k := range container.Dict.Keys {
			if valuesEqual(k, idxs[0]) {
				v.push(container.Dict.Values[i])
				return nil
			}
		}
		return errs.Vm(errs.ReasonDomain, diagnostics.Span{}, "key not found")
	case KindString:
		i := int(idxs[0].I)
		if i < 0 || i >= len(container.S) {
			return errs.Vm(errs.ReasonIndexOutOfBounds, diagnostics.Span{}, "string index out of bounds")
		}
		v.push(Char(rune(container.S[i])))
	default:
		return errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "value is not indexable")
	}
	return nil
}

func (v *VM) execIndexSet() error {
	val, err := v.pop()
	if err != nil {
		return err
	}
	idx, err := v.pop()
	if err != nil {
		return err
	}
	container, err := v.pop()
	if err != nil {
		return err
	}
	switch container.Kind {
	case KindArray:
		i := int(idx.I)
		if i < 0 || i >= len(container.Array.Elems) {
			return errs.Vm(errs.ReasonIndexOutOfBounds, diagnostics.Span{}, "array index out of bounds")
		}
		container.Array.Elems[i] = val
	case KindDict:
		for i, k := range container.Dict.Keys {
			if valuesEqual(k, idx) {
				container.Dict.Values[i] = val
				return nil
			}
		}
		container.Dict.Keys = append(container.Dict.Keys, idx)
		container.Dict.Values = append(container.Dict.Values, val)
	default:
		return errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "value does not support index assignment")
	}
	return nil
}

func (v *VM) execDictSet() error {
	val, err := v.pop()
	if err != nil {
		return err
	}
	key, err := v.pop()
	if err != nil {
		return err
	}
	d, err := v.pop()
	if err != nil {
		return err
	}
	for i, k := range d.Dict.Keys {
		if valuesEqual(k, key) {
			d.Dict.Values[i] = val
			v.push(d)
			return nil
		}
	}
	d.Dict.Keys = append(d.Dict.Keys, key)
	d.Dict.Values = append(d.Dict.Values, val)
	v.push(d)
	return nil
}

// execSetAdd inserts using bit-identity equality for floats, per spec §7's
// set-membership rule ("NaN can be a set member, -0.0 and +0.0 distinct").
func (v *VM) execSetAdd() error {
	val, err := v.pop()
	if err != nil {
		return err
	}
	s, err := v.pop()
	if err != nil {
		return err
	}
	for _, e := range s.Set.Elems {
		if e.bitsKey() == val.bitsKey() {
			v.push(s)
			return nil
		}
	}
	s.Set.Elems = append(s.Set.Elems, val)
	v.push(s)
	return nil
}

func (v *VM) pushField(s Value, name string) error {
	if s.Kind != KindStruct {
		return errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "field access on non-struct value")
	}
	idx, ok := FieldOffset(s.Struct.TypeName, name)
	if !ok || idx >= len(s.Struct.Fields) {
		return errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "unknown field "+name)
	}
	v.push(s.Struct.Fields[idx])
	return nil
}

func (v *VM) execFieldSet(nameConstIdx int) error {
	val, err := v.pop()
	if err != nil {
		return err
	}
	s, err := v.pop()
	if err != nil {
		return err
	}
	name := v.Module.Constants[nameConstIdx].(string)
	idx, ok := FieldOffset(s.Struct.TypeName, name)
	if !ok || idx >= len(s.Struct.Fields) {
		return errs.Vm(errs.ReasonTypeMismatch, diagnostics.Span{}, "unknown field "+name)
	}
	s.Struct.Fields[idx] = val
	return nil
}

// execIterateFirst pops the collection and always pushes state, elem,
// hasMore (in that order, hasMore on top) whether or not iteration
// produced an element, so the caller's stack discipline doesn't depend on
// the outcome (spec §4.8 iteration protocol). The collection itself is
// not re-pushed: compileFor keeps it in a local slot across iterations
// instead of threading it through the operand stack.
func (v *VM) execIterateFirst() error {
	coll, err := v.pop()
	if err != nil {
		return err
	}
	elem, state, ok := IterateFirst(coll)
	v.push(encodeIterState(state))
	v.push(elem)
	v.push(Bool(ok))
	return nil
}

// execIterateNext pops state then the collection (the order compileFor
// pushes them in: collection first/below, state last/on top) and always
// pushes state, elem, hasMore, mirroring execIterateFirst.
func (v *VM) execIterateNext() error {
	stateVal, err := v.pop()
	if err != nil {
		return err
	}
	coll, err := v.pop()
	if err != nil {
		return err
	}
	state := decodeIterState(stateVal)
	elem, next, ok := IterateNext(coll, state)
	v.push(encodeIterState(next))
	v.push(elem)
	v.push(Bool(ok))
	return nil
}

// encodeIterState/decodeIterState box the opaque iteration cursor as a
// struct-kind Value so it can ride the operand stack alongside ordinary
// values without a dedicated stack slot type.
func encodeIterState(s IterState) Value {
	return Value{Kind: KindStruct, Struct: &StructData{
		TypeName: "__iter_state",
		Fields:   []Value{I64(int64(s.kind)), I64(int64(s.index)), s.cur},
	}}
}

func decodeIterState(v Value) IterState {
	if v.Kind != KindStruct || v.Struct.TypeName != "__iter_state" {
		return IterState{}
	}
	return IterState{
		kind:  Kind(v.Struct.Fields[0].I),
		index: int(v.Struct.Fields[1].I),
		cur:   v.Struct.Fields[2],
	}
}

func (v *VM) execMakeRange(isFloat, materialize bool) error {
	step, err := v.pop()
	if err != nil {
		return err
	}
	stop, err := v.pop()
	if err != nil {
		return err
	}
	start, err := v.pop()
	if err != nil {
		return err
	}
	r := &RangeData{Start: start, Stop: stop, Step: step, IsFloat: isFloat}
	if !materialize {
		v.push(Value{Kind: KindRange, Range: r})
		return nil
	}
	var elems []Value
	elem, state, ok := rangeFirst(r)
	for ok {
		elems = append(elems, elem)
		elem, state, ok = rangeNext(r, state)
	}
	v.push(Array(elems, []int{len(elems)}))
	return nil
}
