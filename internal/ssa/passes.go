package ssa

import "fmt"

// ConstFold folds pure unary/binary operations whose arguments are all
// OpConst, over the concrete numeric types (spec §4.6: "constant folding
// of pure ops with constant arguments (both unary and binary over the
// concrete numeric types)").
type ConstFold struct{}

func (ConstFold) Name() string { return "const-fold" }

func (p ConstFold) Run(f *Function) *Function {
	changed := false
	for _, b := range f.Blocks {
		for i, in := range b.Instrs {
			if folded, ok := tryFold(f, in); ok {
				b.Instrs[i] = folded
				changed = true
			}
		}
	}
	if !changed {
		return f
	}
	return f
}

func tryFold(f *Function, in *Instruction) (*Instruction, bool) {
	switch in.Op {
	case OpUnary:
		if len(in.Args) != 1 {
			return nil, false
		}
		x := f.FindInstr(in.Args[0])
		if x == nil || x.Op != OpConst {
			return nil, false
		}
		v, ok := foldUnary(in.BinOp, x.Const)
		if !ok {
			return nil, false
		}
		return &Instruction{ID: in.ID, Op: OpConst, Const: v}, true

	case OpBinary:
		if len(in.Args) != 2 {
			return nil, false
		}
		l := f.FindInstr(in.Args[0])
		r := f.FindInstr(in.Args[1])
		if l == nil || r == nil || l.Op != OpConst || r.Op != OpConst {
			return nil, false
		}
		v, ok := foldBinary(in.BinOp, l.Const, r.Const)
		if !ok {
			return nil, false
		}
		return &Instruction{ID: in.ID, Op: OpConst, Const: v}, true
	}
	return nil, false
}

func foldUnary(op string, x any) (any, bool) {
	switch op {
	case "neg":
		switch n := x.(type) {
		case int64:
			return -n, true
		case float64:
			return -n, true
		}
	case "not":
		if b, ok := x.(bool); ok {
			return !b, true
		}
	}
	return nil, false
}

func foldBinary(op string, l, r any) (any, bool) {
	li, liok := l.(int64)
	ri, riok := r.(int64)
	if liok && riok {
		switch op {
		case "add":
			return li + ri, true
		case "sub":
			return li - ri, true
		case "mul":
			return li * ri, true
		case "div":
			if ri == 0 {
				return nil, false
			}
			return li / ri, true
		case "lt":
			return li < ri, true
		case "le":
			return li <= ri, true
		case "gt":
			return li > ri, true
		case "ge":
			return li >= ri, true
		case "eq":
			return li == ri, true
		case "ne":
			return li != ri, true
		}
	}
	lf, lfok := asF64(l)
	rf, rfok := asF64(r)
	if lfok && rfok {
		switch op {
		case "add":
			return lf + rf, true
		case "sub":
			return lf - rf, true
		case "mul":
			return lf * rf, true
		case "div":
			return lf / rf, true
		case "lt":
			return lf < rf, true
		case "le":
			return lf <= rf, true
		case "gt":
			return lf > rf, true
		case "ge":
			return lf >= rf, true
		}
	}
	return nil, false
}

func asF64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// DCE removes instructions and phis with no remaining uses, computed by
// reverse reachability from each block's terminator operands plus every
// side-effecting instruction (calls and field stores), per spec §4.6.
type DCE struct{}

func (DCE) Name() string { return "dce" }

func (p DCE) Run(f *Function) *Function {
	live := map[ValueID]bool{}
	var mark func(id ValueID)
	mark = func(id ValueID) {
		if live[id] {
			return
		}
		live[id] = true
		if in := f.FindInstr(id); in != nil {
			for _, a := range in.Args {
				mark(a)
			}
		}
		if ph := f.FindPhi(id); ph != nil {
			for _, v := range ph.Edges {
				mark(v)
			}
		}
	}

	for _, b := range f.Blocks {
		if t := b.Term; t != nil {
			if t.Kind == TermBranch {
				mark(t.Cond)
			}
			if t.Kind == TermReturn && t.Result != nil {
				mark(*t.Result)
			}
		}
		for _, in := range b.Instrs {
			if isSideEffecting(in.Op) {
				mark(in.ID)
			}
		}
	}

	changed := false
	for _, b := range f.Blocks {
		kept := b.Instrs[:0]
		for _, in := range b.Instrs {
			if live[in.ID] {
				kept = append(kept, in)
			} else {
				changed = true
			}
		}
		b.Instrs = kept

		keptPhis := b.Phis[:0]
		for _, ph := range b.Phis {
			if live[ph.ID] {
				keptPhis = append(keptPhis, ph)
			} else {
				changed = true
			}
		}
		b.Phis = keptPhis
	}
	if !changed {
		return f
	}
	return f
}

func isSideEffecting(op Op) bool {
	return op == OpCall || op == OpStoreField
}

// CopyProp replaces every use of a "copy" value — an OpUnary with the
// identity operator, or a trivially pass-through phi(x,x) — with a direct
// use of its source (spec §4.6). It does not count a copy's uses, and it
// leaves the copy itself in place for DCE to remove.
type CopyProp struct{}

func (CopyProp) Name() string { return "copy-prop" }

func (p CopyProp) Run(f *Function) *Function {
	replacement := map[ValueID]ValueID{}
	for _, b := range f.Blocks {
		for _, ph := range b.Phis {
			if same, ok := phiTrivial(ph); ok {
				replacement[ph.ID] = same
			}
		}
		for _, in := range b.Instrs {
			if in.Op == OpUnary && in.BinOp == "identity" && len(in.Args) == 1 {
				replacement[in.ID] = in.Args[0]
			}
		}
	}
	if len(replacement) == 0 {
		return f
	}
	resolve := func(id ValueID) ValueID {
		for {
			r, ok := replacement[id]
			if !ok {
				return id
			}
			id = r
		}
	}
	for _, b := range f.Blocks {
		for _, in := range b.Instrs {
			for i, a := range in.Args {
				in.Args[i] = resolve(a)
			}
		}
		if b.Term != nil && b.Term.Kind == TermBranch {
			b.Term.Cond = resolve(b.Term.Cond)
		}
		if b.Term != nil && b.Term.Kind == TermReturn && b.Term.Result != nil {
			r := resolve(*b.Term.Result)
			b.Term.Result = &r
		}
		for _, ph := range b.Phis {
			for pred, v := range ph.Edges {
				ph.Edges[pred] = resolve(v)
			}
		}
	}
	return f
}

// phiTrivial reports whether every edge of ph carries the same value
// (phi(x,x,...) -> x, spec §4.6's simplification rule extended to phis
// with more than two predecessors).
func phiTrivial(ph *Phi) (ValueID, bool) {
	var first ValueID
	set := false
	for _, v := range ph.Edges {
		if !set {
			first = v
			set = true
			continue
		}
		if v != first {
			return 0, false
		}
	}
	return first, set
}

// Simplify rewrites algebraic identities: x+0 -> x, x*1 -> x, x*0 -> 0 for
// total numeric types, per spec §4.6.
type Simplify struct{}

func (Simplify) Name() string { return "simplify" }

func (p Simplify) Run(f *Function) *Function {
	changed := false
	for _, b := range f.Blocks {
		for i, in := range b.Instrs {
			if in.Op != OpBinary || len(in.Args) != 2 {
				continue
			}
			l := f.FindInstr(in.Args[0])
			r := f.FindInstr(in.Args[1])
			switch {
			case in.BinOp == "add" && isConstZero(r):
				b.Instrs[i] = identityOf(in.ID, in.Args[0])
				changed = true
			case in.BinOp == "add" && isConstZero(l):
				b.Instrs[i] = identityOf(in.ID, in.Args[1])
				changed = true
			case in.BinOp == "mul" && isConstOne(r):
				b.Instrs[i] = identityOf(in.ID, in.Args[0])
				changed = true
			case in.BinOp == "mul" && isConstOne(l):
				b.Instrs[i] = identityOf(in.ID, in.Args[1])
				changed = true
			case in.BinOp == "mul" && (isConstZero(r) || isConstZero(l)):
				b.Instrs[i] = &Instruction{ID: in.ID, Op: OpConst, Const: int64(0)}
				changed = true
			}
		}
	}
	if !changed {
		return f
	}
	return f
}

func identityOf(id, src ValueID) *Instruction {
	return &Instruction{ID: id, Op: OpUnary, BinOp: "identity", Args: []ValueID{src}, Comment: fmt.Sprintf("= v%d", src)}
}

func isConstZero(in *Instruction) bool {
	if in == nil || in.Op != OpConst {
		return false
	}
	switch n := in.Const.(type) {
	case int64:
		return n == 0
	case float64:
		return n == 0
	}
	return false
}

func isConstOne(in *Instruction) bool {
	if in == nil || in.Op != OpConst {
		return false
	}
	switch n := in.Const.(type) {
	case int64:
		return n == 1
	case float64:
		return n == 1
	}
	return false
}
