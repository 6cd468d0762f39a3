package infer

import (
	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/arbor-lang/arbor/internal/lattice"
)

// evalExpr computes the inferred type of x under env, recording call sites
// and widening diagnostics as needed. It never fails (spec §7).
func (e *Engine) evalExpr(x ir.Expr, env *Env, res *Result) *lattice.LatticeType {
	switch n := x.(type) {
	case *ir.LiteralExpr:
		return literalType(n)

	case *ir.IdentExpr:
		return env.Lookup(n.Name)

	case *ir.BinaryExpr:
		lt := e.evalExpr(n.Left, env, res)
		if n.Op == ir.OpAnd || n.Op == ir.OpOr {
			// short-circuit logical ops also narrow their right operand,
			// but the expression's value type is always Bool.
			_ = lt
			rt, re := e.narrow(n.Left, env)
			if n.Op == ir.OpAnd {
				e.evalExpr(n.Right, rt, res)
			} else {
				e.evalExpr(n.Right, re, res)
			}
			return lattice.Concrete(lattice.CBool)
		}
		rt := e.evalExpr(n.Right, env, res)
		return e.binaryResultType(n.Op, lt, rt)

	case *ir.UnaryExpr:
		xt := e.evalExpr(n.X, env, res)
		switch n.Op {
		case ir.OpNot:
			return lattice.Concrete(lattice.CBool)
		default:
			return xt
		}

	case *ir.TernaryExpr:
		e.evalExpr(n.Cond, env, res)
		thenEnv, elseEnv := e.narrow(n.Cond, env)
		tt := e.evalExpr(n.Then, thenEnv, res)
		et := e.evalExpr(n.Else, elseEnv, res)
		return lattice.Join(tt, et)

	case *ir.CallExpr:
		return e.evalCall(n, env, res)

	case *ir.BuiltinExpr:
		return e.evalBuiltin(n, env, res)

	case *ir.IndexExpr:
		xt := e.evalExpr(n.X, env, res)
		for _, ix := range n.Index {
			e.evalExpr(ix, env, res)
		}
		return e.indexResultType(xt)

	case *ir.RangeExpr:
		startT := e.evalExpr(n.Start, env, res)
		stopT := e.evalExpr(n.Stop, env, res)
		if n.Step != nil {
			e.evalExpr(n.Step, env, res)
		}
		common, err := e.Promotion.Promote(numericOrF64(startT), numericOrF64(stopT))
		if err != nil {
			common = lattice.Concrete(lattice.CInt64)
		}
		return lattice.Range(common)

	case *ir.FieldExpr:
		xt := e.evalExpr(n.X, env, res)
		if xt.Kind() == lattice.KindConcrete && xt.ConcreteKind() == lattice.CStruct {
			if fields, ok := e.StructFields[xt.Name()]; ok {
				if ft, ok := fields[n.Field]; ok {
					return ft
				}
			}
		}
		return lattice.Top()

	case *ir.ArrayLitExpr:
		if len(n.Elems) == 0 {
			return lattice.Array(lattice.Top(), 1)
		}
		t := e.evalExpr(n.Elems[0], env, res)
		for _, el := range n.Elems[1:] {
			t = lattice.Join(t, e.evalExpr(el, env, res))
		}
		return lattice.Array(t, 1)

	case *ir.TupleLitExpr:
		ts := make([]*lattice.LatticeType, len(n.Elems))
		for i, el := range n.Elems {
			ts[i] = e.evalExpr(el, env, res)
		}
		return lattice.Tuple(ts...)

	case *ir.DictLitExpr:
		if len(n.Entries) == 0 {
			return lattice.Dict(lattice.Top(), lattice.Top())
		}
		kt := e.evalExpr(n.Entries[0].Key, env, res)
		vt := e.evalExpr(n.Entries[0].Value, env, res)
		for _, ent := range n.Entries[1:] {
			kt = lattice.Join(kt, e.evalExpr(ent.Key, env, res))
			vt = lattice.Join(vt, e.evalExpr(ent.Value, env, res))
		}
		return lattice.Dict(kt, vt)

	case *ir.SetLitExpr:
		if len(n.Elems) == 0 {
			return lattice.Set(lattice.Top())
		}
		t := e.evalExpr(n.Elems[0], env, res)
		for _, el := range n.Elems[1:] {
			t = lattice.Join(t, e.evalExpr(el, env, res))
		}
		return lattice.Set(t)

	case *ir.LetExpr:
		vt := e.evalExpr(n.Value, env, res)
		inner := env.Clone().Bind(n.Name, vt)
		return e.evalExpr(n.Body, inner, res)

	case *ir.QuoteExpr:
		return lattice.Top()

	default:
		return lattice.Top()
	}
}

func literalType(n *ir.LiteralExpr) *lattice.LatticeType {
	switch n.Kind {
	case ir.LitInteger:
		return lattice.Concrete(lattice.CInt64)
	case ir.LitFloat:
		return lattice.Concrete(lattice.CFloat64)
	case ir.LitString:
		return lattice.Concrete(lattice.CString)
	case ir.LitChar:
		return lattice.Concrete(lattice.CChar)
	case ir.LitBool:
		return lattice.Concrete(lattice.CBool)
	case ir.LitNothing:
		return lattice.Concrete(lattice.CNothing)
	default:
		return lattice.Top()
	}
}

func numericOrF64(t *lattice.LatticeType) *lattice.LatticeType {
	if t.Kind() == lattice.KindConcrete {
		switch t.ConcreteKind() {
		case lattice.CInt8, lattice.CInt16, lattice.CInt32, lattice.CInt64,
			lattice.CUint8, lattice.CUint16, lattice.CUint32, lattice.CUint64,
			lattice.CFloat32, lattice.CFloat64, lattice.CBigInt, lattice.CRational, lattice.CComplex:
			return t
		}
	}
	return lattice.Concrete(lattice.CFloat64)
}

var comparisonOps = map[ir.BinaryOp]bool{
	ir.OpEq: true, ir.OpNe: true, ir.OpLt: true, ir.OpLe: true, ir.OpGt: true, ir.OpGe: true,
	ir.OpIs: true, ir.OpIdentical: true,
}

// binaryResultType implements spec §4.2's "Binary op → consult promotion +
// op-result table (arithmetic widens to the promoted type; comparisons
// yield boolean; arithmetic on strings is not permitted)."
func (e *Engine) binaryResultType(op ir.BinaryOp, l, r *lattice.LatticeType) *lattice.LatticeType {
	if comparisonOps[op] {
		return lattice.Concrete(lattice.CBool)
	}
	if op == ir.OpAnd || op == ir.OpOr {
		return lattice.Concrete(lattice.CBool)
	}

	isString := func(t *lattice.LatticeType) bool {
		return t.Kind() == lattice.KindConcrete && t.ConcreteKind() == lattice.CString
	}
	if isString(l) || isString(r) {
		if op == ir.OpAdd && isString(l) && isString(r) {
			return lattice.Concrete(lattice.CString) // string concatenation is the one sanctioned "arithmetic-shaped" op
		}
		e.Diags.Add(&diagnostics.Diagnostic{
			Code:     diagnostics.CodeUnsupported,
			Severity: diagnostics.SeverityWidened,
			Message:  "arithmetic on strings is not permitted; widening to Any",
		})
		return lattice.Top()
	}

	if l.Kind() != lattice.KindConcrete || r.Kind() != lattice.KindConcrete {
		return lattice.Top()
	}
	t, err := e.Promotion.Promote(l, r)
	if err != nil {
		e.Diags.Add(&diagnostics.Diagnostic{
			Code:     diagnostics.CodeUnionWidened,
			Severity: diagnostics.SeverityWidened,
			Message:  "no static promotion rule for " + l.String() + " and " + r.String(),
		})
		return lattice.Top()
	}
	return t
}

func (e *Engine) indexResultType(xt *lattice.LatticeType) *lattice.LatticeType {
	if xt.Kind() != lattice.KindConcrete {
		return lattice.Top()
	}
	switch xt.ConcreteKind() {
	case lattice.CArray:
		return xt.Elem()
	case lattice.CTuple:
		elems := xt.Elems()
		if len(elems) == 0 {
			return lattice.Top()
		}
		t := elems[0]
		for _, el := range elems[1:] {
			t = lattice.Join(t, el)
		}
		return t
	case lattice.CDict:
		_, v := xt.KV()
		return v
	default:
		return lattice.Top()
	}
}

// evalCall resolves a user function call through the method table (spec
// §4.2: "Call → consult method table; if no static resolution, widen
// result to Any"), recording the call site for interprocedural refinement.
func (e *Engine) evalCall(n *ir.CallExpr, env *Env, res *Result) *lattice.LatticeType {
	args := make([]*lattice.LatticeType, len(n.Args))
	for i, a := range n.Args {
		args[i] = e.evalExpr(a, env, res)
	}
	res.CallSites = append(res.CallSites, CallSite{Callee: n.Callee, Args: args, Span: n.Span()})

	if n.Callee == "isa" {
		return lattice.Concrete(lattice.CBool)
	}

	if e.Resolver != nil {
		if t, ok := e.Resolver.Resolve(n.Callee, args); ok {
			return t
		}
	}

	sig, err := e.Methods.Resolve(n.Callee, args)
	if err != nil {
		e.Diags.Add(&diagnostics.Diagnostic{
			Code:     diagnostics.CodeNoMethod,
			Severity: diagnostics.SeverityWidened,
			Span:     n.Span(),
			Message:  err.Error(),
		})
		return lattice.Top()
	}
	if sig.Return == nil {
		return lattice.Top()
	}
	return sig.Return
}

func (e *Engine) evalBuiltin(n *ir.BuiltinExpr, env *Env, res *Result) *lattice.LatticeType {
	argTypes := make([]*lattice.LatticeType, len(n.Args))
	for i, a := range n.Args {
		argTypes[i] = e.evalExpr(a, env, res)
	}
	switch n.Name {
	case "len", "cap":
		return lattice.Concrete(lattice.CInt64)
	case "append":
		if len(argTypes) > 0 {
			return argTypes[0]
		}
		return lattice.Top()
	case "copy":
		return lattice.Concrete(lattice.CInt64)
	case "new", "make":
		return lattice.Top()
	case "panic":
		return lattice.Concrete(lattice.CNothing)
	default:
		return lattice.Top()
	}
}
