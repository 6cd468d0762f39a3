package infer

import (
	"github.com/arbor-lang/arbor/internal/diagnostics"
	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/arbor-lang/arbor/internal/lattice"
	"github.com/arbor-lang/arbor/internal/methods"
	"github.com/sirupsen/logrus"
)

// MaxInferenceIterations bounds the fixpoint loop (spec §4.2).
const MaxInferenceIterations = 100

// CallSite records the argument type tuple observed at one call expression,
// for interprocedural refinement (spec §4.2 "a set of call-site records";
// spec §4.3 builds the call graph from these).
type CallSite struct {
	Callee string
	Args   []*lattice.LatticeType
	Span   ir.Span
}

// Result is the output of InferFunction: a map from program point to
// environment (approximated, since our IR is tree- not CFG-shaped, by one
// environment per statement), the final return type, and the call sites
// observed (spec §4.2).
type Result struct {
	PointEnvs map[ir.Stmt]*Env
	Return    *lattice.LatticeType
	CallSites []CallSite
}

// ReturnResolver lets the interprocedural engine (internal/ipo) feed back
// the current best estimate of a callee's return type mid-fixpoint,
// overriding the method table's static (possibly nil) Return slot (spec
// §4.3: "re-run intra-procedural inference with the current return-type
// assumptions of callees").
type ReturnResolver interface {
	Resolve(name string, args []*lattice.LatticeType) (*lattice.LatticeType, bool)
}

// Engine is the whole-program abstract interpreter of spec §4.2.
type Engine struct {
	Methods      *methods.Table
	Promotion    *lattice.Registry
	TypeNames    map[string]*lattice.LatticeType            // abstract/primitive names usable in `isa`
	StructFields map[string]map[string]*lattice.LatticeType // struct name -> field name -> type
	Resolver     ReturnResolver                              // nil: fall back to Methods' static signature
	Diags        *diagnostics.Bag
	MaxIters     int
	log          *logrus.Entry
}

// NewEngine constructs an Engine with the given shared, frozen resources.
func NewEngine(m *methods.Table, promo *lattice.Registry) *Engine {
	return &Engine{
		Methods:      m,
		Promotion:    promo,
		TypeNames:    make(map[string]*lattice.LatticeType),
		StructFields: make(map[string]map[string]*lattice.LatticeType),
		Diags:        diagnostics.NewBag(),
		MaxIters:     MaxInferenceIterations,
		log:          logrus.WithField("component", "infer"),
	}
}

// control signals non-local exits from a structured block, standing in for
// CFG edges since internal/ir is tree-shaped rather than a basic-block
// graph.
type control int

const (
	ctrlNormal control = iota
	ctrlReturn
	ctrlBreak
	ctrlContinue
)

// blockResult is what interpreting one Block produces.
type blockResult struct {
	env  *Env
	ctl  control
	ret  *lattice.LatticeType // meaningful when ctl == ctrlReturn
}

// InferFunction runs the abstract interpreter over fn starting from the
// given parameter bindings. It never fails (spec §7): unresolvable
// constructs widen to Any and record a diagnostic in e.Diags.
func (e *Engine) InferFunction(fn *ir.Function, params map[string]*lattice.LatticeType) *Result {
	env := NewEnv()
	for _, p := range fn.Params {
		if t, ok := params[p.Name]; ok {
			env.Bind(p.Name, t)
		} else if p.Type != nil {
			env.Bind(p.Name, e.resolveTypeExpr(p.Type))
		} else {
			env.Bind(p.Name, lattice.Top())
		}
	}

	res := &Result{PointEnvs: make(map[ir.Stmt]*Env)}
	br := e.interpretBlock(fn.Body, env, res)

	ret := lattice.Bottom()
	if br.ctl == ctrlReturn && br.ret != nil {
		ret = br.ret
	} else {
		// Fell off the end without an explicit return: Nothing.
		ret = lattice.Join(ret, lattice.Concrete(lattice.CNothing))
	}
	res.Return = ret
	return res
}

func (e *Engine) resolveTypeExpr(t *ir.TypeExpr) *lattice.LatticeType {
	if t == nil {
		return lattice.Top()
	}
	if named, ok := e.TypeNames[t.Name]; ok {
		if t.Dims > 0 {
			return lattice.Array(named, t.Dims)
		}
		return named
	}
	if t.Dims > 0 {
		return lattice.Array(lattice.Top(), t.Dims)
	}
	switch t.Name {
	case "Int8":
		return lattice.Concrete(lattice.CInt8)
	case "Int16":
		return lattice.Concrete(lattice.CInt16)
	case "Int32":
		return lattice.Concrete(lattice.CInt32)
	case "Int64", "Int":
		return lattice.Concrete(lattice.CInt64)
	case "UInt8":
		return lattice.Concrete(lattice.CUint8)
	case "UInt16":
		return lattice.Concrete(lattice.CUint16)
	case "UInt32":
		return lattice.Concrete(lattice.CUint32)
	case "UInt64":
		return lattice.Concrete(lattice.CUint64)
	case "Float32":
		return lattice.Concrete(lattice.CFloat32)
	case "Float64":
		return lattice.Concrete(lattice.CFloat64)
	case "Bool":
		return lattice.Concrete(lattice.CBool)
	case "Char":
		return lattice.Concrete(lattice.CChar)
	case "String":
		return lattice.Concrete(lattice.CString)
	case "Nothing":
		return lattice.Concrete(lattice.CNothing)
	case "Any":
		return lattice.Top()
	default:
		return lattice.Abstract(t.Name)
	}
}

func (e *Engine) interpretBlock(b *ir.Block, env *Env, res *Result) blockResult {
	cur := env
	for _, stmt := range b.Stmts {
		res.PointEnvs[stmt] = cur
		br := e.interpretStmt(stmt, cur, res)
		cur = br.env
		if br.ctl != ctrlNormal {
			return blockResult{env: cur, ctl: br.ctl, ret: br.ret}
		}
	}
	return blockResult{env: cur, ctl: ctrlNormal}
}

func (e *Engine) interpretStmt(stmt ir.Stmt, env *Env, res *Result) blockResult {
	switch s := stmt.(type) {
	case *ir.AssignStmt:
		t := e.evalExpr(s.Value, env, res)
		if id, ok := s.Target.(*ir.IdentExpr); ok {
			env = env.Clone().Bind(id.Name, t)
		} else {
			e.evalExpr(s.Target, env, res)
		}
		return blockResult{env: env, ctl: ctrlNormal}

	case *ir.CompoundAssignStmt:
		rt := e.evalExpr(s.Value, env, res)
		if id, ok := s.Target.(*ir.IdentExpr); ok {
			lt := env.Lookup(id.Name)
			result := e.binaryResultType(s.Op, lt, rt)
			env = env.Clone().Bind(id.Name, result)
		}
		return blockResult{env: env, ctl: ctrlNormal}

	case *ir.LocalDeclStmt:
		var t *lattice.LatticeType
		switch {
		case s.Init != nil:
			t = e.evalExpr(s.Init, env, res)
		case s.Type != nil:
			t = e.resolveTypeExpr(s.Type)
		default:
			t = lattice.Top()
		}
		env = env.Clone().Bind(s.Name, t)
		return blockResult{env: env, ctl: ctrlNormal}

	case *ir.ExprStmt:
		e.evalExpr(s.X, env, res)
		return blockResult{env: env, ctl: ctrlNormal}

	case *ir.IfStmt:
		e.evalExpr(s.Cond, env, res)
		thenEnv, elseEnv := e.narrow(s.Cond, env)
		thenRes := e.interpretBlock(s.Then, thenEnv, res)
		var elseRes blockResult
		if s.Else != nil {
			elseRes = e.interpretBlock(s.Else, elseEnv, res)
		} else {
			elseRes = blockResult{env: elseEnv, ctl: ctrlNormal}
		}
		return joinBranches(thenRes, elseRes)

	case *ir.ForStmt:
		return e.interpretFor(s, env, res)

	case *ir.ForEachStmt:
		return e.interpretForEach(s, env, res)

	case *ir.WhileStmt:
		return e.interpretWhile(s, env, res)

	case *ir.TryStmt:
		return e.interpretTry(s, env, res)

	case *ir.ReturnStmt:
		var t *lattice.LatticeType
		if s.Value != nil {
			t = e.evalExpr(s.Value, env, res)
		} else {
			t = lattice.Concrete(lattice.CNothing)
		}
		return blockResult{env: env, ctl: ctrlReturn, ret: t}

	case *ir.BreakStmt:
		return blockResult{env: env, ctl: ctrlBreak}

	case *ir.ContinueStmt:
		return blockResult{env: env, ctl: ctrlContinue}

	case *ir.GotoStmt, *ir.LabelStmt:
		// goto/label do not affect the type environment directly; the
		// bytecode compiler (internal/bytecode) handles control transfer.
		return blockResult{env: env, ctl: ctrlNormal}

	default:
		return blockResult{env: env, ctl: ctrlNormal}
	}
}

// joinBranches merges the then/else results at the merge point, per spec
// §4.2 ("Branches evaluate both arms on possibly-narrowed envs and join at
// the merge point"). If one side exits non-normally, the merge reduces to
// the other side's result, matching ordinary structured control flow.
func joinBranches(a, b blockResult) blockResult {
	if a.ctl != ctrlNormal && b.ctl != ctrlNormal {
		if a.ctl == b.ctl {
			return blockResult{env: a.env.JoinEnv(b.env), ctl: a.ctl, ret: joinReturn(a.ret, b.ret)}
		}
		// Divergent non-normal exits (e.g. one side returns, the other
		// breaks): conservatively treat the merge as reachable via
		// whichever side is structurally "return", since break/continue
		// are bounded to enclosing loops and return always escapes further.
		if a.ctl == ctrlReturn {
			return a
		}
		return b
	}
	if a.ctl != ctrlNormal {
		return blockResult{env: b.env, ctl: ctrlNormal}
	}
	if b.ctl != ctrlNormal {
		return blockResult{env: a.env, ctl: ctrlNormal}
	}
	return blockResult{env: a.env.JoinEnv(b.env), ctl: ctrlNormal}
}

func joinReturn(a, b *lattice.LatticeType) *lattice.LatticeType {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return lattice.Join(a, b)
}

// interpretFor handles `for Var in Iterable { Body }` with loop element
// inference (spec §4.2): array element, range common numeric type, or
// dict pair type.
func (e *Engine) interpretFor(s *ir.ForStmt, env *Env, res *Result) blockResult {
	iterT := e.evalExpr(s.Iterable, env, res)
	elemT := e.loopElementType(iterT)
	return e.fixpointLoop(s.Body, env, map[string]*lattice.LatticeType{s.Var: elemT}, res)
}

func (e *Engine) interpretForEach(s *ir.ForEachStmt, env *Env, res *Result) blockResult {
	iterT := e.evalExpr(s.Iterable, env, res)
	elemT := e.loopElementType(iterT)
	binds := make(map[string]*lattice.LatticeType)
	if len(s.Vars) == 1 {
		binds[s.Vars[0]] = elemT
	} else if elemT.Kind() == lattice.KindConcrete && elemT.ConcreteKind() == lattice.CTuple && len(elemT.Elems()) == len(s.Vars) {
		for i, v := range s.Vars {
			binds[v] = elemT.Elems()[i]
		}
	} else {
		for _, v := range s.Vars {
			binds[v] = lattice.Top()
		}
	}
	return e.fixpointLoop(s.Body, env, binds, res)
}

func (e *Engine) loopElementType(iterT *lattice.LatticeType) *lattice.LatticeType {
	if iterT.Kind() != lattice.KindConcrete {
		return lattice.Top()
	}
	switch iterT.ConcreteKind() {
	case lattice.CArray:
		return iterT.Elem()
	case lattice.CRange:
		return iterT.Elem()
	case lattice.CDict:
		k, v := iterT.KV()
		return lattice.Tuple(k, v)
	case lattice.CSet:
		return iterT.Elem()
	default:
		return lattice.Top()
	}
}

func (e *Engine) interpretWhile(s *ir.WhileStmt, env *Env, res *Result) blockResult {
	e.evalExpr(s.Cond, env, res)
	return e.fixpointLoop(s.Body, env, nil, res)
}

// fixpointLoop iterates the loop body, joining the post-body env back into
// the pre-body env, until convergence or MaxIters is hit (spec §4.2:
// "Fixpoint. Iterate env across the CFG until no env changes; bounded by
// MAX_INFERENCE_ITERATIONS=100. On overflow, widen mutated variables whose
// types exceed union bounds to Any").
func (e *Engine) fixpointLoop(body *ir.Block, entryEnv *Env, extraBinds map[string]*lattice.LatticeType, res *Result) blockResult {
	cur := entryEnv.Clone()
	for k, v := range extraBinds {
		cur.Bind(k, v)
	}

	var last blockResult
	converged := false
	for i := 0; i < e.MaxIters; i++ {
		iterEnv := cur.Clone()
		last = e.interpretBlock(body, iterEnv, res)
		merged := cur.JoinEnv(last.env)
		if merged.Equal(cur) {
			cur = merged
			converged = true
			break
		}
		cur = merged
	}
	if !converged {
		e.log.Warn("inference fixpoint did not converge within MaxIters, widening mutated variables")
		for _, name := range cur.Names() {
			if entryEnv.Has(name) && lattice.Equal(cur.Lookup(name), entryEnv.Lookup(name)) {
				continue // not mutated by the loop
			}
			cur.Bind(name, lattice.Top())
		}
		e.Diags.Widen(diagnostics.Span{}, "loop body", "fixpoint did not converge within MAX_INFERENCE_ITERATIONS")
	}

	// A loop that always returns/breaks on its first pass still leaves the
	// post-loop environment reachable via the zero-iteration path; a
	// `for`/`while` always falls through normally after the loop.
	return blockResult{env: cur, ctl: ctrlNormal}
}

// interpretTry interprets try/catch/finally (spec §4.5's compiler
// invariant mirrored at the type level): body and catch results join, then
// finally is applied unconditionally on top.
func (e *Engine) interpretTry(s *ir.TryStmt, env *Env, res *Result) blockResult {
	bodyRes := e.interpretBlock(s.Body, env.Clone(), res)

	merged := bodyRes
	if s.HasCatch {
		catchEnv := env.Clone()
		if s.CatchVar != "" {
			catchEnv.Bind(s.CatchVar, lattice.Top())
		}
		catchRes := e.interpretBlock(s.CatchBody, catchEnv, res)
		merged = joinBranches(bodyRes, catchRes)
	}

	if s.HasFinally {
		finEnv := merged.env.Clone()
		finRes := e.interpretBlock(s.FinallyBody, finEnv, res)
		if finRes.ctl != ctrlNormal {
			return finRes
		}
		return blockResult{env: finRes.env, ctl: merged.ctl, ret: merged.ret}
	}
	return merged
}

// narrow implements conditional narrowing (spec §4.2): isa/=== nothing/==
// nothing checks (and their negations) narrow the then/else environments;
// logical and/or distribute the narrowing over the branches.
func (e *Engine) narrow(cond ir.Expr, env *Env) (thenEnv, elseEnv *Env) {
	switch c := cond.(type) {
	case *ir.CallExpr:
		if c.Callee == "isa" && len(c.Args) == 2 {
			if id, ok := c.Args[0].(*ir.IdentExpr); ok {
				if tn, ok := c.Args[1].(*ir.IdentExpr); ok {
					t := e.resolveTypeExpr(&ir.TypeExpr{Name: tn.Name})
					return env.Clone().Bind(id.Name, lattice.Meet(env.Lookup(id.Name), t)),
						env.SubtractVar(id.Name, t)
				}
			}
		}
	case *ir.BinaryExpr:
		switch c.Op {
		case ir.OpIdentical, ir.OpEq:
			if id, nothing := identAndNothing(c.Left, c.Right); id != nil && nothing {
				return env.Clone().Bind(id.Name, lattice.Concrete(lattice.CNothing)),
					env.SubtractVar(id.Name, lattice.Concrete(lattice.CNothing))
			}
		case ir.OpNe:
			if id, nothing := identAndNothing(c.Left, c.Right); id != nil && nothing {
				// negated: then/else swap.
				return env.SubtractVar(id.Name, lattice.Concrete(lattice.CNothing)),
					env.Clone().Bind(id.Name, lattice.Concrete(lattice.CNothing))
			}
		case ir.OpAnd:
			lt, le := e.narrow(c.Left, env)
			rt, re := e.narrow(c.Right, lt)
			return rt, le.JoinEnv(re)
		case ir.OpOr:
			lt, le := e.narrow(c.Left, env)
			rt, re := e.narrow(c.Right, le)
			return lt.JoinEnv(rt), re
		}
	case *ir.UnaryExpr:
		if c.Op == ir.OpNot {
			t, f := e.narrow(c.X, env)
			return f, t
		}
	}
	return env.Clone(), env.Clone()
}

func identAndNothing(a, b ir.Expr) (*ir.IdentExpr, bool) {
	if id, ok := a.(*ir.IdentExpr); ok {
		if lit, ok := b.(*ir.LiteralExpr); ok && lit.Kind == ir.LitNothing {
			return id, true
		}
	}
	if id, ok := b.(*ir.IdentExpr); ok {
		if lit, ok := a.(*ir.LiteralExpr); ok && lit.Kind == ir.LitNothing {
			return id, true
		}
	}
	return nil, false
}
