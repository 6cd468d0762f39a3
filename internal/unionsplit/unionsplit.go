// Package unionsplit implements the optional union-splitting specializer
// described in spec §4.4: detect isa/=== nothing tests on union-typed
// variables, split the environment into narrowed arms, let a caller-supplied
// analyzer process each arm independently, then merge the arms' results back
// together with lattice.Join while tracking which outer names each arm wrote.
package unionsplit

import (
	"github.com/arbor-lang/arbor/internal/infer"
	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/arbor-lang/arbor/internal/lattice"
)

// Candidate is one isa/=== nothing test found on a union-typed variable,
// the unit of work union splitting specializes over.
type Candidate struct {
	Var  string
	Cond ir.Expr
	Type *lattice.LatticeType // the union type the variable held before the split

	// TargetType is the isa test's right-hand type, resolved against the
	// type-name table passed to Split. Nil for an === nothing test, and nil
	// for an isa test whose type name wasn't found in the table.
	TargetType *lattice.LatticeType
}

// Arm is one specialized branch: the narrowed environment an analyzer should
// re-run its analysis under, plus a human-readable label for diagnostics.
type Arm struct {
	Label string
	Env   *infer.Env
}

// Analyzer is supplied by the caller (the bytecode compiler or AoT emitter)
// to re-analyze or re-emit a statement list under a narrowed environment.
// It returns the env resulting from running stmts under in, and the set of
// outer-scope names the arm wrote to.
type Analyzer func(stmts []ir.Stmt, in *infer.Env) (out *infer.Env, written map[string]bool)

// Split finds every isa/=== nothing test in cond whose subject is bound to a
// union type in env, and returns one Candidate for each, in left-to-right
// order. It walks through &&, || and ! to reach tests nested inside them.
//
// typeNames resolves an isa test's right-hand identifier (e.g. "Int64") to
// the lattice type it names, the same table infer.Engine.TypeNames keeps for
// resolving type expressions; pass nil to skip isa target resolution (the
// candidate's TargetType stays nil and narrowing falls back to the
// variable's pre-split union type).
func Split(cond ir.Expr, env *infer.Env, typeNames map[string]*lattice.LatticeType) []Candidate {
	var out []Candidate
	var walk func(ir.Expr)
	walk = func(e ir.Expr) {
		switch n := e.(type) {
		case *ir.CallExpr:
			if n.Callee == "isa" && len(n.Args) == 2 {
				if id, ok := n.Args[0].(*ir.IdentExpr); ok {
					t := env.Lookup(id.Name)
					if t.Kind() == lattice.KindUnion {
						c := Candidate{Var: id.Name, Cond: e, Type: t}
						if name, ok := n.Args[1].(*ir.IdentExpr); ok {
							if target, ok := typeNames[name.Name]; ok {
								c.TargetType = target
							}
						}
						out = append(out, c)
					}
				}
			}
		case *ir.BinaryExpr:
			if n.Op == ir.OpIdentical || n.Op == ir.OpEq || n.Op == ir.OpNe {
				if id, lit := identNothing(n.Left, n.Right); id != nil && lit {
					t := env.Lookup(id.Name)
					if t.Kind() == lattice.KindUnion {
						out = append(out, Candidate{Var: id.Name, Cond: e, Type: t})
					}
				}
			}
			if n.Op == ir.OpAnd || n.Op == ir.OpOr {
				walk(n.Left)
				walk(n.Right)
			}
		case *ir.UnaryExpr:
			if n.Op == ir.OpNot {
				walk(n.X)
			}
		}
	}
	walk(cond)
	return out
}

func identNothing(a, b ir.Expr) (*ir.IdentExpr, bool) {
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

// Result is the outcome of specializing and merging every arm of one
// candidate split.
type Result struct {
	Merged  *infer.Env
	Written map[string]bool
}

// SpecializeIf runs thenStmts under c's then-narrowed env and elseStmts
// under its else-narrowed env (via engine.narrow-equivalent subtraction),
// then merges the two arms per spec §4.4: "Merging tracks effects (writes to
// outer names) to ensure the merged env after the join reflects the union of
// writes."
func SpecializeIf(c Candidate, env *infer.Env, thenStmts, elseStmts []ir.Stmt, analyze Analyzer) Result {
	thenEnv := env.Clone().Bind(c.Var, narrowToIsaArm(c))
	elseEnv := env.SubtractVar(c.Var, narrowToIsaArm(c))

	thenOut, thenWritten := analyze(thenStmts, thenEnv)
	elseOut, elseWritten := analyze(elseStmts, elseEnv)

	merged := thenOut.JoinEnv(elseOut)
	written := make(map[string]bool, len(thenWritten)+len(elseWritten))
	for k := range thenWritten {
		written[k] = true
	}
	for k := range elseWritten {
		written[k] = true
	}
	// Any name written on only one arm still needs its merged type widened
	// against its pre-split type, since the arm that didn't write it kept
	// the narrowed (not the post-write) type — JoinEnv already does this
	// for keys present on both sides, but a name unique to one arm's
	// output env needs the other arm's pre-split binding folded in too.
	for k := range written {
		if !thenOut.Has(k) || !elseOut.Has(k) {
			merged = merged.Clone()
			merged.Bind(k, lattice.Join(thenOut.Lookup(k), elseOut.Lookup(k)))
		}
	}
	return Result{Merged: merged, Written: written}
}

// narrowToIsaArm returns the then-arm type for c: an === nothing test
// narrows to exactly Nothing; an isa(x, T) test narrows to T met against
// the variable's pre-split union type, so a T wider than any union member
// still narrows down to the member(s) actually possible. If T couldn't be
// resolved (TargetType nil), the pre-split union type is returned unchanged
// since no tighter bound is known.
func narrowToIsaArm(c Candidate) *lattice.LatticeType {
	if _, ok := c.Cond.(*ir.BinaryExpr); ok {
		return lattice.Concrete(lattice.CNothing)
	}
	if c.TargetType != nil {
		return lattice.Meet(c.TargetType, c.Type)
	}
	return c.Type
}
