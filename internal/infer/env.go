// Package infer implements the whole-program abstract interpreter
// described in spec §4.2 ("Abstract interpretation engine"): a per-function
// type environment fixpoint over the CFG (approximated here as a
// structured tree walk over internal/ir, since the Core IR is already
// block-structured), with conditional narrowing and loop element
// inference.
package infer

import "github.com/arbor-lang/arbor/internal/lattice"

// Env is a mapping from variable name to LatticeType (spec §4.2:
// "Environment. A mapping from variable name to LatticeType").
type Env struct {
	vars map[string]*lattice.LatticeType
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]*lattice.LatticeType)}
}

// Lookup returns the type bound to name, or Any if unbound (an unbound
// read is treated as a widen-to-Any rather than an inference failure, per
// spec §7's "never fails" policy).
func (e *Env) Lookup(name string) *lattice.LatticeType {
	if t, ok := e.vars[name]; ok {
		return t
	}
	return lattice.Top()
}

// Has reports whether name is bound in e.
func (e *Env) Has(name string) bool {
	_, ok := e.vars[name]
	return ok
}

// Bind sets name's type, returning e for chaining.
func (e *Env) Bind(name string, t *lattice.LatticeType) *Env {
	e.vars[name] = t
	return e
}

// Clone returns a deep-enough copy of e (LatticeType values are immutable,
// so only the map needs copying).
func (e *Env) Clone() *Env {
	c := NewEnv()
	for k, v := range e.vars {
		c.vars[k] = v
	}
	return c
}

// JoinEnv computes the pointwise join of e and other: for keys present in
// both, Join(e[k], other[k]); for a key present in only one side, the
// result is widened to Any, per spec §4.2 ("join_env(other) (pointwise
// join on common keys, union with Any for keys in only one side)").
func (e *Env) JoinEnv(other *Env) *Env {
	out := NewEnv()
	for k, v := range e.vars {
		if ov, ok := other.vars[k]; ok {
			out.vars[k] = lattice.Join(v, ov)
		} else {
			out.vars[k] = lattice.Top()
		}
	}
	for k := range other.vars {
		if _, ok := e.vars[k]; !ok {
			out.vars[k] = lattice.Top()
		}
	}
	return out
}

// SubtractVar narrows name's binding by removing t's members, per spec
// §4.2 ("subtract_env(var, t)"), used by else-branch narrowing.
func (e *Env) SubtractVar(name string, t *lattice.LatticeType) *Env {
	c := e.Clone()
	c.vars[name] = lattice.Subtract(c.Lookup(name), t)
	return c
}

// Equal reports whether e and other bind exactly the same variables to
// equal types, used by the fixpoint loop to detect convergence.
func (e *Env) Equal(other *Env) bool {
	if len(e.vars) != len(other.vars) {
		return false
	}
	for k, v := range e.vars {
		ov, ok := other.vars[k]
		if !ok || !lattice.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Names returns every bound variable name.
func (e *Env) Names() []string {
	out := make([]string, 0, len(e.vars))
	for k := range e.vars {
		out = append(out, k)
	}
	return out
}
