package ipo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arbor-lang/arbor/internal/infer"
	"github.com/arbor-lang/arbor/internal/ir"
	"github.com/arbor-lang/arbor/internal/lattice"
	"github.com/sirupsen/logrus"
)

// maxWorklistSteps bounds total worklist iterations per SCC defensively;
// spec §4.3 does not name a numeric cap here (unlike the intra-procedural
// MAX_INFERENCE_ITERATIONS), but an unbounded worklist over a pathological
// program would never terminate without one.
const maxWorklistSteps = 10_000

// cacheKey identifies one (function identity, parameter-type tuple) pair
// (spec §4.3: "Cache the final return type keyed by (function identity,
// parameter-type tuple)").
type cacheKey struct {
	fn     string
	params string
}

func keyFor(fn string, params []*lattice.LatticeType) cacheKey {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.String()
	}
	return cacheKey{fn: fn, params: strings.Join(parts, ",")}
}

// Engine runs whole-program interprocedural return-type inference (spec
// §4.3), driving internal/infer.Engine per function and caching results.
type Engine struct {
	Infer     *infer.Engine
	Functions map[string]*ir.Function
	// cache holds each analyzed function's final return type, keyed by
	// function name and the parameter-type tuple Analyze's paramsOf gave it.
	cache map[cacheKey]*lattice.LatticeType
	graph *Graph
	log   *logrus.Entry
}

// NewEngine constructs an Engine over the given function set.
func NewEngine(infEngine *infer.Engine, functions map[string]*ir.Function) *Engine {
	return &Engine{
		Infer:     infEngine,
		Functions: functions,
		cache:     make(map[cacheKey]*lattice.LatticeType),
		log:       logrus.WithField("component", "ipo"),
	}
}

// resolverView implements infer.ReturnResolver by consulting e's in-flight
// "returns" map for a specific SCC (current best estimate, possibly still
// Bottom) and e.cache for already-finalized functions outside it.
type resolverView struct {
	e        *Engine
	inFlight map[string]*lattice.LatticeType
	paramsOf func(name string) []*lattice.LatticeType
}

func (r *resolverView) Resolve(name string, args []*lattice.LatticeType) (*lattice.LatticeType, bool) {
	if t, ok := r.inFlight[name]; ok {
		return t, true
	}
	if fn, ok := r.e.Functions[name]; ok {
		_ = fn
		if t, ok := r.e.cache[keyFor(name, r.paramsOf(name))]; ok {
			return t, true
		}
	}
	return nil, false
}

// BuildGraph runs one exploratory inference pass per function (with no
// resolver, i.e. falling back to static method-table signatures) purely to
// discover the direct-call edges, then returns the resulting call graph.
func (e *Engine) BuildGraph(paramsOf func(name string) []*lattice.LatticeType) *Graph {
	g := NewGraph()
	for name := range e.Functions {
		g.AddNode(name)
	}
	for name, fn := range e.Functions {
		params := bindParams(fn, paramsOf(name))
		res := e.Infer.InferFunction(fn, params)
		for _, cs := range res.CallSites {
			g.AddEdge(name, cs.Callee)
		}
	}
	e.graph = g
	return g
}

func bindParams(fn *ir.Function, types []*lattice.LatticeType) map[string]*lattice.LatticeType {
	out := make(map[string]*lattice.LatticeType)
	for i, p := range fn.Params {
		if i < len(types) {
			out[p.Name] = types[i]
		}
	}
	return out
}

// Analyze runs the full interprocedural fixpoint (spec §4.3): SCC
// decomposition, then per-SCC worklist inference initialized at Bottom,
// caching final results keyed by (function, parameter tuple).
func (e *Engine) Analyze(paramsOf func(name string) []*lattice.LatticeType) map[string]*lattice.LatticeType {
	g := e.BuildGraph(paramsOf)
	sccs := g.SCCs()

	for _, scc := range sccs {
		e.processSCC(scc, paramsOf)
	}

	out := make(map[string]*lattice.LatticeType, len(e.Functions))
	for name := range e.Functions {
		out[name] = e.cache[keyFor(name, paramsOf(name))]
	}
	return out
}

func (e *Engine) processSCC(scc []string, paramsOf func(name string) []*lattice.LatticeType) {
	inFlight := make(map[string]*lattice.LatticeType, len(scc))
	for _, name := range scc {
		inFlight[name] = lattice.Bottom() // spec §4.3: "Initialize every function in the SCC with return type Bottom"
	}

	resolver := &resolverView{e: e, inFlight: inFlight, paramsOf: paramsOf}
	e.Infer.Resolver = resolver
	defer func() { e.Infer.Resolver = nil }()

	worklist := append([]string(nil), scc...)
	steps := 0
	for len(worklist) > 0 && steps < maxWorklistSteps {
		steps++
		name := worklist[0]
		worklist = worklist[1:]

		fn := e.Functions[name]
		params := bindParams(fn, paramsOf(name))
		res := e.Infer.InferFunction(fn, params)

		prev := inFlight[name]
		next := lattice.Join(prev, res.Return)
		if !lattice.Equal(prev, next) {
			inFlight[name] = next
			for _, caller := range sccCallersOf(e.graph, scc, name) {
				worklist = append(worklist, caller)
			}
		}
	}
	if steps >= maxWorklistSteps {
		e.log.Warn("IPO worklist exceeded step budget, capping at Any")
		for name := range inFlight {
			inFlight[name] = lattice.Top()
		}
	}

	for name, t := range inFlight {
		e.cache[keyFor(name, paramsOf(name))] = t
	}
}

// sccCallersOf returns the members of scc that directly call name, used to
// decide who needs re-analysis when name's return type changes (spec
// §4.3: "if its inferred return type changes, add every caller back to the
// worklist" — scoped to the current SCC, since cross-SCC callers are
// analyzed in a later, not-yet-started pass per the reverse-topological
// order).
func sccCallersOf(g *Graph, scc []string, name string) []string {
	members := make(map[string]bool, len(scc))
	for _, m := range scc {
		members[m] = true
	}
	var out []string
	for _, m := range scc {
		for _, c := range g.Callees(m) {
			if c == name {
				out = append(out, m)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// CachedReturn looks up a previously-computed return type, the fast path
// spec §4.3 describes: "The cache is consulted before analysis; hits
// return instantly, misses drive analysis."
func (e *Engine) CachedReturn(name string, params []*lattice.LatticeType) (*lattice.LatticeType, bool) {
	t, ok := e.cache[keyFor(name, params)]
	return t, ok
}

// String renders k as fn(params).
func (k cacheKey) String() string { return fmt.Sprintf("%s(%s)", k.fn, k.params) }
