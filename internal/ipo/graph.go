// Package ipo implements interprocedural analysis (spec §4.3): the call
// graph, Tarjan SCC detection, and the reverse-topological worklist that
// refines each function's inferred return type using its callees' current
// best estimate.
package ipo

import "sort"

// Graph is a directed call graph: nodes are function names, edges are
// direct calls (spec §9: "stored as {node → list of caller ids}"... here
// we store callee edges, with a Callers index derived on demand, both
// keyed by name rather than by owning pointer, per spec §9's "No cycles in
// owning references").
type Graph struct {
	nodes map[string]bool
	edges map[string][]string // caller -> direct callees
}

// NewGraph returns an empty call graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]bool), edges: make(map[string][]string)}
}

// AddNode registers a function name as a graph node, even if it has no
// edges (a leaf function with no calls).
func (g *Graph) AddNode(name string) {
	g.nodes[name] = true
}

// AddEdge records a direct call from caller to callee. Edges to names not
// registered via AddNode (e.g. builtins, or functions outside this
// compilation unit) are recorded but never participate in SCC detection.
func (g *Graph) AddEdge(caller, callee string) {
	g.edges[caller] = append(g.edges[caller], callee)
}

// Callees returns caller's direct callees, deduplicated.
func (g *Graph) Callees(caller string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range g.edges[caller] {
		if !g.nodes[c] {
			continue // external call, not part of this compilation unit's graph
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out) // deterministic iteration order
	return out
}

// Callers returns every node with a direct edge to callee, within the graph.
func (g *Graph) Callers(callee string) []string {
	var out []string
	for caller := range g.nodes {
		for _, c := range g.Callees(caller) {
			if c == callee {
				out = append(out, caller)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Nodes returns every node name, sorted.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// tarjanState carries the iterative Tarjan bookkeeping. Implemented with an
// explicit stack rather than recursion (spec §9: "Implementers should
// reach for an arena + index whenever a language's borrow checker or
// cycle-detector complains" — here, to keep SCC detection safe on deep
// call graphs without relying on Go's goroutine stack growth).
type tarjanState struct {
	g        *Graph
	index    map[string]int
	lowlink  map[string]int
	onStack  map[string]bool
	stack    []string
	counter  int
	sccs     [][]string
}

// frame is one level of the explicit DFS stack: the node being visited and
// how far through its callee list we've progressed.
type frame struct {
	node     string
	callees  []string
	childIdx int
}

// SCCs returns the graph's strongly connected components using Tarjan's
// algorithm, in the order Tarjan emits them — reverse topological order of
// the caller→callee edges (spec §4.3: "Find SCCs (Tarjan) ... For each SCC
// in reverse topological order"), meaning a callee-only SCC with no
// further outgoing calls is emitted before any SCC that calls into it.
func (g *Graph) SCCs() [][]string {
	st := &tarjanState{
		g:       g,
		index:   make(map[string]int),
		lowlink: make(map[string]int),
		onStack: make(map[string]bool),
	}
	for _, n := range g.Nodes() {
		if _, visited := st.index[n]; !visited {
			st.strongConnect(n)
		}
	}
	return st.sccs
}

func (st *tarjanState) strongConnect(start string) {
	var dfsStack []*frame
	push := func(n string) {
		st.index[n] = st.counter
		st.lowlink[n] = st.counter
		st.counter++
		st.stack = append(st.stack, n)
		st.onStack[n] = true
		dfsStack = append(dfsStack, &frame{node: n, callees: st.g.Callees(n)})
	}
	push(start)

	for len(dfsStack) > 0 {
		top := dfsStack[len(dfsStack)-1]
		if top.childIdx < len(top.callees) {
			child := top.callees[top.childIdx]
			top.childIdx++
			if _, visited := st.index[child]; !visited {
				push(child)
				continue
			} else if st.onStack[child] {
				if st.index[child] < st.lowlink[top.node] {
					st.lowlink[top.node] = st.index[child]
				}
			}
			continue
		}

		// Finished exploring top.node's callees: pop and propagate lowlink.
		dfsStack = dfsStack[:len(dfsStack)-1]
		if len(dfsStack) > 0 {
			parent := dfsStack[len(dfsStack)-1]
			if st.lowlink[top.node] < st.lowlink[parent.node] {
				st.lowlink[parent.node] = st.lowlink[top.node]
			}
		}

		if st.lowlink[top.node] == st.index[top.node] {
			var scc []string
			for {
				n := st.stack[len(st.stack)-1]
				st.stack = st.stack[:len(st.stack)-1]
				st.onStack[n] = false
				scc = append(scc, n)
				if n == top.node {
					break
				}
			}
			sort.Strings(scc) // deterministic member order within an SCC
			st.sccs = append(st.sccs, scc)
		}
	}
}
