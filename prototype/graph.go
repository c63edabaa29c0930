package prototype

import (
	"go.bytecodealliance.org/wit"

	"github.com/wasmgraph/wasmgraph/errors"
	"github.com/wasmgraph/wasmgraph/manifest"
)

// VertexKind distinguishes the two vertex shapes a Prototype graph holds.
type VertexKind int

const (
	VertexFunction VertexKind = iota
	VertexValue
)

// Vertex is one node of the arena-of-vertices graph. Function vertices
// carry the resolved export signature needed to gather parameters and
// dispatch the call; Value vertices carry an already-decoded literal.
type Vertex struct {
	Kind VertexKind

	// Function fields.
	Component   manifest.ComponentName
	NodeID      manifest.NodeId
	Function    manifest.FunctionName
	ParamNames  []string
	ParamTypes  []wit.Type
	ResultTypes []wit.Type

	// Populated by Task execution, not by Prototype construction.
	Value     any
	HasOutput bool
}

// Edge connects a producer vertex to a consumer vertex. The value at
// From becomes the named parameter Input when evaluating To; a
// topological order must place From before To.
type Edge struct {
	From  int
	To    int
	Input manifest.InputName
}

// Graph is the arena-of-vertices structure backing both Prototype (the
// immutable, shared template) and Task (a per-execution clone with its
// own output slots).
type Graph struct {
	Vertices  []Vertex
	Edges     []Edge
	NodeIndex map[manifest.NodeId]int

	// incoming[v] lists the edges feeding vertex v, indexed by the
	// consumer: built once at construction for O(1) parameter
	// gathering during execution instead of a linear scan of Edges
	// per vertex per run.
	incoming map[int][]Edge
}

func newGraph() *Graph {
	return &Graph{
		NodeIndex: make(map[manifest.NodeId]int),
		incoming:  make(map[int][]Edge),
	}
}

func (g *Graph) addVertex(v Vertex) int {
	g.Vertices = append(g.Vertices, v)
	return len(g.Vertices) - 1
}

func (g *Graph) addEdge(from, to int, input manifest.InputName) {
	e := Edge{From: from, To: to, Input: input}
	g.Edges = append(g.Edges, e)
	g.incoming[to] = append(g.incoming[to], e)
}

// Incoming returns the edges whose target is vertex v.
func (g *Graph) Incoming(v int) []Edge {
	return g.incoming[v]
}

// Clone produces a deep copy of the graph with every function vertex's
// output slot reset, suitable for an independent Task execution.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		Vertices:  make([]Vertex, len(g.Vertices)),
		Edges:     make([]Edge, len(g.Edges)),
		NodeIndex: make(map[manifest.NodeId]int, len(g.NodeIndex)),
		incoming:  make(map[int][]Edge, len(g.incoming)),
	}
	copy(clone.Vertices, g.Vertices)
	for i := range clone.Vertices {
		clone.Vertices[i].HasOutput = false
		if clone.Vertices[i].Kind == VertexFunction {
			clone.Vertices[i].Value = nil
		}
	}
	copy(clone.Edges, g.Edges)
	for k, v := range g.NodeIndex {
		clone.NodeIndex[k] = v
	}
	for k, edges := range g.incoming {
		cp := make([]Edge, len(edges))
		copy(cp, edges)
		clone.incoming[k] = cp
	}
	return clone
}

// topoOrder computes a topological order over the graph using Kahn's
// algorithm, breaking ties by ascending vertex index (callers seed
// vertex order by sorted NodeId, so ties resolve in NodeId-lexical
// order). Returns an error naming an offending
// vertex's NodeId if the graph contains a cycle.
func (g *Graph) topoOrder() ([]int, error) {
	inDegree := make([]int, len(g.Vertices))
	for _, e := range g.Edges {
		inDegree[e.To]++
	}

	var ready []int
	for v, d := range inDegree {
		if d == 0 {
			ready = append(ready, v)
		}
	}

	outgoing := make(map[int][]Edge, len(g.Vertices))
	for _, e := range g.Edges {
		outgoing[e.From] = append(outgoing[e.From], e)
	}

	order := make([]int, 0, len(g.Vertices))
	for len(ready) > 0 {
		// smallest index first: with vertices added in sorted-NodeId
		// order during construction, this is the NodeId tie-break.
		minIdx := 0
		for i, v := range ready {
			if v < ready[minIdx] {
				minIdx = i
			}
		}
		v := ready[minIdx]
		ready = append(ready[:minIdx], ready[minIdx+1:]...)
		order = append(order, v)

		for _, e := range outgoing[v] {
			inDegree[e.To]--
			if inDegree[e.To] == 0 {
				ready = append(ready, e.To)
			}
		}
	}

	if len(order) != len(g.Vertices) {
		for v, d := range inDegree {
			if d > 0 {
				return nil, errors.Cycle(string(g.Vertices[v].NodeID))
			}
		}
	}

	return order, nil
}
