// Package prototype builds the immutable, shared workflow graph a
// manifest describes: resolving dependencies, compiling components,
// resolving function export signatures, decoding literal inputs, and
// wiring edges, while enforcing every invariant the manifest format
// requires. It performs no guest calls; that is package task's job.
package prototype

import (
	"context"
	"sort"

	"go.bytecodealliance.org/wit"

	"github.com/wasmgraph/wasmgraph/errors"
	"github.com/wasmgraph/wasmgraph/manifest"
	"github.com/wasmgraph/wasmgraph/reference"
	"github.com/wasmgraph/wasmgraph/value"
)

// Signature is the subset of runtime.Module's surface the builder
// needs to resolve a node's function. *runtime.Module satisfies this
// interface structurally, with no adapter required.
type Signature interface {
	ExportSignature(name string) (paramNames []string, params []wit.Type, results []wit.Type, err error)
}

// Loader is the subset of loader.Loader's surface the builder needs.
// *loader.Loader satisfies this interface structurally.
type Loader interface {
	Load(ctx context.Context, ref reference.Reference) ([]byte, error)
}

// CompileFunc compiles fetched component bytes into a Signature. In
// production this wraps vmhost.Host.Compile, whose concrete
// *runtime.Module return value satisfies Signature.
type CompileFunc func(ctx context.Context, ref reference.Reference, data []byte) (Signature, error)

// Prototype is the immutable workflow template built from a manifest:
// a graph plus the compiled component each function vertex runs
// against. It is safe to share by reference across concurrently
// running Tasks.
type Prototype struct {
	Graph      *Graph
	Components map[manifest.ComponentName]Signature
	Order      []int
}

// Build implements the prototype construction algorithm: dependency
// resolution, component fetch/compile, function signature resolution,
// literal decode, edge wiring, and cycle detection.
func Build(ctx context.Context, ldr Loader, compile CompileFunc, m *manifest.Manifest) (*Prototype, error) {
	g := newGraph()
	components := make(map[manifest.ComponentName]Signature)
	pending := make(map[int]map[string]bool)

	for _, nodeID := range sortedNodeIDs(m.Nodes) {
		node := m.Nodes[nodeID]

		rawRef, ok := m.Dependencies[node.Use]
		if !ok {
			return nil, errors.DependencyNotFound(string(nodeID), string(node.Use))
		}

		sig, ok := components[node.Use]
		if !ok {
			ref, err := reference.Parse(rawRef)
			if err != nil {
				return nil, err
			}
			data, err := ldr.Load(ctx, ref)
			if err != nil {
				return nil, err
			}
			sig, err = compile(ctx, ref, data)
			if err != nil {
				return nil, err
			}
			components[node.Use] = sig
		}

		paramNames, paramTypes, resultTypes, err := sig.ExportSignature(string(node.Run))
		if err != nil {
			return nil, errors.InvalidNode(string(nodeID), string(node.Run), err)
		}

		fnIdx := g.addVertex(Vertex{
			Kind:        VertexFunction,
			Component:   node.Use,
			NodeID:      nodeID,
			Function:    node.Run,
			ParamNames:  paramNames,
			ParamTypes:  paramTypes,
			ResultTypes: resultTypes,
		})
		g.NodeIndex[nodeID] = fnIdx

		unresolved := make(map[string]bool)
		for i, name := range paramNames {
			literal, hasWith := node.With[manifest.InputName(name)]
			if !hasWith {
				unresolved[name] = true
				continue
			}
			v, err := value.Decode(literal, paramTypes[i])
			if err != nil {
				return nil, err
			}
			valIdx := g.addVertex(Vertex{Kind: VertexValue, Value: v})
			g.addEdge(valIdx, fnIdx, manifest.InputName(name))
		}
		if len(unresolved) > 0 {
			pending[fnIdx] = unresolved
		}
	}

	for _, e := range m.Edges {
		sourceIdx, ok := g.NodeIndex[e.Source]
		if !ok {
			return nil, errors.InvalidEdge("edge source " + string(e.Source) + " is not a known node")
		}
		targetIdx, ok := g.NodeIndex[e.Target]
		if !ok {
			return nil, errors.InvalidEdge("edge target " + string(e.Target) + " is not a known node")
		}

		target := g.Vertices[targetIdx]
		matched := false
		for _, name := range target.ParamNames {
			if name == string(e.Input) {
				matched = true
				break
			}
		}
		if !matched {
			return nil, errors.InvalidEdge("edge input " + string(e.Input) + " is not a parameter of node " + string(e.Target))
		}

		if req, ok := pending[targetIdx]; !ok || !req[string(e.Input)] {
			return nil, errors.InvalidEdge("node " + string(e.Target) + " parameter " + string(e.Input) + " already has a literal input")
		}
		delete(pending[targetIdx], string(e.Input))

		g.addEdge(sourceIdx, targetIdx, e.Input)
	}

	pendingIdxs := make([]int, 0, len(pending))
	for fnIdx := range pending {
		pendingIdxs = append(pendingIdxs, fnIdx)
	}
	sort.Ints(pendingIdxs)
	for _, fnIdx := range pendingIdxs {
		names := make([]string, 0, len(pending[fnIdx]))
		for name := range pending[fnIdx] {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			return nil, errors.MissingInput(string(g.Vertices[fnIdx].NodeID), names[0])
		}
	}

	order, err := g.topoOrder()
	if err != nil {
		return nil, err
	}

	return &Prototype{Graph: g, Components: components, Order: order}, nil
}

func sortedNodeIDs(nodes map[manifest.NodeId]manifest.Node) []manifest.NodeId {
	ids := make([]manifest.NodeId, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
