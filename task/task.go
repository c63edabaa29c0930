// Package task executes one run of a prototype.Prototype: it
// instantiates every compiled component into an isolated store,
// walks the cloned graph in topological order invoking guest
// functions, and broadcasts progress events.
package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wasmgraph/wasmgraph/errors"
	"github.com/wasmgraph/wasmgraph/manifest"
	"github.com/wasmgraph/wasmgraph/prototype"
)

var logger *zap.Logger = zap.NewNop()

// SetLogger installs l as the package logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Invoker is the subset of runtime.Instance's surface a Task needs to
// dispatch a guest call. *runtime.Instance satisfies this interface
// structurally; Instance.Call already performs the canonical ABI
// post-return before it returns, so Run needs no separate hook for it.
type Invoker interface {
	Call(ctx context.Context, name string, args ...any) (any, error)
	Close(ctx context.Context) error
}

// InstantiateFunc instantiates the named dependency's compiled
// component into the Task's own store. In production this wraps
// (*runtime.Module).Instantiate; its concrete *runtime.Instance
// result satisfies Invoker with no adapter needed.
type InstantiateFunc func(ctx context.Context, component manifest.ComponentName) (Invoker, error)

// Task is one isolated execution of a Prototype: its own cloned
// graph (so output slots don't alias other Tasks), its own
// instantiated components, and its own event broadcaster.
type Task struct {
	ID          string
	graph       *prototype.Graph
	order       []int
	instances   map[manifest.ComponentName]Invoker
	broadcaster *Broadcaster
}

// New creates a Task from proto, eagerly instantiating every compiled
// dependency component into a fresh store via instantiate.
func New(ctx context.Context, proto *prototype.Prototype, instantiate InstantiateFunc) (*Task, error) {
	instances := make(map[manifest.ComponentName]Invoker, len(proto.Components))
	for name := range proto.Components {
		inv, err := instantiate(ctx, name)
		if err != nil {
			return nil, err
		}
		instances[name] = inv
	}

	return &Task{
		ID:          uuid.NewString(),
		graph:       proto.Graph.Clone(),
		order:       proto.Order,
		instances:   instances,
		broadcaster: NewBroadcaster(),
	}, nil
}

// Close releases every instantiated component's store.
func (t *Task) Close(ctx context.Context) error {
	var first error
	for _, inv := range t.instances {
		if err := inv.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Subscribe returns a new event receiver. May be called before or
// after Run begins; late subscribers miss past events.
func (t *Task) Subscribe() <-chan Event {
	return t.broadcaster.Subscribe()
}

// Run walks the task's graph in topological order, invoking each
// function vertex's guest export and broadcasting its progress. A
// per-node guest error is non-fatal: Run marks the node (and every
// node depending on it, transitively) failed and continues. Run
// returns a non-nil error only for a fatal condition: a malformed
// graph, or ctx being done.
func (t *Task) Run(ctx context.Context) error {
	defer t.broadcaster.Close()

	failedCause := make(map[int]string)

	for _, v := range t.order {
		if err := ctx.Err(); err != nil {
			return err
		}

		vertex := &t.graph.Vertices[v]
		if vertex.Kind == prototype.VertexValue {
			continue
		}
		if vertex.HasOutput {
			continue
		}

		if cause, skip := upstreamFailure(t.graph, v, failedCause); skip {
			failedCause[v] = cause
			logger.Info("skipping node downstream of failure",
				zap.String("task", t.ID), zap.String("node", string(vertex.NodeID)), zap.String("cause", cause))
			t.broadcaster.publish(Event{Kind: ExecutionFailed, NodeID: vertex.NodeID, Cause: "upstream failure: " + cause})
			continue
		}

		params := make(map[string]any, len(vertex.ParamNames))
		args := make([]any, len(vertex.ParamNames))
		for i, name := range vertex.ParamNames {
			edge, ok := findIncoming(t.graph, v, name)
			if !ok {
				return errors.Wrap(errors.PhaseExec, errors.KindVMInternal, nil,
					fmt.Sprintf("node %q: no source for parameter %q (malformed graph)", vertex.NodeID, name))
			}
			source := &t.graph.Vertices[edge.From]
			if source.Kind == prototype.VertexFunction && !source.HasOutput {
				return errors.Wrap(errors.PhaseExec, errors.KindVMInternal, nil,
					fmt.Sprintf("node %q: parameter %q source %q has no value yet (malformed graph)", vertex.NodeID, name, source.NodeID))
			}
			args[i] = source.Value
			params[name] = source.Value
		}

		t.broadcaster.publish(Event{Kind: ExecutionStarted, NodeID: vertex.NodeID, Params: params})

		inv, ok := t.instances[vertex.Component]
		if !ok {
			return errors.Wrap(errors.PhaseExec, errors.KindVMInternal, nil,
				fmt.Sprintf("node %q: component %q was not instantiated (malformed graph)", vertex.NodeID, vertex.Component))
		}

		result, err := inv.Call(ctx, string(vertex.Function), args...)
		if err != nil {
			guestErr := errors.GuestCall(string(vertex.NodeID), err)
			failedCause[v] = string(vertex.NodeID)
			t.broadcaster.publish(Event{Kind: ExecutionFailed, NodeID: vertex.NodeID, Cause: guestErr.Error()})
			continue
		}

		vertex.Value = result
		vertex.HasOutput = true
		t.broadcaster.publish(Event{Kind: ExecutionSucceeded, NodeID: vertex.NodeID, Value: result})
	}

	return nil
}

// upstreamFailure reports whether vertex v depends, directly or
// transitively, on a vertex already recorded in failedCause.
func upstreamFailure(g *prototype.Graph, v int, failedCause map[int]string) (string, bool) {
	for _, e := range g.Incoming(v) {
		if cause, failed := failedCause[e.From]; failed {
			return cause, true
		}
	}
	return "", false
}

func findIncoming(g *prototype.Graph, v int, input string) (prototype.Edge, bool) {
	for _, e := range g.Incoming(v) {
		if string(e.Input) == input {
			return e, true
		}
	}
	return prototype.Edge{}, false
}
