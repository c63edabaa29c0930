package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wasmgraph/wasmgraph/manifest"
	"github.com/wasmgraph/wasmgraph/prototype"
	"github.com/wasmgraph/wasmgraph/reference"
)

type exportSig struct {
	paramNames []string
	params     []wit.Type
	results    []wit.Type
}

type fakeSignature struct {
	exports map[string]exportSig
}

func (f *fakeSignature) ExportSignature(name string) ([]string, []wit.Type, []wit.Type, error) {
	s, ok := f.exports[name]
	if !ok {
		return nil, nil, nil, fmt.Errorf("no such export %q", name)
	}
	return s.paramNames, s.params, s.results, nil
}

type fakeLoader struct{}

func (fakeLoader) Load(ctx context.Context, ref reference.Reference) ([]byte, error) {
	return []byte("fake-bytes"), nil
}

type fakeInvoker struct {
	call func(ctx context.Context, name string, args ...any) (any, error)
}

func (f *fakeInvoker) Call(ctx context.Context, name string, args ...any) (any, error) {
	return f.call(ctx, name, args...)
}

func (f *fakeInvoker) Close(ctx context.Context) error { return nil }

func greetSignature() *fakeSignature {
	return &fakeSignature{exports: map[string]exportSig{
		"greet": {
			paramNames: []string{"name"},
			params:     []wit.Type{wit.String{}},
			results:    []wit.Type{wit.String{}},
		},
	}}
}

func buildGreetChain(t *testing.T) *prototype.Prototype {
	t.Helper()
	nodes := map[manifest.NodeId]manifest.Node{
		"n1": {Run: "greet", Use: "hello", With: map[manifest.InputName]string{"name": `"world"`}},
		"n2": {Run: "greet", Use: "hello"},
	}
	edges := []manifest.Edge{{Input: "name", Source: "n1", Target: "n2"}}
	m := &manifest.Manifest{
		Dependencies: map[manifest.ComponentName]string{"hello": "./wasm/hello.wasm"},
		Nodes:        nodes,
		Edges:        edges,
	}
	sig := greetSignature()
	compile := func(ctx context.Context, ref reference.Reference, data []byte) (prototype.Signature, error) {
		return sig, nil
	}
	p, err := prototype.Build(context.Background(), fakeLoader{}, compile, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return p
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for e := range ch {
		events = append(events, e)
	}
	return events
}

func TestRun_SuccessChain(t *testing.T) {
	proto := buildGreetChain(t)

	calls := 0
	instantiate := func(ctx context.Context, component manifest.ComponentName) (Invoker, error) {
		return &fakeInvoker{call: func(ctx context.Context, name string, args ...any) (any, error) {
			calls++
			return "hello, " + args[0].(string), nil
		}}, nil
	}

	tk, err := New(context.Background(), proto, instantiate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sub := tk.Subscribe()

	if err := tk.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	events := drain(sub)

	if calls != 2 {
		t.Fatalf("expected 2 guest calls, got %d", calls)
	}

	var succeeded int
	for _, e := range events {
		if e.Kind == ExecutionSucceeded {
			succeeded++
		}
		if e.Kind == ExecutionFailed {
			t.Errorf("unexpected failure event: %+v", e)
		}
	}
	if succeeded != 2 {
		t.Errorf("expected 2 succeeded events, got %d: %+v", succeeded, events)
	}

	// Topological ordering: n1 feeds n2, so n1's success must precede
	// n2's start on any subscriber that never lagged.
	idx := func(kind EventKind, node manifest.NodeId) int {
		for i, e := range events {
			if e.Kind == kind && e.NodeID == node {
				return i
			}
		}
		return -1
	}
	if s, b := idx(ExecutionSucceeded, "n1"), idx(ExecutionStarted, "n2"); s < 0 || b < 0 || s > b {
		t.Errorf("expected Succeeded(n1) before Started(n2): %+v", events)
	}
}

func TestRun_EmptyWorkflow(t *testing.T) {
	m := &manifest.Manifest{}
	compile := func(ctx context.Context, ref reference.Reference, data []byte) (prototype.Signature, error) {
		t.Fatal("compile should not be called for an empty workflow")
		return nil, nil
	}
	proto, err := prototype.Build(context.Background(), fakeLoader{}, compile, m)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	instantiate := func(ctx context.Context, component manifest.ComponentName) (Invoker, error) {
		t.Fatal("instantiate should not be called for an empty workflow")
		return nil, nil
	}
	tk, err := New(context.Background(), proto, instantiate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sub := tk.Subscribe()

	if err := tk.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if events := drain(sub); len(events) != 0 {
		t.Fatalf("expected no events, got %+v", events)
	}
}

func TestRun_DownstreamSkipsOnFailure(t *testing.T) {
	proto := buildGreetChain(t)

	instantiate := func(ctx context.Context, component manifest.ComponentName) (Invoker, error) {
		return &fakeInvoker{call: func(ctx context.Context, name string, args ...any) (any, error) {
			return nil, errors.New("boom")
		}}, nil
	}

	tk, err := New(context.Background(), proto, instantiate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sub := tk.Subscribe()

	if err := tk.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	events := drain(sub)

	var failed []Event
	for _, e := range events {
		if e.Kind == ExecutionFailed {
			failed = append(failed, e)
		}
	}
	if len(failed) != 2 {
		t.Fatalf("expected 2 failure events (direct + downstream skip), got %d: %+v", len(failed), events)
	}
	if failed[0].NodeID != "n1" {
		t.Errorf("expected n1 to fail first, got %+v", failed[0])
	}
	if failed[1].NodeID != "n2" || failed[1].Cause != "upstream failure: n1" {
		t.Errorf("expected n2 skipped with upstream cause, got %+v", failed[1])
	}
}

func TestRun_CancelledContext(t *testing.T) {
	proto := buildGreetChain(t)
	instantiate := func(ctx context.Context, component manifest.ComponentName) (Invoker, error) {
		return &fakeInvoker{call: func(ctx context.Context, name string, args ...any) (any, error) {
			return "ok", nil
		}}, nil
	}
	tk, err := New(context.Background(), proto, instantiate)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := tk.Run(ctx); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
