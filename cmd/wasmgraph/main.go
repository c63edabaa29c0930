package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wasmgraph/wasmgraph/loader"
	"github.com/wasmgraph/wasmgraph/manifest"
	"github.com/wasmgraph/wasmgraph/prototype"
	"github.com/wasmgraph/wasmgraph/reference"
	"github.com/wasmgraph/wasmgraph/runtime"
	"github.com/wasmgraph/wasmgraph/task"
	"github.com/wasmgraph/wasmgraph/value"
	"github.com/wasmgraph/wasmgraph/vmhost"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	sub := os.Args[1]
	fs := flag.NewFlagSet(sub, flag.ExitOnError)
	workflow := fs.String("workflow", "", "Path to a workflow manifest (.json/.yaml/.yml)")
	verbose := fs.Bool("v", false, "Enable verbose logging")
	fs.Parse(os.Args[2:])

	if *workflow == "" {
		usage()
		os.Exit(1)
	}

	if *verbose {
		l, _ := zap.NewDevelopment()
		loader.SetLogger(l)
		vmhost.SetLogger(l)
		task.SetLogger(l)
	}

	var err error
	switch sub {
	case "parse":
		err = runParse(*workflow)
	case "run":
		err = runRun(*workflow)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: wasmgraph parse -workflow <path>")
	fmt.Fprintln(os.Stderr, "       wasmgraph run -workflow <path>")
}

func build(ctx context.Context, workflowPath string) (*prototype.Prototype, *vmhost.Host, error) {
	m, err := manifest.Load(workflowPath)
	if err != nil {
		return nil, nil, err
	}

	host, err := vmhost.New(ctx)
	if err != nil {
		return nil, nil, err
	}

	ldr := loader.New()
	compile := func(ctx context.Context, ref reference.Reference, data []byte) (prototype.Signature, error) {
		return host.Compile(ctx, ref, data)
	}

	proto, err := prototype.Build(ctx, ldr, compile, m)
	if err != nil {
		host.Close(ctx)
		return nil, nil, err
	}
	return proto, host, nil
}

func runParse(workflowPath string) error {
	ctx := context.Background()

	proto, host, err := build(ctx, workflowPath)
	if err != nil {
		return err
	}
	defer host.Close(ctx)

	type nodeSummary struct {
		NodeID  string         `json:"nodeId"`
		Use     string         `json:"use"`
		Run     string         `json:"run"`
		Inputs  map[string]any `json:"inputs"`
		Outputs []any          `json:"outputs"`
	}

	var summary []nodeSummary
	for _, v := range proto.Order {
		vertex := proto.Graph.Vertices[v]
		if vertex.Kind != prototype.VertexFunction {
			continue
		}
		inputs := make(map[string]any, len(vertex.ParamTypes))
		for i, t := range vertex.ParamTypes {
			inputs[vertex.ParamNames[i]] = typeSchema(t)
		}
		outputs := make([]any, len(vertex.ResultTypes))
		for i, t := range vertex.ResultTypes {
			outputs[i] = typeSchema(t)
		}
		summary = append(summary, nodeSummary{
			NodeID:  string(vertex.NodeID),
			Use:     string(vertex.Component),
			Run:     string(vertex.Function),
			Inputs:  inputs,
			Outputs: outputs,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func runRun(workflowPath string) error {
	ctx := context.Background()

	proto, host, err := build(ctx, workflowPath)
	if err != nil {
		return err
	}
	defer host.Close(ctx)

	instantiate := func(ctx context.Context, name manifest.ComponentName) (task.Invoker, error) {
		sig, ok := proto.Components[name]
		if !ok {
			return nil, fmt.Errorf("component %q was not compiled", name)
		}
		module, ok := sig.(*runtime.Module)
		if !ok {
			return nil, fmt.Errorf("component %q has no runnable module", name)
		}
		return module.Instantiate(ctx)
	}

	tk, err := task.New(ctx, proto, instantiate)
	if err != nil {
		return err
	}
	defer tk.Close(ctx)

	events := tk.Subscribe()
	done := make(chan error, 1)
	go func() {
		done <- tk.Run(ctx)
	}()

	for e := range events {
		printEvent(proto, e)
	}

	return <-done
}

// typeSchema renders a wit type as its JSON-schema fragment, falling
// back to the Go type name for the few shapes JSONSchema rejects
// (resource handles).
func typeSchema(t wit.Type) any {
	schema, err := value.JSONSchema(t)
	if err != nil {
		return fmt.Sprintf("%T", t)
	}
	return schema
}

// printEvent emits one JSON object per event line. Succeeded values
// are rendered back to wave literal text when the node's result type
// is known.
func printEvent(proto *prototype.Prototype, e task.Event) {
	line := map[string]any{
		"event": e.Kind.String(),
		"node":  string(e.NodeID),
	}
	switch e.Kind {
	case task.ExecutionStarted:
		if len(e.Params) > 0 {
			params := make(map[string]string, len(e.Params))
			for name, v := range e.Params {
				params[name] = fmt.Sprintf("%v", v)
			}
			line["params"] = params
		}
	case task.ExecutionSucceeded:
		text := fmt.Sprintf("%v", e.Value)
		if t := resultType(proto, e.NodeID); t != nil {
			if rendered, err := value.Render(e.Value, t); err == nil {
				text = rendered
			}
		}
		line["value"] = text
	case task.ExecutionFailed:
		line["cause"] = e.Cause
	}

	out, err := json.Marshal(line)
	if err != nil {
		fmt.Printf("{\"event\":%q,\"node\":%q}\n", e.Kind.String(), e.NodeID)
		return
	}
	fmt.Println(string(out))
}

func resultType(proto *prototype.Prototype, nodeID manifest.NodeId) wit.Type {
	idx, ok := proto.Graph.NodeIndex[nodeID]
	if !ok {
		return nil
	}
	vertex := proto.Graph.Vertices[idx]
	if len(vertex.ResultTypes) == 0 {
		return nil
	}
	return vertex.ResultTypes[0]
}
