// Package wasmruntime is the root of a workflow execution engine that
// runs directed acyclic graphs of WebAssembly component function calls.
//
// A workflow manifest declares component dependencies (fetched from
// local disk, HTTPS URLs, or OCI registries), nodes that each invoke
// one exported function with literal inputs, and edges that wire one
// node's output to another node's named input parameter. The engine
// compiles the components, validates the graph against their typed
// export signatures, then executes nodes in topological order,
// propagating values across edges.
//
// # Architecture Overview
//
// The workflow layer sits on top of an in-tree Component Model VM:
//
//	wasmgraph/           Root package with core Memory and Allocator interfaces
//	├── manifest/        Workflow manifest data model and JSON/YAML loading
//	├── reference/       Dependency reference classification (local/https/oci)
//	├── loader/          Artifact fetching under per-scheme sandbox policy
//	├── vmhost/          Process-wide engine + WASI linker + component cache
//	├── prototype/       Manifest -> validated, acyclic execution graph
//	├── task/            One isolated execution of a prototype, with events
//	├── value/           Wave literal decode/render and JSON schema emission
//	├── cmd/wasmgraph/   The parse/run CLI front-end
//	│
//	├── runtime/         High-level API for loading and running components
//	├── engine/          Low-level wazero integration and canonical ABI
//	├── linker/          Component instantiation and import resolution
//	├── component/       Component binary parsing and validation
//	├── transcoder/      Canonical ABI encoding/decoding between Go and WASM
//	├── wasm/            Core WASM binary manipulation primitives
//	├── wat/             WAT text format to WASM binary compiler
//	├── asyncify/        Pure Go asyncify transform for async operations
//	├── resource/        Resource handle table implementation
//	├── errors/          Structured error types for debugging
//	└── wasi/            WASI preview2 host implementations
//
// # Quick Start
//
// Build a prototype from a manifest and run it:
//
//	host, err := vmhost.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Close(ctx)
//
//	m, err := manifest.Load("workflow.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	compile := func(ctx context.Context, ref reference.Reference, data []byte) (prototype.Signature, error) {
//	    return host.Compile(ctx, ref, data)
//	}
//	proto, err := prototype.Build(ctx, loader.New(), compile, m)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tk, err := task.New(ctx, proto, instantiate)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tk.Close(ctx)
//
//	events := tk.Subscribe()
//	go tk.Run(ctx)
//	for e := range events {
//	    fmt.Println(e.Kind, e.NodeID)
//	}
//
// The VM layer can also be used directly, without the workflow engine:
//
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.LoadComponent(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	result, err := inst.Call(ctx, "greet", "World")
//	fmt.Println(result) // "Hello, World!"
//
// # Component Model Support
//
// The VM supports the full WIT type system:
//
//   - Primitives: bool, u8-u64, s8-s64, f32, f64, char, string
//   - Compound: list<T>, option<T>, result<T, E>, tuple<...>
//   - Named: record, variant, enum, flags
//   - Resources: resource handles with lifecycle management
//
// # Thread Safety
//
// Host, Runtime, Module, and Prototype are safe for concurrent use.
// Instance and Task are NOT thread-safe; each Task owns its instances
// exclusively and runs its nodes serially, so multiple Tasks may run
// concurrently against one shared Host.
//
// # Memory Model
//
// WASM linear memory can only grow, never shrink. This is a WebAssembly
// specification limitation. When guest applications free memory, it remains
// allocated but available for reuse within the WASM instance.
//
// For memory-intensive workloads, consider instance pooling where instances
// are periodically recycled to reclaim memory.
package wasmruntime
