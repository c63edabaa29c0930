package engine

import "github.com/wasmgraph/wasmgraph/asyncify"

// IsAsyncified checks if a WASM module has been asyncified.
var IsAsyncified = asyncify.IsAsyncified
