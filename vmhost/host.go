// Package vmhost wires a single wazero-backed runtime.Runtime with
// the full WASI Preview2 host surface and exposes it to concurrently
// running Tasks as a read-only, content-hash-keyed component cache.
package vmhost

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"go.uber.org/zap"

	"github.com/wasmgraph/wasmgraph/errors"
	"github.com/wasmgraph/wasmgraph/reference"
	"github.com/wasmgraph/wasmgraph/runtime"
	"github.com/wasmgraph/wasmgraph/wasi/preview2"
)

var logger *zap.Logger = zap.NewNop()

// SetLogger installs l as the package logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// Host owns the wazero engine and the compiled-component cache
// shared across all Tasks running against it. A Host is safe for
// concurrent use once constructed; it holds no per-task state.
type Host struct {
	rt *runtime.Runtime

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	ready  chan struct{}
	module *runtime.Module
	err    error
}

// New creates a Host, spinning up the underlying WASM engine and
// registering the complete WASI Preview2 capability surface once.
// The same WASI environment (clocks, random, filesystem, sockets,
// http, cli) is shared by every component this Host compiles, since
// wazero host module registration happens once per engine.
func New(ctx context.Context) (*Host, error) {
	rt, err := runtime.New(ctx)
	if err != nil {
		return nil, err
	}

	wasi := preview2.New()
	if err := rt.RegisterWASI(wasi); err != nil {
		return nil, errors.Registration(errors.PhaseHost, "wasi", "preview2", err)
	}

	return &Host{
		rt:    rt,
		cache: make(map[string]*cacheEntry),
	}, nil
}

// Close releases the underlying engine. All instances derived from
// this Host must be closed first.
func (h *Host) Close(ctx context.Context) error {
	return h.rt.Close(ctx)
}

// Runtime exposes the underlying runtime.Runtime for operations the
// Host type does not itself wrap (e.g. WASI stdio wiring per-Task).
func (h *Host) Runtime() *runtime.Runtime {
	return h.rt
}

// Compile returns the compiled module for the given component bytes,
// keyed by a SHA-256 content hash so that two dependencies resolving
// to byte-identical component binaries (e.g. the same OCI digest
// fetched via two manifest entries) compile exactly once for the
// lifetime of the Host. Concurrent callers requesting the same
// content block on the first caller's compile rather than racing it.
// ref is used only for logging context.
func (h *Host) Compile(ctx context.Context, ref reference.Reference, data []byte) (*runtime.Module, error) {
	key := contentKey(data)

	h.mu.Lock()
	entry, ok := h.cache[key]
	if !ok {
		entry = &cacheEntry{ready: make(chan struct{})}
		h.cache[key] = entry
	}
	h.mu.Unlock()

	if !ok {
		entry.module, entry.err = h.compile(ctx, ref, data)
		close(entry.ready)
	} else {
		select {
		case <-entry.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return entry.module, entry.err
}

func (h *Host) compile(ctx context.Context, ref reference.Reference, data []byte) (*runtime.Module, error) {
	module, err := h.rt.LoadComponent(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := module.Compile(ctx); err != nil {
		return nil, err
	}
	logger.Info("compiled component", zap.String("reference", ref.String()), zap.Int("bytes", len(data)))
	return module, nil
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
