// Package loader fetches the bytes backing a reference.Reference under
// per-scheme sandboxing policy. Loader performs no caching: repeated
// Load calls for the same Reference re-fetch.
package loader

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wasmgraph/wasmgraph/errors"
	"github.com/wasmgraph/wasmgraph/reference"
)

var logger *zap.Logger = zap.NewNop()

// SetLogger configures the loader package's logger.
func SetLogger(l *zap.Logger) { logger = l }

const allowedRootEnv = "WASM_PATH"

// Loader fetches reference bytes for Local, Remote, and Oci references.
type Loader struct {
	client *http.Client
	oci    *ociClient
}

// New creates a Loader with default HTTP and OCI clients.
func New() *Loader {
	return &Loader{
		client: http.DefaultClient,
		oci:    newOciClient(),
	}
}

// Load fetches the bytes for ref, enforcing the per-scheme policy
// described in the component design.
func (l *Loader) Load(ctx context.Context, ref reference.Reference) ([]byte, error) {
	switch ref.Kind() {
	case reference.Local:
		return l.loadLocal(ref.Path())
	case reference.Remote:
		return l.loadRemote(ctx, ref.String())
	case reference.Oci:
		return l.oci.pull(ctx, ref.String())
	default:
		return nil, errors.New(errors.PhaseFetch, errors.KindUnsupported).
			Detail("unknown reference kind").Build()
	}
}

func allowedRoot() (string, error) {
	if root := os.Getenv(allowedRootEnv); root != "" {
		return filepath.Abs(root)
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Abs(filepath.Join(cwd, "wasm"))
	}
	return filepath.Abs("./wasm")
}

func (l *Loader) loadLocal(path string) ([]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseFetch, errors.KindInvalidData, err, "canonicalize local path")
	}

	root, err := allowedRoot()
	if err != nil {
		return nil, errors.Wrap(errors.PhaseFetch, errors.KindInvalidData, err, "resolve allowed root")
	}

	resolved := abs
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		resolved = real
	}
	realRoot := root
	if real, err := filepath.EvalSymlinks(root); err == nil {
		realRoot = real
	}

	if resolved != realRoot && !strings.HasPrefix(resolved, realRoot+string(filepath.Separator)) {
		return nil, errors.ForbiddenPath(path, root)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		logger.Warn("local load failed", zap.String("path", abs), zap.Error(err))
		return nil, errors.Io("read "+abs, err)
	}
	return data, nil
}

func (l *Loader) loadRemote(ctx context.Context, rawURL string) ([]byte, error) {
	if !strings.HasPrefix(rawURL, "https://") {
		var scheme string
		if idx := strings.Index(rawURL, "://"); idx >= 0 {
			scheme = rawURL[:idx]
		}
		return nil, errors.ForbiddenScheme(scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseFetch, errors.KindInvalidData, err, "build request")
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, errors.Network("GET "+rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.HTTPStatus(rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Network("read body of "+rawURL, err)
	}

	logger.Info("fetched remote artifact", zap.String("url", rawURL), zap.Int("bytes", len(data)))
	return data, nil
}
