package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/wasmgraph/wasmgraph/errors"
	"github.com/wasmgraph/wasmgraph/reference"
)

func TestLoadLocal_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(allowedRootEnv, dir)

	path := filepath.Join(dir, "empty.wasm")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	ref, err := reference.Parse(path)
	if err != nil {
		t.Fatal(err)
	}

	data, err := New().Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected zero bytes, got %d", len(data))
	}
}

func TestLoadLocal_OutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	t.Setenv(allowedRootEnv, root)

	path := filepath.Join(outside, "evil.wasm")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ref, err := reference.Parse(path)
	if err != nil {
		t.Fatal(err)
	}

	_, err = New().Load(context.Background(), ref)
	if err == nil {
		t.Fatal("expected ForbiddenPath error")
	}
	werr, ok := err.(*errors.Error)
	if !ok || werr.Kind != errors.KindForbiddenPath {
		t.Fatalf("expected KindForbiddenPath, got %v", err)
	}
}

func TestLoadLocal_MissingFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(allowedRootEnv, dir)

	ref, err := reference.Parse(filepath.Join(dir, "nope.wasm"))
	if err != nil {
		t.Fatal(err)
	}

	_, err = New().Load(context.Background(), ref)
	if err == nil {
		t.Fatal("expected Io error")
	}
	werr, ok := err.(*errors.Error)
	if !ok || werr.Kind != errors.KindIo {
		t.Fatalf("expected KindIo, got %v", err)
	}
}

func TestLoadRemote_ForbiddenScheme(t *testing.T) {
	ref, err := reference.Parse("http://example.com/x.wasm")
	if err != nil {
		t.Fatal(err)
	}

	_, err = New().Load(context.Background(), ref)
	if err == nil {
		t.Fatal("expected ForbiddenScheme error")
	}
	werr, ok := err.(*errors.Error)
	if !ok || werr.Kind != errors.KindForbiddenScheme {
		t.Fatalf("expected KindForbiddenScheme, got %v", err)
	}
}

func TestLoadRemote_Success(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("wasm-bytes"))
	}))
	defer srv.Close()

	// httptest.NewTLSServer presents a self-signed cert; point the
	// loader's client at it directly rather than exercising TLS trust.
	l := New()
	l.client = srv.Client()

	data, err := l.loadRemote(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "wasm-bytes" {
		t.Errorf("got %q", data)
	}
}

func TestLoadRemote_HTTPStatus(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := New()
	l.client = srv.Client()

	_, err := l.loadRemote(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected Http error")
	}
	werr, ok := err.(*errors.Error)
	if !ok || werr.Kind != errors.KindHTTPStatus {
		t.Fatalf("expected KindHTTPStatus, got %v", err)
	}
}
