// Package reference classifies an opaque dependency string into one of
// three artifact backends: a local filesystem path, an HTTPS/HTTP URL,
// or an OCI image reference.
package reference

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/wasmgraph/wasmgraph/errors"
)

// Kind tags which backend a Reference resolves to.
type Kind int

const (
	Local Kind = iota
	Remote
	Oci
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Remote:
		return "remote"
	case Oci:
		return "oci"
	}
	return "unknown"
}

// Reference is an immutable, classified artifact locator.
type Reference struct {
	kind Kind
	path string // Local: filesystem path. Remote/Oci: the original text.
}

// Kind reports which backend this Reference resolves to.
func (r Reference) Kind() Kind { return r.kind }

// Path returns the local filesystem path. Valid only when Kind() == Local.
func (r Reference) Path() string { return r.path }

// String renders the original text: the path for Local, the original
// URL or image reference for Remote/Oci.
func (r Reference) String() string { return r.path }

// ociPattern matches a bare OCI image reference such as
// "ghcr.io/acme/component:v1" or "acme/component@sha256:abc...".
var ociPattern = regexp.MustCompile(`^[\w.\-]+(/[\w.\-]+)+(:[\w.\-]+)?(@sha256:[a-fA-F0-9]+)?$`)

// Parse classifies raw into a Reference using the ordered rules:
//  1. https/http URL -> Remote
//  2. oci-scheme URL -> Oci(path)
//  3. leading "./", "../", or "/" -> Local
//  4. bare OCI image-reference pattern -> Oci(raw)
//  5. otherwise -> UnrecognizedReference
func Parse(raw string) (Reference, error) {
	trimmed := strings.TrimSpace(raw)

	if u, err := url.Parse(trimmed); err == nil && u.Scheme != "" {
		switch u.Scheme {
		case "https", "http":
			return Reference{kind: Remote, path: trimmed}, nil
		case "oci":
			return Reference{kind: Oci, path: strings.TrimPrefix(u.Path, "/")}, nil
		}
	}

	if strings.HasPrefix(trimmed, "./") || strings.HasPrefix(trimmed, "../") || strings.HasPrefix(trimmed, "/") {
		return Reference{kind: Local, path: trimmed}, nil
	}

	if ociPattern.MatchString(trimmed) {
		return Reference{kind: Oci, path: trimmed}, nil
	}

	return Reference{}, errors.UnrecognizedReference(raw)
}
