package loader

import (
	"context"
	"io"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"go.uber.org/zap"

	"github.com/wasmgraph/wasmgraph/errors"
)

// mediaTypeWasm is the media type requested for a component's layer.
const mediaTypeWasm = types.MediaType("application/wasm")

// ociClient pulls a single wasm layer from an OCI registry using
// anonymous authentication.
type ociClient struct{}

func newOciClient() *ociClient {
	return &ociClient{}
}

// pull parses raw as an OCI image reference and returns the bytes of
// the first layer whose media type is application/wasm, falling back
// to the first layer if none match exactly.
func (c *ociClient) pull(ctx context.Context, raw string) ([]byte, error) {
	ref, err := name.ParseReference(raw)
	if err != nil {
		return nil, errors.OciParse(raw, err)
	}

	img, err := remote.Image(ref,
		remote.WithAuth(authn.Anonymous),
		remote.WithContext(ctx),
	)
	if err != nil {
		return nil, errors.OciPull(raw, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, errors.OciPull(raw, err)
	}
	if len(layers) == 0 {
		return nil, errors.OciPull(raw, errors.New(errors.PhaseFetch, errors.KindOciPull).
			Detail("image has no layers").Build())
	}

	layer := layers[0]
	for _, l := range layers {
		mt, err := l.MediaType()
		if err == nil && mt == mediaTypeWasm {
			layer = l
			break
		}
	}

	rc, err := layer.Uncompressed()
	if err != nil {
		return nil, errors.OciPull(raw, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.OciPull(raw, err)
	}

	logger.Info("pulled OCI artifact", zap.String("reference", raw), zap.Int("bytes", len(data)))
	return data, nil
}
