package oci

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	digestpkg "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/require"

	"github.com/devctl/devctl/internal/features"
)

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func newTestRegistry(t *testing.T, layer []byte) (*httptest.Server, features.FeatureRef) {
	t.Helper()
	layerDigest := digestpkg.FromBytes(layer)

	manifest := ocispec.Manifest{
		MediaType: FeatureArtifactMediaType,
		Layers: []ocispec.Descriptor{
			{MediaType: FeatureLayerMediaType, Digest: layerDigest, Size: int64(len(layer))},
		},
	}
	manifestBody, err := json.Marshal(manifest)
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v2/myorg/myfeature/manifests/1.0.0", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Docker-Content-Digest", digestpkg.FromBytes(manifestBody).String())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(manifestBody)
	})
	mux.HandleFunc("/v2/myorg/myfeature/blobs/"+layerDigest.String(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(layer)
	})
	mux.HandleFunc("/v2/myorg/myfeature/tags/list", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"tags": []string{"1.0.0", "1.0.1"}})
	})

	srv := httptest.NewServer(mux)
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	ref := features.FeatureRef{
		Type:       features.RefTypeOCI,
		Registry:   u.Host,
		Repository: "myorg",
		Resource:   "myfeature",
		Version:    "1.0.0",
	}
	return srv, ref
}

func TestFetchManifest(t *testing.T) {
	layer := tarball(t, map[string]string{"devcontainer-feature.json": `{"id":"myfeature"}`})
	srv, ref := newTestRegistry(t, layer)
	defer srv.Close()

	c := NewClient(t.TempDir())
	c.http.Transport = rewriteToTestServer{srv: srv}

	_, dig, err := c.FetchManifest(context.Background(), ref)
	require.NoError(t, err)
	require.NotEmpty(t, dig)
}

// rewriteToTestServer forces every request's scheme/host to point at an
// httptest.Server, since the client always builds https:// URLs.
type rewriteToTestServer struct {
	srv *httptest.Server
}

func (r rewriteToTestServer) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = r.srv.Listener.Addr().String()
	return http.DefaultTransport.RoundTrip(req)
}

func TestFetchFeature_ExtractsLayer(t *testing.T) {
	layer := tarball(t, map[string]string{"install.sh": "#!/bin/sh\necho hi\n"})
	srv, ref := newTestRegistry(t, layer)
	defer srv.Close()

	c := NewClient(t.TempDir())
	c.http.Transport = rewriteToTestServer{srv: srv}

	dest := filepath.Join(t.TempDir(), "feature")
	dig, err := c.FetchFeature(context.Background(), ref, dest)
	require.NoError(t, err)
	require.NotEmpty(t, dig)

	data, err := os.ReadFile(filepath.Join(dest, "install.sh"))
	require.NoError(t, err)
	require.Contains(t, string(data), "echo hi")
}

func TestListTags(t *testing.T) {
	srv, ref := newTestRegistry(t, tarball(t, map[string]string{"x": "y"}))
	defer srv.Close()

	c := NewClient(t.TempDir())
	c.http.Transport = rewriteToTestServer{srv: srv}

	tags, err := c.ListTags(context.Background(), ref)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"1.0.0", "1.0.1"}, tags)
}

func TestClampConcurrency(t *testing.T) {
	require.Equal(t, 1, ClampConcurrency(0))
	require.Equal(t, 1, ClampConcurrency(-5))
	require.Equal(t, 32, ClampConcurrency(100))
	require.Equal(t, 6, ClampConcurrency(6))
}
