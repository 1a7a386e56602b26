package featuremerge

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	digestpkg "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/require"

	"github.com/devctl/devctl/internal/features"
	"github.com/devctl/devctl/internal/oci"
)

func TestMerge_ConfigWinsTieByDefault(t *testing.T) {
	result := Merge(MergeInput{
		ConfigFeatures: map[string]map[string]features.OptionValue{"ghcr.io/x/y": {"v": "config"}},
		CLIFeatures:    map[string]map[string]features.OptionValue{"ghcr.io/x/y": {"v": "cli"}},
	})
	require.Len(t, result.Merged, 1)
	require.Equal(t, "config", result.Merged[0].Options["v"])
}

func TestMerge_PreferCliFeaturesWins(t *testing.T) {
	result := Merge(MergeInput{
		ConfigFeatures:    map[string]map[string]features.OptionValue{"ghcr.io/x/y": {"v": "config"}},
		CLIFeatures:       map[string]map[string]features.OptionValue{"ghcr.io/x/y": {"v": "cli"}},
		PreferCliFeatures: true,
	})
	require.Len(t, result.Merged, 1)
	require.Equal(t, "cli", result.Merged[0].Options["v"])
}

func TestMerge_SkipFeatureAutoMappingDropsCliWithNotice(t *testing.T) {
	result := Merge(MergeInput{
		ConfigFeatures:         map[string]map[string]features.OptionValue{"ghcr.io/x/y": {"v": "config"}},
		CLIFeatures:            map[string]map[string]features.OptionValue{"ghcr.io/x/z": {"v": "cli"}},
		SkipFeatureAutoMapping: true,
	})
	require.Len(t, result.Merged, 1)
	require.Equal(t, "ghcr.io/x/y", result.Merged[0].CanonicalID)
	require.NotEmpty(t, result.Notices)
}

func TestMerge_CanonicalIDCollapsesTaggedAndUntagged(t *testing.T) {
	result := Merge(MergeInput{
		ConfigFeatures: map[string]map[string]features.OptionValue{"ghcr.io/x/y:1": {"v": "tagged"}},
		CLIFeatures:    map[string]map[string]features.OptionValue{"ghcr.io/x/y": {"v": "untagged"}},
	})
	require.Len(t, result.Merged, 1)
	require.Equal(t, "tagged", result.Merged[0].Options["v"])
}

func TestMerge_PreservesDeclarationOrderWithCliOnlyAppended(t *testing.T) {
	result := Merge(MergeInput{
		ConfigFeatures: map[string]map[string]features.OptionValue{"ghcr.io/x/a": {}},
		CLIFeatures:    map[string]map[string]features.OptionValue{"ghcr.io/x/b": {}},
	})
	require.Len(t, result.Merged, 2)
	require.Equal(t, "ghcr.io/x/a", result.Merged[0].CanonicalID)
	require.Equal(t, "ghcr.io/x/b", result.Merged[1].CanonicalID)
}

func tarball(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content))}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func featureRoute(t *testing.T, mux *http.ServeMux, resource, id string) {
	layer := tarball(t, map[string]string{"devcontainer-feature.json": `{"id":"` + id + `"}`})
	layerDigest := digestpkg.FromBytes(layer)
	manifest := ocispec.Manifest{
		MediaType: oci.FeatureArtifactMediaType,
		Layers: []ocispec.Descriptor{
			{MediaType: oci.FeatureLayerMediaType, Digest: layerDigest, Size: int64(len(layer))},
		},
	}
	manifestBody, _ := json.Marshal(manifest)

	mux.HandleFunc("/v2/myorg/"+resource+"/manifests/1.0.0", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Docker-Content-Digest", digestpkg.FromBytes(manifestBody).String())
		_, _ = w.Write(manifestBody)
	})
	mux.HandleFunc("/v2/myorg/"+resource+"/blobs/"+layerDigest.String(), func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(layer)
	})
}

type rewriteToHost struct{ host string }

func (r rewriteToHost) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = r.host
	return http.DefaultTransport.RoundTrip(req)
}

func TestFetchMetadata_PreservesDeclarationOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	featureRoute(t, mux, "alpha", "alpha")
	featureRoute(t, mux, "beta", "beta")
	srv := httptest.NewServer(mux)
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	merged := []MergedFeature{
		{CanonicalID: u.Host + "/myorg/beta:1.0.0", Options: map[string]features.OptionValue{}},
		{CanonicalID: u.Host + "/myorg/alpha:1.0.0", Options: map[string]features.OptionValue{}},
	}

	client := oci.NewClient(t.TempDir()).WithHTTPClient(&http.Client{Transport: rewriteToHost{host: u.Host}})

	out, err := FetchMetadata(context.Background(), client, merged, 6)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "beta", out[0].Metadata.ID)
	require.Equal(t, "alpha", out[1].Metadata.ID)
}
