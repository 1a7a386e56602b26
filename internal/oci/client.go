// Package oci implements the subset of the OCI distribution protocol the
// core needs to resolve, cache, and publish devcontainer features:
// fetchManifest, fetchLayer, fetchFeature, publishFeature, and listTags.
// Grounded on the teacher's internal/features/resolver.go (raw HTTP
// registry client, bearer-token auth, tar/gzip extraction, content
// integrity) generalized to use the OCI manifest/digest types from
// opencontainers/image-spec and go-digest, retried through
// internal/retry, and bounded by a worker-count semaphore.
package oci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codeclysm/extract/v4"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/devctl/devctl/internal/features"
	"github.com/devctl/devctl/internal/retry"
	"github.com/devctl/devctl/internal/xerrors"
)

// DefaultConcurrency is the default number of in-flight registry
// requests. Per-operation callers may override it, clamped to [1,32].
const DefaultConcurrency = 6

// ClampConcurrency bounds a requested concurrency level to [1,32].
func ClampConcurrency(n int) int {
	switch {
	case n < 1:
		return 1
	case n > 32:
		return 32
	default:
		return n
	}
}

// Client talks to OCI distribution-spec registries over HTTPS.
type Client struct {
	http     *http.Client
	retry    retry.Config
	cacheDir string
}

// NewClient returns a Client that caches fetched feature content under
// cacheDir and retries transient failures per the default retry policy.
func NewClient(cacheDir string) *Client {
	return &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		retry:    retry.Default(),
		cacheDir: cacheDir,
	}
}

// WithRetry returns a copy of c using cfg for retries.
func (c *Client) WithRetry(cfg retry.Config) *Client {
	c2 := *c
	c2.retry = cfg
	return &c2
}

// WithHTTPClient returns a copy of c issuing requests through hc instead
// of the default client, e.g. to redirect requests to a test registry.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c2 := *c
	c2.http = hc
	return &c2
}

func classifyHTTPError(err error) retry.Decision {
	if xe, ok := xerrors.As(err); ok {
		if xe.Category == xerrors.CategoryAuthentication {
			return retry.Stop
		}
	}
	return retry.Retry
}

// FetchManifest retrieves and parses the OCI manifest for ref, returning
// the manifest and its content digest (from Docker-Content-Digest, or
// computed from the body if the registry omits it).
func (c *Client) FetchManifest(ctx context.Context, ref features.FeatureRef) (ocispec.Manifest, digest.Digest, error) {
	type result struct {
		manifest ocispec.Manifest
		dig      digest.Digest
	}

	r, err := retry.Do(ctx, c.retry, classifyHTTPError, func(ctx context.Context) (result, error) {
		token, _ := c.registryToken(ctx, ref)

		reference := ref.Version
		url := fmt.Sprintf("https://%s/v2/%s/%s/manifests/%s", ref.Registry, ref.Repository, ref.Resource, reference)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return result{}, xerrors.Internal("building manifest request", err)
		}
		req.Header.Set("Accept", "application/vnd.oci.image.manifest.v1+json, application/vnd.docker.distribution.manifest.v2+json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return result{}, xerrors.DownloadFailed(ref.CanonicalID(), err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return result{}, xerrors.DownloadFailed(ref.CanonicalID(), err)
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return result{}, xerrors.AuthFailed(ref.Registry, fmt.Errorf("status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return result{}, xerrors.DownloadFailed(ref.CanonicalID(), fmt.Errorf("registry returned %d: %s", resp.StatusCode, string(body)))
		}

		var m ocispec.Manifest
		if err := json.Unmarshal(body, &m); err != nil {
			return result{}, xerrors.Wrap(err, xerrors.CategoryParse, xerrors.CodeManifestParse, "parsing OCI manifest").WithContext("ref", ref.CanonicalID())
		}

		dig := digest.Digest(resp.Header.Get("Docker-Content-Digest"))
		if dig == "" || dig.Validate() != nil {
			dig = digest.FromBytes(body)
		}
		return result{manifest: m, dig: dig}, nil
	})
	return r.manifest, r.dig, err
}

// FetchLayer downloads a single manifest layer's content.
func (c *Client) FetchLayer(ctx context.Context, ref features.FeatureRef, layer ocispec.Descriptor) ([]byte, error) {
	return retry.Do(ctx, c.retry, classifyHTTPError, func(ctx context.Context) ([]byte, error) {
		token, _ := c.registryToken(ctx, ref)
		url := fmt.Sprintf("https://%s/v2/%s/%s/blobs/%s", ref.Registry, ref.Repository, ref.Resource, layer.Digest.String())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, xerrors.Internal("building blob request", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, xerrors.DownloadFailed(ref.CanonicalID(), err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, xerrors.DownloadFailed(ref.CanonicalID(), err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, xerrors.DownloadFailed(ref.CanonicalID(), fmt.Errorf("blob fetch returned %d", resp.StatusCode))
		}
		if err := layer.Digest.Validate(); err == nil {
			if verifyDigest := digest.FromBytes(body); verifyDigest != layer.Digest {
				return nil, xerrors.DownloadFailed(ref.CanonicalID(), fmt.Errorf("layer digest mismatch: want %s got %s", layer.Digest, verifyDigest))
			}
		}
		return body, nil
	})
}

// FetchFeature resolves, downloads, and extracts a feature's content
// layer into destPath, which is created if absent. It returns the
// resolved manifest digest for lockfile/cache bookkeeping.
func (c *Client) FetchFeature(ctx context.Context, ref features.FeatureRef, destPath string) (digest.Digest, error) {
	manifest, manifestDigest, err := c.FetchManifest(ctx, ref)
	if err != nil {
		return "", err
	}

	var layer *ocispec.Descriptor
	for i := range manifest.Layers {
		if strings.Contains(manifest.Layers[i].MediaType, "tar") {
			layer = &manifest.Layers[i]
			break
		}
	}
	if layer == nil {
		return "", xerrors.DownloadFailed(ref.CanonicalID(), fmt.Errorf("manifest has no tar layer"))
	}

	body, err := c.FetchLayer(ctx, ref, *layer)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(destPath, 0o755); err != nil {
		return "", xerrors.ExtractionFailed(destPath, err)
	}
	if err := extract.Tar(ctx, bytes.NewReader(body), destPath, nil); err != nil {
		return "", xerrors.ExtractionFailed(destPath, err)
	}

	return manifestDigest, nil
}

// ListTags returns the tags published under ref's repository.
func (c *Client) ListTags(ctx context.Context, ref features.FeatureRef) ([]string, error) {
	return retry.Do(ctx, c.retry, classifyHTTPError, func(ctx context.Context) ([]string, error) {
		token, _ := c.registryToken(ctx, ref)
		url := fmt.Sprintf("https://%s/v2/%s/%s/tags/list", ref.Registry, ref.Repository, ref.Resource)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, xerrors.Internal("building tags list request", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, xerrors.DownloadFailed(ref.CanonicalID(), err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, xerrors.DownloadFailed(ref.CanonicalID(), fmt.Errorf("tags list returned %d", resp.StatusCode))
		}

		var out struct {
			Tags []string `json:"tags"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, xerrors.Wrap(err, xerrors.CategoryParse, xerrors.CodeManifestParse, "parsing tags list response")
		}
		return out.Tags, nil
	})
}

// cachePath returns the cache directory for a canonical feature
// reference. The directory name is a truncated sha256 of the reference
// string itself, tag included; it is not derived from the content's
// digest, so two tags of the same content get separate directories.
func (c *Client) cachePath(canonicalID string) string {
	return filepath.Join(c.cacheDir, cacheKey(canonicalID))
}
