package oci

import (
	"context"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/devctl/devctl/internal/features"
)

// ResolveOptions tunes a single feature resolution.
type ResolveOptions struct {
	// ForcePull skips the cache and re-fetches from the registry.
	ForcePull bool
	// ExpectedManifestDigest, if set (e.g. from a lockfile), is
	// compared against the cached entry; a mismatch forces a re-fetch.
	ExpectedManifestDigest digest.Digest
}

// Resolve returns the local, extracted path for ref's feature content,
// fetching and caching it first if necessary.
func (c *Client) Resolve(ctx context.Context, ref features.FeatureRef, opts ResolveOptions) (string, digest.Digest, error) {
	dir := c.cachePath(ref.CanonicalID())

	if !opts.ForcePull {
		if _, err := os.Stat(dir); err == nil {
			if entry, ok := readCacheEntry(dir); ok {
				if opts.ExpectedManifestDigest == "" || cacheDigest(entry) == opts.ExpectedManifestDigest {
					return dir, cacheDigest(entry), nil
				}
			} else {
				// Pre-existing directory with no recorded provenance: trust it.
				return dir, "", nil
			}
		}
	} else {
		_ = os.RemoveAll(dir)
	}

	manifestDigest, err := c.FetchFeature(ctx, ref, dir)
	if err != nil {
		return "", "", err
	}
	_ = writeCacheEntry(dir, cacheEntry{ManifestDigest: manifestDigest.String(), Integrity: manifestDigest.String()})
	return dir, manifestDigest, nil
}

func cacheDigest(entry cacheEntry) digest.Digest {
	return digest.Digest(entry.ManifestDigest)
}
