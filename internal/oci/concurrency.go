package oci

import (
	"context"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/devctl/devctl/internal/features"
)

// FetchAllManifests fetches manifests for every ref concurrently, bounded
// by concurrency in-flight requests (clamped to [1,32]; see
// ClampConcurrency). Results preserve refs' order; the first error
// encountered cancels the remaining fetches and is returned.
func (c *Client) FetchAllManifests(ctx context.Context, refs []features.FeatureRef, concurrency int) ([]FetchedManifest, error) {
	sem := semaphore.NewWeighted(int64(ClampConcurrency(concurrency)))
	results := make([]FetchedManifest, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			manifest, dig, err := c.FetchManifest(ctx, ref)
			if err != nil {
				return err
			}
			results[i] = FetchedManifest{Ref: ref, Manifest: manifest, Digest: dig}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FetchedManifest pairs a feature reference with its resolved manifest.
type FetchedManifest struct {
	Ref      features.FeatureRef
	Manifest ocispec.Manifest
	Digest   digest.Digest
}

// ResolvedRef pairs a feature reference with its resolved, extracted
// cache path and manifest digest.
type ResolvedRef struct {
	Ref            features.FeatureRef
	Path           string
	ManifestDigest digest.Digest
}

// ResolveAll resolves (fetching and extracting as needed) every ref
// concurrently, bounded by concurrency in-flight resolutions. Results
// preserve refs' order regardless of completion order.
func (c *Client) ResolveAll(ctx context.Context, refs []features.FeatureRef, concurrency int) ([]ResolvedRef, error) {
	sem := semaphore.NewWeighted(int64(ClampConcurrency(concurrency)))
	results := make([]ResolvedRef, len(refs))

	g, ctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			path, dig, err := c.Resolve(ctx, ref, ResolveOptions{})
			if err != nil {
				return err
			}
			results[i] = ResolvedRef{Ref: ref, Path: path, ManifestDigest: dig}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
