package oci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opencontainers/go-digest"
	specs "github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/devctl/devctl/internal/features"
	"github.com/devctl/devctl/internal/xerrors"
)

// FeatureLayerMediaType is the media type used for a feature's packaged
// tarball layer.
const FeatureLayerMediaType = "application/vnd.devcontainers.layer.v1+tar"

// FeatureArtifactMediaType is the manifest media type for a feature
// artifact.
const FeatureArtifactMediaType = "application/vnd.oci.image.manifest.v1+json"

// PublishFeature uploads a packaged feature tarball to ref's repository
// as a single-layer OCI artifact, using the registry's monolithic blob
// upload in four steps: initiate an upload session, PUT the blob in one
// shot against the returned location, PUT the manifest referencing that
// blob, and take the manifest digest from the registry's response,
// computing it locally when the response does not carry one.
func (c *Client) PublishFeature(ctx context.Context, ref features.FeatureRef, tarball []byte) (digest.Digest, error) {
	token, _ := c.registryToken(ctx, ref)
	blobDigest := digest.FromBytes(tarball)

	// Step 1: initiate upload session.
	initURL := fmt.Sprintf("https://%s/v2/%s/%s/blobs/uploads/", ref.Registry, ref.Repository, ref.Resource)
	initReq, err := http.NewRequestWithContext(ctx, http.MethodPost, initURL, nil)
	if err != nil {
		return "", xerrors.Internal("building upload-init request", err)
	}
	setAuth(initReq, token)
	initResp, err := c.http.Do(initReq)
	if err != nil {
		return "", xerrors.RuntimeFailed("publish-init", err)
	}
	defer initResp.Body.Close()
	if initResp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(initResp.Body)
		return "", xerrors.RuntimeFailed("publish-init", fmt.Errorf("status %d: %s", initResp.StatusCode, string(body)))
	}
	uploadLocation := initResp.Header.Get("Location")
	if uploadLocation == "" {
		return "", xerrors.RuntimeFailed("publish-init", fmt.Errorf("registry did not return an upload location"))
	}

	// Step 2: monolithic blob PUT with the digest as a query parameter.
	blobURL := uploadLocation
	if strings.ContainsRune(blobURL, '?') {
		blobURL += "&digest=" + blobDigest.String()
	} else {
		blobURL += "?digest=" + blobDigest.String()
	}
	blobReq, err := http.NewRequestWithContext(ctx, http.MethodPut, blobURL, bytes.NewReader(tarball))
	if err != nil {
		return "", xerrors.Internal("building blob-upload request", err)
	}
	blobReq.Header.Set("Content-Type", "application/octet-stream")
	setAuth(blobReq, token)
	blobResp, err := c.http.Do(blobReq)
	if err != nil {
		return "", xerrors.RuntimeFailed("publish-blob", err)
	}
	defer blobResp.Body.Close()
	if blobResp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(blobResp.Body)
		return "", xerrors.RuntimeFailed("publish-blob", fmt.Errorf("status %d: %s", blobResp.StatusCode, string(body)))
	}

	// Step 3: PUT the manifest referencing the uploaded blob.
	manifest := ocispec.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: FeatureArtifactMediaType,
		Config: ocispec.Descriptor{
			MediaType: "application/vnd.oci.empty.v1+json",
			Digest:    digest.FromBytes([]byte("{}")),
			Size:      2,
		},
		Layers: []ocispec.Descriptor{
			{
				MediaType: FeatureLayerMediaType,
				Digest:    blobDigest,
				Size:      int64(len(tarball)),
			},
		},
	}
	manifestBody, err := json.Marshal(manifest)
	if err != nil {
		return "", xerrors.Internal("encoding publish manifest", err)
	}

	manifestURL := fmt.Sprintf("https://%s/v2/%s/%s/manifests/%s", ref.Registry, ref.Repository, ref.Resource, ref.Version)
	manifestReq, err := http.NewRequestWithContext(ctx, http.MethodPut, manifestURL, bytes.NewReader(manifestBody))
	if err != nil {
		return "", xerrors.Internal("building manifest-upload request", err)
	}
	manifestReq.Header.Set("Content-Type", FeatureArtifactMediaType)
	setAuth(manifestReq, token)
	manifestResp, err := c.http.Do(manifestReq)
	if err != nil {
		return "", xerrors.RuntimeFailed("publish-manifest", err)
	}
	defer manifestResp.Body.Close()
	if manifestResp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(manifestResp.Body)
		return "", xerrors.RuntimeFailed("publish-manifest", fmt.Errorf("status %d: %s", manifestResp.StatusCode, string(body)))
	}

	// Step 4: confirm by taking the registry's content digest, falling
	// back to a locally computed digest if the registry omits it.
	manifestDigest := digest.Digest(manifestResp.Header.Get("Docker-Content-Digest"))
	if manifestDigest == "" || manifestDigest.Validate() != nil {
		manifestDigest = digest.FromBytes(manifestBody)
	}
	return manifestDigest, nil
}

func setAuth(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
