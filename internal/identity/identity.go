// Package identity derives a container's identity (workspace/config
// fingerprints and the label set that encodes them) and selects the
// existing container, if any, that identity already belongs to.
// Grounded on the teacher's devcontainer.ComputeID/state.ComputeEnvKey
// (both hash realpath(workspace) with sha256) and internal/state's
// label-based selection pattern (internal/labels/manager.go's
// FindPrimaryContainer and internal/state/manager.go's GetState),
// narrowed to the exact four labels and three-outcome selection rule
// this core's identity model requires.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/state"
	"github.com/devctl/devctl/internal/util"
	"github.com/devctl/devctl/internal/xerrors"
)

// ToolName is the value written to the devcontainer.source label.
const ToolName = "devctl"

// Label keys written to every container this tool creates.
const (
	LabelSource        = "devcontainer.source"
	LabelWorkspaceHash = "devcontainer.workspaceHash"
	LabelConfigHash    = "devcontainer.configHash"
	LabelName          = "devcontainer.name"
)

// hashLen is the number of hex characters kept from a full sha256 sum,
// matching the truncation internal/oci already uses for its cache keys.
const hashLen = 16

// Identity is the fingerprint pair plus optional display name that
// together determine which containers belong to this workspace.
type Identity struct {
	WorkspaceHash string
	ConfigHash    string
	Name          string
}

// Derive computes the identity for a workspace and its resolved config.
// workspaceHash is stable under symlink resolution and path
// normalization; configHash is stable under comment/whitespace
// differences (config.ComputeHash already canonicalizes via RFC 8785
// before hashing).
func Derive(workspacePath string, cfg *config.DevcontainerConfig) (Identity, error) {
	workspaceHash, err := ComputeWorkspaceHash(workspacePath)
	if err != nil {
		return Identity{}, fmt.Errorf("computing workspace hash: %w", err)
	}

	configHash, err := ComputeConfigHash(cfg)
	if err != nil {
		return Identity{}, fmt.Errorf("computing config hash: %w", err)
	}

	return Identity{
		WorkspaceHash: workspaceHash,
		ConfigHash:    configHash,
		Name:          cfg.Name,
	}, nil
}

// ComputeWorkspaceHash hashes the canonicalized, symlink-resolved
// absolute workspace path.
func ComputeWorkspaceHash(workspacePath string) (string, error) {
	realPath, err := util.RealPath(workspacePath)
	if err != nil {
		realPath = workspacePath
	}
	realPath = util.NormalizePath(realPath)
	return truncatedHex([]byte(realPath)), nil
}

// ComputeConfigHash hashes the normalized config bytes via
// config.ComputeHash (RFC 8785 canonicalization), truncated to the
// same length as the workspace hash.
func ComputeConfigHash(cfg *config.DevcontainerConfig) (string, error) {
	full, err := config.ComputeHash(cfg)
	if err != nil {
		return "", err
	}
	if len(full) > hashLen {
		full = full[:hashLen]
	}
	return full, nil
}

func truncatedHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLen]
}

// Labels returns the full label set this identity should be written
// to a container with.
func (id Identity) Labels() map[string]string {
	labels := map[string]string{
		LabelSource:        ToolName,
		LabelWorkspaceHash: id.WorkspaceHash,
		LabelConfigHash:    id.ConfigHash,
	}
	if id.Name != "" {
		labels[LabelName] = id.Name
	}
	return labels
}

// Selector returns the label subset used to find candidate containers
// for this workspace. configHash is deliberately excluded: a selector
// that included it could never find a container whose config has since
// changed, which is exactly the case staleness detection needs to
// observe (compare the candidate's own devcontainer.configHash label
// against the current one, rather than filtering it out up front).
func (id Identity) Selector() map[string]string {
	return map[string]string{
		LabelSource:        ToolName,
		LabelWorkspaceHash: id.WorkspaceHash,
	}
}

// Candidate is a container matching an identity's selector.
type Candidate struct {
	ID         string
	Name       string
	Running    bool
	ConfigHash string
}

// Select finds the containers matching identity's selector and
// resolves the three outcomes the identity model defines: no match (no
// reuse), exactly one (the reuse candidate), or two-or-more
// (CategoryValidation ContainerAmbiguous naming every match).
func Select(ctx context.Context, client state.ContainerClient, id Identity) (*Candidate, error) {
	summaries, err := client.ListContainersWithLabels(ctx, id.Selector())
	if err != nil {
		return nil, fmt.Errorf("listing containers for workspace %s: %w", id.WorkspaceHash, err)
	}

	switch len(summaries) {
	case 0:
		return nil, nil
	case 1:
		return candidateFromSummary(summaries[0]), nil
	default:
		ids := make([]string, len(summaries))
		for i, s := range summaries {
			ids[i] = s.ID
		}
		return nil, xerrors.ContainerAmbiguous(ids)
	}
}

// SelectExpectingExisting is Select, but treats zero matches as an
// error instead of "no reuse candidate" -- the expectExistingContainer
// mode, where the caller has asserted a container must already exist.
func SelectExpectingExisting(ctx context.Context, client state.ContainerClient, id Identity) (*Candidate, error) {
	candidate, err := Select(ctx, client, id)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, xerrors.ContainerNotFound(fmt.Sprintf("workspaceHash=%s", id.WorkspaceHash))
	}
	return candidate, nil
}

func candidateFromSummary(s state.ContainerSummary) *Candidate {
	return &Candidate{
		ID:         s.ID,
		Name:       s.Name,
		Running:    s.Running,
		ConfigHash: s.Labels[LabelConfigHash],
	}
}

// IsStale reports whether candidate's recorded config hash differs
// from the currently-computed one, i.e. whether the config changed
// since this container was created.
func (c Candidate) IsStale(currentConfigHash string) bool {
	return c.ConfigHash != "" && c.ConfigHash != currentConfigHash
}

// RemoveAll stops and removes every container matching identity's
// selector, implementing the removeExistingContainer flag: a forced
// stop-and-remove of all matches prior to creation.
func RemoveAll(ctx context.Context, client state.ContainerClient, id Identity) error {
	summaries, err := client.ListContainersWithLabels(ctx, id.Selector())
	if err != nil {
		return fmt.Errorf("listing containers for workspace %s: %w", id.WorkspaceHash, err)
	}

	var firstErr error
	for _, s := range summaries {
		if s.Running {
			if err := client.StopContainer(ctx, s.ID, nil); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("stopping container %s: %w", s.ID, err)
				continue
			}
		}
		if err := client.RemoveContainer(ctx, s.ID, true, false); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("removing container %s: %w", s.ID, err)
		}
	}
	return firstErr
}
