// Package state persists per-workspace container/compose state across
// invocations (what container or compose project a workspace's last
// successful up produced) and exposes the selector-based container
// lookup internal/identity builds on.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Shutdown action values a state record may carry, mirroring the
// config file's shutdownAction enum.
const (
	ShutdownActionNone          = "none"
	ShutdownActionStopContainer = "stopContainer"
	ShutdownActionStopCompose   = "stopCompose"
)

// ContainerState is the record kept for a plain (non-compose) up.
type ContainerState struct {
	ContainerID    string `json:"containerId"`
	ContainerName  string `json:"containerName,omitempty"`
	ImageID        string `json:"imageId"`
	ShutdownAction string `json:"shutdownAction,omitempty"`
}

// ComposeState is the record kept for a docker-compose up. ID has no
// natural source (a compose project has no single container id) so it
// is minted once and carried forward across reuses.
type ComposeState struct {
	ID             string   `json:"id"`
	ProjectName    string   `json:"projectName"`
	ServiceName    string   `json:"serviceName"`
	BasePath       string   `json:"basePath"`
	ComposeFiles   []string `json:"composeFiles"`
	ShutdownAction string   `json:"shutdownAction,omitempty"`
}

// Record is the workspace state entry for one workspaceHash: exactly
// one of Container or Compose is populated.
type Record struct {
	Container *ContainerState `json:"container,omitempty"`
	Compose   *ComposeState   `json:"compose,omitempty"`
}

// ShutdownAction reports the shutdown action configured for this
// record, defaulting to ShutdownActionNone when neither side is set.
func (r Record) ShutdownAction() string {
	switch {
	case r.Container != nil:
		return r.Container.ShutdownAction
	case r.Compose != nil:
		return r.Compose.ShutdownAction
	default:
		return ShutdownActionNone
	}
}

// Document is the full on-disk state file: workspaceHash -> Record.
// Unknown keys decoded into it (from a newer version of this tool)
// round-trip untouched since json.Unmarshal ignores fields it can't
// map and MarshalIndent only ever re-emits what Go parsed.
type Document map[string]Record

// Load reads the workspace state document at path, returning an empty
// Document if it does not yet exist.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, nil
		}
		return nil, fmt.Errorf("reading workspace state: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing workspace state: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Save writes the document to path, creating its parent directory if
// needed.
func (d Document) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling workspace state: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing workspace state: %w", err)
	}
	return nil
}

// Get returns the record for workspaceHash, if any.
func (d Document) Get(workspaceHash string) (Record, bool) {
	r, ok := d[workspaceHash]
	return r, ok
}

// PutContainer creates or updates the container-state record for
// workspaceHash: created on a workspace's first successful up, updated
// on every reuse.
func (d Document) PutContainer(workspaceHash string, cs ContainerState) {
	d[workspaceHash] = Record{Container: &cs}
}

// PutCompose creates or updates the compose-state record for
// workspaceHash. When an existing compose record for the same
// workspace already carries an id, that id is preserved; otherwise one
// is minted so the record has a stable identity across reuses despite
// a compose project having no single natural key.
func (d Document) PutCompose(workspaceHash string, cs ComposeState) ComposeState {
	if cs.ID == "" {
		if existing, ok := d[workspaceHash]; ok && existing.Compose != nil && existing.Compose.ID != "" {
			cs.ID = existing.Compose.ID
		} else {
			cs.ID = uuid.NewString()
		}
	}
	d[workspaceHash] = Record{Compose: &cs}
	return cs
}

// Remove deletes the record for workspaceHash, implementing the
// removed-on-shutdownAction-driven-stop lifecycle rule.
func (d Document) Remove(workspaceHash string) {
	delete(d, workspaceHash)
}

// DefaultPath returns the workspace state document's path under the
// user-scoped state directory: $XDG_STATE_HOME/devctl/state.json, or
// ~/.local/state/devctl/state.json when XDG_STATE_HOME is unset.
func DefaultPath() (string, error) {
	dir, err := userStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.json"), nil
}

func userStateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "devctl"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving user state directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "devctl"), nil
}
