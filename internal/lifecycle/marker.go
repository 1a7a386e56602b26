package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const stateDirName = ".devcontainer-state"
const prebuildSubdir = "prebuild"

// marker is the on-disk record of a phase's outcome.
type marker struct {
	Phase     Phase `json:"phase"`
	Succeeded bool  `json:"succeeded"`
}

// MarkerStore reads and writes phase completion markers under a
// workspace's state directory. A prebuild invocation uses the
// prebuild/ subdirectory as its scope so its markers never satisfy (or
// are satisfied by) a normal invocation's, and vice versa.
type MarkerStore struct {
	dir string
}

// NewMarkerStore returns a MarkerStore scoped to workspacePath, using
// the prebuild subdirectory when prebuild is true.
func NewMarkerStore(workspacePath string, prebuild bool) *MarkerStore {
	dir := filepath.Join(workspacePath, stateDirName)
	if prebuild {
		dir = filepath.Join(dir, prebuildSubdir)
	}
	return &MarkerStore{dir: dir}
}

func (m *MarkerStore) path(phase Phase) string {
	return filepath.Join(m.dir, string(phase)+".json")
}

// Completed reports whether phase already has a successful marker in
// this store's scope.
func (m *MarkerStore) Completed(phase Phase) (bool, error) {
	data, err := os.ReadFile(m.path(phase))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading marker for %s: %w", phase, err)
	}

	var rec marker
	if err := json.Unmarshal(data, &rec); err != nil {
		return false, fmt.Errorf("parsing marker for %s: %w", phase, err)
	}
	return rec.Succeeded, nil
}

// MarkSucceeded records phase as having completed successfully. Only
// called after a phase's last command returns success; a failed phase
// never gets a marker, so a later run retries it.
func (m *MarkerStore) MarkSucceeded(phase Phase) error {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("creating marker directory: %w", err)
	}

	data, err := json.Marshal(marker{Phase: phase, Succeeded: true})
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.path(phase), data, 0o644); err != nil {
		return fmt.Errorf("writing marker for %s: %w", phase, err)
	}
	return nil
}
