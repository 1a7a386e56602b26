package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/state"
)

type fakeClient struct {
	summaries []state.ContainerSummary
	stopped   []string
	removed   []string
}

func (f *fakeClient) ListContainersWithLabels(ctx context.Context, labels map[string]string) ([]state.ContainerSummary, error) {
	var out []state.ContainerSummary
	for _, s := range f.summaries {
		match := true
		for k, v := range labels {
			if s.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeClient) InspectContainer(ctx context.Context, containerID string) (*state.ContainerDetails, error) {
	return nil, nil
}

func (f *fakeClient) StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error {
	f.stopped = append(f.stopped, containerID)
	return nil
}

func (f *fakeClient) RemoveContainer(ctx context.Context, containerID string, force, removeVolumes bool) error {
	f.removed = append(f.removed, containerID)
	return nil
}

func TestDerive_StableAcrossRuns(t *testing.T) {
	cfg := &config.DevcontainerConfig{Name: "myproj", Image: "ubuntu"}
	cfg.SetRawJSON([]byte(`{"name":"myproj","image":"ubuntu"}`))

	a, err := Derive(t.TempDir(), cfg)
	require.NoError(t, err)
	b, err := Derive(t.TempDir(), cfg)
	require.NoError(t, err)

	// Different temp dirs -> different workspace hashes, same config hash.
	require.NotEqual(t, a.WorkspaceHash, b.WorkspaceHash)
	require.Equal(t, a.ConfigHash, b.ConfigHash)
	require.Len(t, a.WorkspaceHash, hashLen)
	require.Len(t, a.ConfigHash, hashLen)
}

func TestLabels_IncludesNameOnlyWhenSet(t *testing.T) {
	withName := Identity{WorkspaceHash: "abc", ConfigHash: "def", Name: "myproj"}
	require.Equal(t, "myproj", withName.Labels()[LabelName])

	withoutName := Identity{WorkspaceHash: "abc", ConfigHash: "def"}
	_, ok := withoutName.Labels()[LabelName]
	require.False(t, ok)
}

func TestSelector_ExcludesConfigHash(t *testing.T) {
	id := Identity{WorkspaceHash: "abc", ConfigHash: "def", Name: "x"}
	sel := id.Selector()
	_, ok := sel[LabelConfigHash]
	require.False(t, ok)
	require.Equal(t, "abc", sel[LabelWorkspaceHash])
}

func TestSelect_NoMatches(t *testing.T) {
	client := &fakeClient{}
	c, err := Select(context.Background(), client, Identity{WorkspaceHash: "abc"})
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestSelect_SingleMatch(t *testing.T) {
	client := &fakeClient{summaries: []state.ContainerSummary{
		{ID: "c1", Name: "box", Running: true, Labels: map[string]string{LabelSource: ToolName, LabelWorkspaceHash: "abc", LabelConfigHash: "h1"}},
	}}
	c, err := Select(context.Background(), client, Identity{WorkspaceHash: "abc"})
	require.NoError(t, err)
	require.NotNil(t, c)
	require.Equal(t, "c1", c.ID)
	require.True(t, c.IsStale("h2"))
	require.False(t, c.IsStale("h1"))
}

func TestSelect_AmbiguousMatches(t *testing.T) {
	client := &fakeClient{summaries: []state.ContainerSummary{
		{ID: "c1", Labels: map[string]string{LabelSource: ToolName, LabelWorkspaceHash: "abc"}},
		{ID: "c2", Labels: map[string]string{LabelSource: ToolName, LabelWorkspaceHash: "abc"}},
	}}
	c, err := Select(context.Background(), client, Identity{WorkspaceHash: "abc"})
	require.Error(t, err)
	require.Nil(t, c)
}

func TestSelectExpectingExisting_ErrorsOnNoMatch(t *testing.T) {
	client := &fakeClient{}
	_, err := SelectExpectingExisting(context.Background(), client, Identity{WorkspaceHash: "abc"})
	require.Error(t, err)
}

func TestRemoveAll_StopsRunningThenRemovesAll(t *testing.T) {
	client := &fakeClient{summaries: []state.ContainerSummary{
		{ID: "c1", Running: true, Labels: map[string]string{LabelSource: ToolName, LabelWorkspaceHash: "abc"}},
		{ID: "c2", Running: false, Labels: map[string]string{LabelSource: ToolName, LabelWorkspaceHash: "abc"}},
	}}
	err := RemoveAll(context.Background(), client, Identity{WorkspaceHash: "abc"})
	require.NoError(t, err)
	require.Equal(t, []string{"c1"}, client.stopped)
	require.ElementsMatch(t, []string{"c1", "c2"}, client.removed)
}
