package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordBucketsByUpperBound(t *testing.T) {
	m := NewMetrics()
	m.Record(OperationBuild, 5*time.Millisecond)
	m.Record(OperationBuild, 40*time.Millisecond)
	m.Record(OperationBuild, 10*time.Minute) // overflow

	summary := m.Summary()
	require.Len(t, summary, 1)
	s := summary[0]
	require.Equal(t, OperationBuild, s.Operation)
	require.Equal(t, uint64(3), s.Count)
	require.Equal(t, uint64(1), s.Buckets["10ms"])
	require.Equal(t, uint64(1), s.Buckets["50ms"])
	require.Equal(t, uint64(1), s.Buckets["overflow"])
}

func TestMetrics_SeparateHistogramsPerOperation(t *testing.T) {
	m := NewMetrics()
	m.Record(OperationBuild, time.Millisecond)
	m.Record(OperationFeaturesInstall, time.Millisecond)

	summary := m.Summary()
	require.Len(t, summary, 2)
}

func TestMetrics_Observe_RecordsDurationAndPropagatesError(t *testing.T) {
	m := NewMetrics()
	err := m.Observe(OperationLifecyclePhase, func() error {
		time.Sleep(time.Millisecond)
		return nil
	})
	require.NoError(t, err)

	summary := m.Summary()
	require.Len(t, summary, 1)
	require.Equal(t, uint64(1), summary[0].Count)
}
