package pool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddInstance_RejectsAtMax(t *testing.T) {
	m := newTestManager(t, nil)

	for i := 0; i < 2; i++ {
		_, err := m.AddInstance(context.Background())
		require.NoError(t, err)
	}

	_, err := m.AddInstance(context.Background())
	assert.Error(t, err)
}

func TestRemoveInstance_StopsAndForgets(t *testing.T) {
	m := newTestManager(t, nil)

	id, err := m.AddInstance(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.RemoveInstance(id))

	_, ok := m.InstanceByID(id)
	assert.False(t, ok)
}

func TestRemoveInstance_UnknownIDErrors(t *testing.T) {
	m := newTestManager(t, nil)
	err := m.RemoveInstance("does-not-exist")
	assert.Error(t, err)
}

func TestInstanceByID_ReturnsConfigAndLogs(t *testing.T) {
	m := newTestManager(t, nil)

	status := m.GetStatus()
	require.Equal(t, 1, status.TotalInstances)

	snapshots := m.Instances()
	require.Len(t, snapshots, 1)

	detail, ok := m.InstanceByID(snapshots[0].InstanceID)
	require.True(t, ok)
	assert.NotEmpty(t, detail.Logs)
	assert.Equal(t, m.instCfg.ModelDir, detail.ModelStorageDir)
}

func TestStopAndStartInstance(t *testing.T) {
	m := newTestManager(t, nil)
	snapshots := m.Instances()
	require.Len(t, snapshots, 1)
	id := snapshots[0].InstanceID

	require.NoError(t, m.StopInstance(id))
	require.NoError(t, m.StartInstance(context.Background(), id))

	detail, ok := m.InstanceByID(id)
	require.True(t, ok)
	assert.NotEqual(t, "", detail.Status)
}
