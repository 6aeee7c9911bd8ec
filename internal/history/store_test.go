package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore_MissingFileIsNotAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.json")
	s, err := NewStore(path)
	require.NoError(t, err)
	assert.NotNil(t, s)

	regions, err := s.Predict("invoice_total")
	require.NoError(t, err)
	assert.Empty(t, regions)
}

func TestRecordSuccess_PersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "regions.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	region := Region{X: 10, Y: 20, Width: 100, Height: 30, Source: "recognition"}
	require.NoError(t, s.RecordSuccess(region, "invoice_total"))

	reloaded, err := NewStore(path)
	require.NoError(t, err)

	regions, err := reloaded.Predict("invoice_total")
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, region, regions[0])
}

func TestRecordSuccess_BumpsExistingRegionInsteadOfDuplicating(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	region := Region{X: 1, Y: 1, Width: 5, Height: 5}
	require.NoError(t, s.RecordSuccess(region, "total"))
	require.NoError(t, s.RecordSuccess(region, "total"))

	regions, err := s.Predict("total")
	require.NoError(t, err)
	assert.Len(t, regions, 1)
}

func TestRecordSuccess_TrimsToMaxRegionsPerTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	for i := 0; i < maxRegionsPerTarget+5; i++ {
		region := Region{X: i, Y: i, Width: 5, Height: 5}
		require.NoError(t, s.RecordSuccess(region, "total"))
	}

	regions, err := s.Predict("total")
	require.NoError(t, err)
	assert.Len(t, regions, maxRegionsPerTarget)
}

func TestRecordFailure_IsANoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	require.NoError(t, s.RecordFailure("missing_keyword"))
	regions, err := s.Predict("missing_keyword")
	require.NoError(t, err)
	assert.Empty(t, regions)
}
