package dispatch

import (
	"testing"

	"github.com/honygo/ocrpool/pkg/types"
	"github.com/stretchr/testify/assert"
)

type fakeCandidate struct {
	id     string
	status types.InstanceStatus
	score  float64
}

func (f fakeCandidate) ID() string                   { return f.id }
func (f fakeCandidate) Status() types.InstanceStatus { return f.status }
func (f fakeCandidate) LoadScore() float64           { return f.score }

func TestSelect_PicksLowestScoreAmongEligible(t *testing.T) {
	instances := []fakeCandidate{
		{id: "a", status: types.InstanceIdle, score: 5},
		{id: "b", status: types.InstanceIdle, score: 2},
		{id: "c", status: types.InstanceRunning, score: 0},
	}

	best, ok := Select(instances)
	assert.True(t, ok)
	assert.Equal(t, "b", best.ID())
}

func TestSelect_BreaksTiesLexicographically(t *testing.T) {
	instances := []fakeCandidate{
		{id: "zeta", status: types.InstanceReady, score: 1},
		{id: "alpha", status: types.InstanceReady, score: 1},
	}

	best, ok := Select(instances)
	assert.True(t, ok)
	assert.Equal(t, "alpha", best.ID())
}

func TestSelect_NoneEligible(t *testing.T) {
	instances := []fakeCandidate{
		{id: "a", status: types.InstanceStarting, score: 1},
		{id: "b", status: types.InstanceError, score: 1},
	}

	_, ok := Select(instances)
	assert.False(t, ok)
}

func TestSelectMany_SortsBestFirst(t *testing.T) {
	instances := []fakeCandidate{
		{id: "a", status: types.InstanceIdle, score: 3},
		{id: "b", status: types.InstanceIdle, score: 1},
		{id: "c", status: types.InstanceStopped, score: 0},
	}

	ranked := SelectMany(instances)
	assert.Len(t, ranked, 2)
	assert.Equal(t, "b", ranked[0].ID())
	assert.Equal(t, "a", ranked[1].ID())
}
