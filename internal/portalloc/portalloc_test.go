package portalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	a := New(9000, 2)

	p1, err := a.Acquire()
	require.NoError(t, err)
	p2, err := a.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)
	assert.Equal(t, 2, a.InUse())

	_, err = a.Acquire()
	assert.Error(t, err)

	a.Release(p1)
	assert.Equal(t, 1, a.InUse())

	p3, err := a.Acquire()
	require.NoError(t, err)
	assert.Equal(t, p1, p3)
}

func TestReleaseUnheldPortIsNoOp(t *testing.T) {
	a := New(9000, 1)
	a.Release(9999)
	assert.Equal(t, 0, a.InUse())
}
