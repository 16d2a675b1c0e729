package cache

import (
	"math"
	"testing"

	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache() *ValueCache {
	return New([]runtime.Channel{
		{Id: "temperature1", Kind: constant.Continuous},
		{Id: "fan-speed", Kind: constant.Discrete},
		{Id: "fan-rpm1", Kind: constant.Continuous, Threshold: 10, Precision: 1},
	})
}

func TestContinuousThreshold(t *testing.T) {
	c := newCache()

	published, v := c.Update("temperature1", 20.0)
	require.True(t, published)
	assert.Equal(t, 20.0, v.Value)

	published, _ = c.Update("temperature1", 20.1)
	assert.False(t, published)
	cached, _ := c.Get("temperature1")
	assert.Equal(t, 20.0, cached.Value)

	published, v = c.Update("temperature1", 20.3)
	require.True(t, published)
	assert.Equal(t, 20.3, v.Value)

	published, _ = c.Update("temperature1", 20.5)
	assert.False(t, published)
	published, v = c.Update("temperature1", 20.5778)
	require.True(t, published)
	assert.Equal(t, 20.6, v.Value)
}

func TestFirstUpdateAlwaysPublishes(t *testing.T) {
	c := newCache()
	published, v := c.Update("fan-speed", 0)
	assert.True(t, published)
	assert.Equal(t, 0, v.Value)

	published, v = c.Update("temperature1", 0)
	assert.True(t, published)
	assert.Equal(t, 0.0, v.Value)
}

func TestNonFiniteReadingDropped(t *testing.T) {
	c := newCache()
	published, _ := c.Update("temperature1", math.NaN())
	assert.False(t, published)
	_, known := c.Get("temperature1")
	assert.False(t, known)

	published, _ = c.Update("temperature1", 21.0)
	require.True(t, published)
	published, v := c.Update("temperature1", math.Inf(1))
	assert.False(t, published)
	assert.Equal(t, 21.0, v.Value)

	published, _ = c.Update("fan-speed", math.Inf(-1))
	assert.False(t, published)
	_, known = c.Get("fan-speed")
	assert.False(t, known)
}

func TestDiscreteExactMatch(t *testing.T) {
	c := newCache()
	published, _ := c.Update("fan-speed", 2)
	assert.True(t, published)
	published, _ = c.Update("fan-speed", 2)
	assert.False(t, published)
	published, v := c.Update("fan-speed", 3)
	assert.True(t, published)
	assert.Equal(t, 3, v.Value)
}

func TestCustomThreshold(t *testing.T) {
	c := newCache()
	c.Update("fan-rpm1", 2000)
	published, _ := c.Update("fan-rpm1", 2005)
	assert.False(t, published)
	published, _ = c.Update("fan-rpm1", 2011)
	assert.True(t, published)
}

func TestUnknownChannel(t *testing.T) {
	c := newCache()
	published, _ := c.Update("temperature9", 1)
	assert.False(t, published)
	assert.False(t, c.Has("temperature9"))
}

func TestSnapshotAndDiscard(t *testing.T) {
	c := newCache()
	_, ok := c.Get("fan-speed")
	assert.False(t, ok)

	c.Update("fan-rpm1", 2000)
	c.Update("temperature1", 19.24)
	snap := c.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "temperature1", snap[0].ChannelId)
	assert.Equal(t, 19.2, snap[0].Value)

	c.Discard()
	assert.Empty(t, c.Snapshot())
	published, _ := c.Update("temperature1", 19.24)
	assert.True(t, published)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 20.3, Round(20.25, 1))
	assert.Equal(t, 19.0, Round(19.04, 1))
	assert.Equal(t, 1.23, Round(1.234, 2))
}
