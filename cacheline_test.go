package cachesc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLines(n int) []*Cacheline {
	backing := pageAlloc(n * CachelineSize)
	base := basePointer(backing)
	lines := make([]*Cacheline, n)
	for i := 0; i < n; i++ {
		lines[i] = cachelineAt(base, uintptr(i))
	}
	return lines
}

func TestClInsertAfterSingleton(t *testing.T) {
	lines := newTestLines(1)
	clInsertAfter(nil, lines[0])

	assert.Equal(t, lines[0], lines[0].Next())
	assert.Equal(t, lines[0], lines[0].Prev())
	assert.EqualValues(t, 1, clLength(lines[0]))
}

func TestClInsertAfterRing(t *testing.T) {
	lines := newTestLines(4)
	clInsertAfter(nil, lines[0])
	clInsertAfter(lines[0], lines[1])
	clInsertAfter(lines[1], lines[2])
	clInsertAfter(lines[2], lines[3])

	require.EqualValues(t, 4, clLength(lines[0]))

	curr := lines[0]
	for i := 0; i < 4; i++ {
		assert.Equal(t, lines[i], curr)
		curr = curr.Next()
	}
	assert.Equal(t, lines[0], curr)
}

func TestClRemove(t *testing.T) {
	lines := newTestLines(3)
	clInsertAfter(nil, lines[0])
	clInsertAfter(lines[0], lines[1])
	clInsertAfter(lines[1], lines[2])

	clRemove(lines[1])

	assert.Equal(t, lines[2], lines[0].Next())
	assert.Equal(t, lines[0], lines[2].Next())
	assert.EqualValues(t, 2, clLength(lines[0]))
}

func TestFlags(t *testing.T) {
	lines := newTestLines(1)
	cl := lines[0]
	assert.False(t, cl.IsFirst())
	assert.False(t, cl.IsLast())
	assert.False(t, cl.IsCacheGroupInit())

	cl.setFirst()
	cl.setLast()
	cl.setCacheGroupInit()

	assert.True(t, cl.IsFirst())
	assert.True(t, cl.IsLast())
	assert.True(t, cl.IsCacheGroupInit())
}
