package cachesc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRandomizedListForSetMarksEnds(t *testing.T) {
	lines := newTestLines(5)
	head := buildRandomizedListForSet(lines)

	require.NotNil(t, head)
	assert.True(t, head.IsFirst())
	assert.True(t, head.Prev().IsLast())
	assert.EqualValues(t, 5, clLength(head))
}

func TestBuildRandomizedListForSetEmpty(t *testing.T) {
	assert.Nil(t, buildRandomizedListForSet(nil))
}

func TestBuildCacheDSJoinsAllSets(t *testing.T) {
	lines := newTestLines(6)
	for i, cl := range lines {
		cl.setIndex = uint16(i % 3)
	}

	entry := buildCacheDS(lines)
	require.NotNil(t, entry)
	assert.EqualValues(t, 6, clLength(entry))

	seenSets := map[uint16]int{}
	curr := entry
	for {
		seenSets[curr.SetIndex()]++
		curr = curr.Next()
		if curr == entry {
			break
		}
	}
	assert.Len(t, seenSets, 3)
	for _, n := range seenSets {
		assert.Equal(t, 2, n)
	}
}
