package cachesc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVirtualStructure(t *testing.T) {
	ctx := NewContext(L1)
	entry := buildVirtual(ctx)
	require.NotNil(t, entry)
	defer Release(entry)

	assert.EqualValues(t, ctx.NumLines, clLength(entry))

	counts := make(map[uint16]int)
	curr := entry
	for {
		counts[curr.SetIndex()]++
		assert.True(t, curr.IsCacheGroupInit())
		curr = curr.Next()
		if curr == entry {
			break
		}
	}

	assert.Len(t, counts, int(ctx.Sets))
	for _, n := range counts {
		assert.EqualValues(t, ctx.Associativity, n)
	}
}

func TestBuildDispatchesToVirtualForL1(t *testing.T) {
	ctx := NewContext(L1)
	entry := Build(ctx)
	defer Release(entry)
	assert.EqualValues(t, ctx.NumLines, clLength(entry))
}
