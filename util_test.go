package cachesc

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandomPermIsAPermutation(t *testing.T) {
	SetSeed(1)
	arr := []int{0, 1, 2, 3, 4, 5, 6, 7}
	orig := append([]int(nil), arr...)
	RandomPerm(arr)

	sorted := append([]int(nil), arr...)
	sort.Ints(sorted)
	assert.Equal(t, orig, sorted)
}

func TestGenRandomIndicesOffByOneIsStillAPermutation(t *testing.T) {
	// Documented off-by-one: the loop draws swapIdx in [0, i) with i
	// starting at len-1 (swapIdx == 0 is possible, swapIdx == i is not).
	// The result must still be a permutation of [0, n): every index
	// appears exactly once.
	SetSeed(1)
	n := 100
	arr := GenRandomIndices(n)
	assert.Len(t, arr, n)

	sorted := append([]int(nil), arr...)
	sort.Ints(sorted)
	for i := range sorted {
		assert.Equal(t, i, sorted[i])
	}
}

func TestGenRandomIndicesRange(t *testing.T) {
	idx := GenRandomIndices(16)
	assert.True(t, IsInArr(idx, 0))
	assert.True(t, IsInArr(idx, 15))
	assert.False(t, IsInArr(idx, 16))
}

func TestGetAvgMaxMin(t *testing.T) {
	values := []uint32{10, 20, 30, 40}
	assert.InDelta(t, 25.0, GetAvg(values), 0.0001)
	assert.EqualValues(t, 40, GetMax(values))
	assert.EqualValues(t, 10, GetMin(values))
}

func TestGetMinMaxEmpty(t *testing.T) {
	assert.EqualValues(t, 0, GetMax(nil))
	assert.EqualValues(t, 0, GetMin(nil))
}
