package cachesc

import "math/rand"

// SetSeed reseeds the package-level PRNG used by RandomPerm and
// GenRandomIndices, ported from util.c's set_seed. Deterministic seeding
// policy is out of scope (spec.md Non-goals); callers that need
// reproducible sequences call this explicitly before building a
// structure.
func SetSeed(seed int64) {
	rand.Seed(seed)
}

// GenRandBytes fills buf with pseudo-random bytes, ported from
// util.c's gen_rand_bytes.
func GenRandBytes(buf []byte) {
	rand.Read(buf) //nolint:errcheck // math/rand.Read never errors
}

// RandomPerm shuffles arr in place using the same algorithm as
// util.c's random_perm, off-by-one included: the loop starts at
// len(arr)-1 and draws swapIdx in [0, i) rather than [0, i], so swapIdx
// never equals i and no element is ever left at its original index (for
// len(arr) >= 2 the result is always a single cycle, not a uniform
// shuffle over all permutations). This is a known, documented
// property of the original library (see DESIGN.md's Open Question
// decisions) and is preserved rather than corrected, since nothing in
// this package depends on a uniform shuffle.
func RandomPerm(arr []int) {
	for i := len(arr) - 1; i > 0; i-- {
		swapIdx := rand.Intn(i)
		arr[i], arr[swapIdx] = arr[swapIdx], arr[i]
	}
}

// GenRandomIndices returns a random permutation of [0, n), ported from
// util.c's gen_random_indices.
func GenRandomIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	RandomPerm(idx)
	return idx
}

// IsInArr reports whether v appears in arr, ported from util.c's
// is_in_arr.
func IsInArr(arr []int, v int) bool {
	for _, x := range arr {
		if x == v {
			return true
		}
	}
	return false
}

// GetAvg returns the running average of values, computed incrementally
// to avoid the overflow a naive sum-then-divide risks over long
// measurement series, ported from util.c's get_avg.
func GetAvg(values []uint32) float64 {
	avg := 0.0
	for i, v := range values {
		avg += (float64(v) - avg) / float64(i+1)
	}
	return avg
}

// GetMax returns the largest value in values, or 0 for an empty slice.
func GetMax(values []uint32) uint32 {
	max := uint32(0)
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}

// GetMin returns the smallest value in values, or 0 for an empty slice.
func GetMin(values []uint32) uint32 {
	if len(values) == 0 {
		return 0
	}
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
