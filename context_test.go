package cachesc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func TestNewContextL1(t *testing.T) {
	ctx := NewContext(L1)
	assert.Equal(t, Virtual, ctx.Addressing)
	assert.EqualValues(t, L1Sets, ctx.Sets)
	assert.EqualValues(t, L1Associativity, ctx.Associativity)
	assert.EqualValues(t, L1Sets*L1Associativity, ctx.NumLines)
}

func TestNewContextL2(t *testing.T) {
	ctx := NewContext(L2)
	assert.Equal(t, Physical, ctx.Addressing)
	assert.EqualValues(t, L2Sets, ctx.Sets)
}

func TestNewContextUnknownLevelPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewContext(CacheLevel(99))
	})
}

func TestGetVirtCacheSetIsAddressBits(t *testing.T) {
	ctx := NewContext(L1)
	base := unsafe.Pointer(uintptr(0))
	for i := uint32(0); i < ctx.Sets; i++ {
		p := unsafe.Pointer(uintptr(base) + uintptr(i)*CachelineSize)
		assert.EqualValues(t, i, getVirtCacheSet(ctx, p))
	}
}

func TestGetVirtCacheSetWraps(t *testing.T) {
	ctx := NewContext(L1)
	p := unsafe.Pointer(uintptr(ctx.Sets) * CachelineSize)
	assert.EqualValues(t, 0, getVirtCacheSet(ctx, p))
}
