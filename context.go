package cachesc

import "unsafe"

// CacheContext describes the geometry of one cache level and is
// immutable after creation, per spec §3. Ported from cache_types.h's
// cache_ctx / get_cache_ctx.
type CacheContext struct {
	Level      CacheLevel
	Addressing AddressingType

	Sets          uint32
	Associativity uint32
	AccessTime    uint32
	LineSize      uint32

	// Derived fields, computed once in NewContext.
	NumLines  uint32
	SetBytes  uint32
	CacheBytes uint32
}

// NewContext builds the context for the given cache level from the
// compile-time Config constants. It never returns an error: an unknown
// level is caller misuse (spec §7 kind d) and aborts immediately, the
// same as get_cache_ctx returning NULL would have led to a null-pointer
// dereference a few lines later in the original C code.
func NewContext(level CacheLevel) *CacheContext {
	ctx := &CacheContext{Level: level, LineSize: CachelineSize}

	switch level {
	case L1:
		ctx.Addressing = Virtual
		ctx.Sets = L1Sets
		ctx.Associativity = L1Associativity
		ctx.AccessTime = L1AccessTime
	case L2:
		ctx.Addressing = Physical
		ctx.Sets = L2Sets
		ctx.Associativity = L2Associativity
		ctx.AccessTime = L2AccessTime
	default:
		fatalf("unknown cache level %v", level)
	}

	ctx.NumLines = ctx.Sets * ctx.Associativity
	ctx.SetBytes = ctx.LineSize * ctx.Associativity
	ctx.CacheBytes = ctx.Sets * ctx.SetBytes

	return ctx
}

// Release frees the descriptor. Provided for API symmetry with the
// build/release pairs below; a Go GC handles CacheContext itself, but
// call sites should still call it once every structure derived from ctx
// has been released, per spec §3's lifecycle rule.
func (ctx *CacheContext) Release() {}

// setMask returns the bitmask that isolates the bits of a (byte) address
// that select the cache set, ported from cache_types.h's SET_MASK.
func setMask(sets uint32) uintptr {
	return uintptr(sets)*CachelineSize - 1 ^ (CachelineSize - 1)
}

const pageMask = uintptr(PageSize - 1)

// removePageOffset masks out the intra-page bits of a pointer.
func removePageOffset(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) &^ pageMask)
}

// removeCacheSet masks out the bits of p that determine ctx's cache set,
// leaving the base of the backing allocation.
func removeCacheSet(ctx *CacheContext, p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) &^ setMask(ctx.Sets))
}

// removeCacheGroupSet masks out the bits that determine a line's index
// within one cache group (i.e. within one page), leaving the page base.
func removeCacheGroupSet(p unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(uintptr(p) &^ setMask(CacheGroupSize))
}

// getCacheSetHelper parses ptr to extract the cache-set bits, ported from
// cache_types.h's get_cache_set_helper.
func getCacheSetHelper(sets uint32, ptr unsafe.Pointer) uint16 {
	return uint16((uintptr(ptr) & setMask(sets)) / CachelineSize)
}

// getVirtCacheSet returns the set to which ptr maps under virtual
// addressing.
func getVirtCacheSet(ctx *CacheContext, ptr unsafe.Pointer) uint16 {
	return getCacheSetHelper(ctx.Sets, ptr)
}

// getPhysCacheSet returns the set to which ptr maps under physical
// addressing. It aborts (spec §7 kind c: privilege probe succeeded at
// open-time but translation returned zero later) if translation fails,
// since the caller already checked CanTranslate before choosing the
// privileged path.
func getPhysCacheSet(ctx *CacheContext, ptr unsafe.Pointer) uint16 {
	paddr, ok := ToPhysical(uintptr(ptr))
	if !ok {
		fatalf("physical address translation failed for %p after CanTranslate() succeeded", ptr)
	}
	return getCacheSetHelper(ctx.Sets, unsafe.Pointer(paddr)) //nolint:govet // synthetic address used only for its bit pattern
}

// getCacheSet returns the cache set to which ptr maps, taking ctx's
// addressing mode into account.
func getCacheSet(ctx *CacheContext, ptr unsafe.Pointer) uint16 {
	if ctx.Addressing == Virtual {
		return getVirtCacheSet(ctx, ptr)
	}
	return getPhysCacheSet(ctx, ptr)
}
