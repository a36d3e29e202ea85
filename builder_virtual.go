package cachesc

// buildVirtual allocates ctx.NumLines cachelines in one page-aligned
// backing region and assigns each its virtually-indexed cache set,
// ported from cache.c's allocate_cache_ds_virt path (the "virt" branch
// of allocate_cache_ds). Virtual addressing needs no privilege and no
// collision oracle: the set a line belongs to is a pure function of its
// own address, so lines can be built and immediately trusted.
func buildVirtual(ctx *CacheContext) *Cacheline {
	size := int(ctx.NumLines) * CachelineSize
	backing := pageAlloc(size)
	base := basePointer(backing)

	lines := make([]*Cacheline, ctx.NumLines)
	for i := uint32(0); i < ctx.NumLines; i++ {
		cl := cachelineAt(base, uintptr(i))
		cl.setIndex = getVirtCacheSet(ctx, cl.ptr())
		cl.setCacheGroupInit()
		lines[i] = cl
	}

	entry := buildCacheDS(lines)
	registerAllocation(entry, []allocation{{backing: backing}})
	return entry
}
