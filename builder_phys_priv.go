package cachesc

// maxPhysPrivPages bounds the privileged builder's search so a
// pathological host (e.g. all pages the allocator hands back landing in
// the same few physical sets) fails loudly instead of looping forever.
// It is generous: filling ctx.Sets*ctx.Associativity lines needs at
// least that many groups' worth of pages, so this allows a large
// multiple of the theoretical minimum.
const maxPhysPrivPages = 4096

// buildPhysicalPrivileged builds a physically-indexed structure using
// /proc/self/pagemap to read each candidate line's true physical set,
// ported from cache.c's allocate_cache_ds_phys_priv. Pages are allocated
// one at a time; each page contributes CacheGroupSize candidate lines,
// one per slot. A candidate is kept only if its target set has not yet
// reached ctx.Associativity members; the other slots of the same page
// are still considered one by one, so a page can be partly kept. A page
// none of whose slots is kept is unmapped right away, and the loop keeps
// allocating until every set has exactly Associativity members (see
// DESIGN.md's Open Question decision on cnt_lines_per_set over-commit).
func buildPhysicalPrivileged(ctx *CacheContext) *Cacheline {
	needed := int(ctx.Associativity)
	counts := make(map[uint16]int, ctx.Sets)

	var lines []*Cacheline
	var allocs []allocation

	filled := 0
	total := int(ctx.Sets) * needed

	for page := 0; filled < total; page++ {
		if page >= maxPhysPrivPages {
			fatalf("physical privileged builder did not converge after %d pages (host physical layout too skewed)", maxPhysPrivPages)
		}

		backing := pageAlloc(PageSize)
		// Write to the page so the kernel backs it with a frame before
		// pagemap is read; an untouched mapping reads as not present.
		backing[0] = 0
		base := basePointer(backing)
		used := false

		for slot := uint32(0); slot < CacheGroupSize; slot++ {
			cl := cachelineAt(base, uintptr(slot))
			set := getPhysCacheSet(ctx, cl.ptr())
			if int(set) >= int(ctx.Sets) {
				continue
			}
			if counts[set] >= needed {
				continue
			}
			cl.setIndex = set
			cl.setCacheGroupInit()
			counts[set]++
			filled++
			lines = append(lines, cl)
			used = true
		}

		if used {
			allocs = append(allocs, allocation{backing: backing})
		} else {
			pageFree(backing)
		}
	}

	entry := buildCacheDS(lines)
	registerAllocation(entry, allocs)
	return entry
}
