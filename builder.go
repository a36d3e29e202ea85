package cachesc

// Build allocates and returns a Prime+Probe data structure spanning
// every set of ctx, choosing the virtual, privileged-physical, or
// unprivileged-physical builder according to ctx.Addressing and the
// process's actual translation privilege, ported from cache.c's
// allocate_cache_ds / allocate_cache_ds_phys dispatch.
func Build(ctx *CacheContext) *Cacheline {
	entry := allocate(ctx)
	sanityCheck(ctx, entry)
	return entry
}

func allocate(ctx *CacheContext) *Cacheline {
	if ctx.Addressing == Virtual {
		return buildVirtual(ctx)
	}
	if CanTranslate() {
		return buildPhysicalPrivileged(ctx)
	}
	return buildPhysicalUnprivileged(ctx)
}

// BuildForSets is like Build but restricts the structure to the given
// subset of ctx.Sets, ported from cache.c's prepare_cache_set_ds. It
// builds the full structure and then discards every line outside sets;
// the backing pages of the discarded lines are not freed (see
// DESIGN.md's note on PrepareVictim), only their Cacheline bookkeeping
// is dropped from the returned ring.
func BuildForSets(ctx *CacheContext, sets []uint16) *Cacheline {
	full := allocate(ctx)

	want := make(map[uint16]bool, len(sets))
	for _, s := range sets {
		want[s] = true
	}

	var kept []*Cacheline
	curr := full
	for {
		if want[curr.SetIndex()] {
			kept = append(kept, curr)
		}
		curr = curr.Next()
		if curr == full {
			break
		}
	}

	if len(kept) == 0 {
		Release(full)
		return nil
	}

	// buildCacheDS re-links every kept line into a fresh ring; the
	// discarded lines' old neighbour pointers are left dangling, which
	// is harmless since nothing reachable from the new entry point ever
	// visits them again.
	entry := buildCacheDS(kept)
	migrateAllocation(full, entry)
	sanityCheck(ctx, entry)
	return entry
}

// migrateAllocation transfers ownership of full's backing allocations to
// entry, since BuildForSets rebuilds the ring under a new entry point
// but the underlying pages are unchanged.
func migrateAllocation(full, entry *Cacheline) {
	allocMu.Lock()
	allocs := allocReg[full]
	delete(allocReg, full)
	allocMu.Unlock()
	registerAllocation(entry, allocs)
}

// Release frees a structure built by Build or BuildForSets, including
// its backing pages, ported from cache.c's release_cache_ds.
func Release(entry *Cacheline) {
	releaseAllocation(entry)
}

// sanityCheck verifies that every set present in the ring has exactly
// ctx.Associativity members and that the forward and backward walks
// agree on the ring's length; a set with no line at all is not
// detected. Ported from cache.c's
// cache_ds_sanity_check. It aborts via fatalf on failure: an
// inconsistent structure would silently corrupt every measurement built
// on top of it, which is strictly worse than failing at build time.
func sanityCheck(ctx *CacheContext, entry *Cacheline) {
	if entry == nil {
		fatalf("build produced an empty structure")
	}

	counts := make(map[uint16]int)
	total := uint32(0)
	curr := entry
	for {
		counts[curr.SetIndex()]++
		total++
		curr = curr.Next()
		if curr == entry {
			break
		}
	}

	if total != clLength(entry) {
		fatalf("ring traversal length %d disagrees with clLength %d", total, clLength(entry))
	}

	for set, n := range counts {
		if uint32(n) != ctx.Associativity {
			fatalf("set %d has %d members, want %d", set, n, ctx.Associativity)
		}
	}
}
