package cachesc

// maxPhysUnprivPages mirrors maxPhysPrivPages's role as a non-convergence
// backstop, sized larger since the unprivileged path throws away more
// candidates (ambiguous collisions, full sets) than the privileged one.
const maxPhysUnprivPages = 8192

// offsetPool accumulates not-yet-grouped candidate lines that share one
// intra-page offset. Two lines at the same intra-page offset are not
// guaranteed to share a physical cache set (the set index also depends
// on physical page bits this process cannot read), but restricting each
// pool to one offset means every collision test inside it is between
// lines whose low address bits already agree, which is the only
// leverage available without pagemap access, ported from cache.c's
// per-offset candidate rings in allocate_cache_ds_phys_unpriv /
// find_collisions.
type offsetPool struct {
	members []*Cacheline
}

// buildPhysicalUnprivileged builds a physically-indexed structure without
// pagemap access, using Prime+Probe itself as the oracle that tells two
// lines apart by whether accessing one evicts the other from the shared
// cache, ported from cache.c's allocate_cache_ds_phys_unpriv,
// find_collisions, identify_cache_sets and has_collision.
func buildPhysicalUnprivileged(ctx *CacheContext) *Cacheline {
	pools := make([]*offsetPool, CacheGroupSize)
	for i := range pools {
		pools[i] = &offsetPool{}
	}

	var allLines []*Cacheline
	var allocs []allocation
	full := 0

	for page := 0; full < int(ctx.Sets); page++ {
		if page >= maxPhysUnprivPages {
			fatalf("physical unprivileged builder did not converge after %d pages (collision oracle inconclusive)", maxPhysUnprivPages)
		}

		backing := pageAlloc(PageSize)
		base := basePointer(backing)

		for slot := uint32(0); slot < CacheGroupSize && full < int(ctx.Sets); slot++ {
			cl := cachelineAt(base, uintptr(slot))
			pool := pools[slot]
			pool.members = append(pool.members, cl)

			// has_collision is only worth calling once the pool holds more
			// candidates than a full set needs: a pool no larger than
			// associativity cannot yet contain a full eviction set to
			// prime with, so any test run against it would be
			// inconclusive by construction.
			if len(pool.members) <= int(ctx.Associativity) {
				continue
			}

			group, ok := resolvePool(ctx, pool)
			if !ok {
				continue
			}

			finishIdentifyingGroup(group)
			for _, m := range group {
				m.setIndex = uint16(full)
			}
			allLines = append(allLines, group...)
			full++
		}

		allocs = append(allocs, allocation{backing: backing})
	}

	entry := buildCacheDS(allLines)
	registerAllocation(entry, allocs)
	return entry
}

// resolvePool tests the most recently added candidate in pool against
// the rest of the pool and, if it collides with something already
// there, pins down exactly which ctx.Associativity members (including
// the candidate) make up its physical set via a replace-and-retest
// walk, ported from cache.c's identify_cache_sets. It returns ok=false,
// leaving pool untouched, when the candidate does not yet collide with
// anything (its own set has not accumulated enough members in the pool
// yet) or when the walk cannot isolate a full set (an ambiguous result,
// left for a later call once more candidates have arrived).
func resolvePool(ctx *CacheContext, pool *offsetPool) (group []*Cacheline, ok bool) {
	n := len(pool.members)
	candidate := pool.members[n-1]
	rest := append([]*Cacheline(nil), pool.members[:n-1]...)

	if !hasCollisionAgainst(rest, candidate) {
		return nil, false
	}

	members, walked := identifyGroupMembers(ctx, rest, candidate)
	if !walked {
		return nil, false
	}

	pool.members = removeAll(pool.members, members)
	return members, true
}

// identifyGroupMembers narrows rest down to the ctx.Associativity-1
// members that are actually required, together with candidate, to
// reproduce the eviction: for each member in turn, it primes every
// currently-kept-or-untested member except that one and re-tests
// candidate; if eviction stops, the excluded member was load-bearing
// and is kept, otherwise it is permanently discarded, ported from
// cache.c's identify_cache_sets replace-and-retest walk.
func identifyGroupMembers(ctx *CacheContext, rest []*Cacheline, candidate *Cacheline) ([]*Cacheline, bool) {
	needed := int(ctx.Associativity) - 1
	kept := make([]*Cacheline, 0, needed)
	untested := append([]*Cacheline(nil), rest...)

	for len(kept) < needed && len(untested) > 0 {
		m := untested[0]
		untested = untested[1:]

		others := make([]*Cacheline, 0, len(kept)+len(untested))
		others = append(others, kept...)
		others = append(others, untested...)

		if hasCollisionAgainst(others, candidate) {
			// m wasn't necessary for the eviction; drop it for good.
			continue
		}
		kept = append(kept, m)
	}

	if len(kept) != needed {
		return nil, false
	}
	return append([]*Cacheline{candidate}, kept...), true
}

// ringFrom links members into a throwaway ring for priming during
// collision testing. The ring's flags are meaningless and get
// overwritten once buildCacheDS assembles the final topology from
// confirmed groups; this is only ever used as a stand-in eviction set.
func ringFrom(members []*Cacheline) *Cacheline {
	var head, prev *Cacheline
	for _, m := range members {
		if head == nil {
			head = m
			clInsertAfter(nil, m)
		} else {
			clInsertAfter(prev, m)
		}
		prev = m
	}
	return head
}

// hasCollisionAgainst reports whether priming a ring built from members
// evicts candidate from cache, ported from cache.c's has_collision: the
// baseline is the minimum of CollisionRep solo accesses to candidate,
// the test statistic is the mean of CollisionRep accesses right after
// priming members, and a collision is declared once the test mean
// exceeds the baseline by at least L3AccessTimeGapL2 cycles. An empty
// members slice can never evict anything and is treated as no
// collision.
func hasCollisionAgainst(members []*Cacheline, candidate *Cacheline) bool {
	ring := ringFrom(members)
	if ring == nil {
		return false
	}

	baseline := make([]uint32, CollisionRep)
	for i := range baseline {
		baseline[i] = accessTime(candidate.ptr())
	}
	base := GetMin(baseline)

	test := make([]uint32, CollisionRep)
	for i := range test {
		primeRing(ring)
		test[i] = accessTime(candidate.ptr())
	}
	avg := GetAvg(test)

	return avg-float64(base) >= float64(L3AccessTimeGapL2)
}

// removeAll returns members with every line in remove excluded,
// preserving order.
func removeAll(members, remove []*Cacheline) []*Cacheline {
	drop := make(map[*Cacheline]bool, len(remove))
	for _, m := range remove {
		drop[m] = true
	}
	out := make([]*Cacheline, 0, len(members)-len(remove))
	for _, m := range members {
		if !drop[m] {
			out = append(out, m)
		}
	}
	return out
}

// finishIdentifyingGroup marks every member of a just-completed group,
// ported from cache.c's finish_identifying_groups.
func finishIdentifyingGroup(members []*Cacheline) {
	for _, m := range members {
		m.setCacheGroupInit()
	}
}
