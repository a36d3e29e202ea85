package cachesc

// buildRandomizedListForSet links lines (all belonging to the same
// cache set) into a randomized circular list and marks the first/last
// lines, ported from cache.c's build_randomized_list_for_cache_set. The
// randomization order is not a defense against a specific attack on
// this library; it exists so successive builds of the same set don't
// probe lines in allocation order, which is what the eviction strategy
// in spec §5 relies on to avoid the CPU's own replacement policy
// giving preferential treatment to a fixed traversal order.
func buildRandomizedListForSet(lines []*Cacheline) *Cacheline {
	if len(lines) == 0 {
		return nil
	}

	order := GenRandomIndices(len(lines))

	var head, prev *Cacheline
	for _, idx := range order {
		cl := lines[idx]
		if head == nil {
			head = cl
			clInsertAfter(nil, cl)
		} else {
			clInsertAfter(prev, cl)
		}
		prev = cl
	}

	head.setFirst()
	prev.setLast()
	return head
}

// buildCacheDS buckets lines by set, randomizes each set's internal
// order, randomizes the order in which sets are chained, and stitches
// the per-set rings into one ring spanning every set, ported from
// cache.c's build_cache_ds. It returns the entry point of the combined
// ring (the first line of the first set in the randomized set order).
func buildCacheDS(lines []*Cacheline) *Cacheline {
	bySet := make(map[uint16][]*Cacheline)
	var setOrderSource []uint16
	seen := make(map[uint16]bool)

	for _, cl := range lines {
		s := cl.SetIndex()
		bySet[s] = append(bySet[s], cl)
		if !seen[s] {
			seen[s] = true
			setOrderSource = append(setOrderSource, s)
		}
	}

	perm := GenRandomIndices(len(setOrderSource))
	setOrder := make([]uint16, len(setOrderSource))
	for i, p := range perm {
		setOrder[i] = setOrderSource[p]
	}

	var entry *Cacheline
	var prevSetLast *Cacheline

	for _, s := range setOrder {
		setHead := buildRandomizedListForSet(bySet[s])
		if setHead == nil {
			continue
		}
		setTail := setHead.Prev()

		if entry == nil {
			entry = setHead
		} else {
			// Splice this set's ring in right after the previous set's
			// tail, joining the two rings into one.
			prevSetLast.next = setHead
			setHead.prev = prevSetLast
			setTail.next = entry
			entry.prev = setTail
		}
		prevSetLast = setTail
	}

	return entry
}
