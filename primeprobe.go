package cachesc

import (
	"unsafe"

	"github.com/Miro-H/CacheSC/internal/arch"
)

// AccessTime measures the access latency of one line, ported from
// asm.h's accesstime.
func AccessTime(cl *Cacheline) uint32 {
	return arch.AccessTime(cl.ptr())
}

// accessTime is the unexported form used internally on a raw
// unsafe.Pointer, e.g. by the unprivileged builder's collision oracle
// before the candidate has been linked into any ring.
func accessTime(p unsafe.Pointer) uint32 {
	return arch.AccessTime(p)
}

// AccessTimeOverhead measures the fixed overhead of the timing sequence
// itself (with no memory access in between), ported from asm.h's
// accesstime_overhead. Subtracting it from AccessTime's result isolates
// the memory latency; this package leaves that subtraction to the
// caller, since spec.md's raw timing scenarios expect uncorrected
// cycle counts.
func AccessTimeOverhead() uint32 {
	return arch.AccessTimeOverhead()
}

// Prime walks the ring starting at head end to end via the forward
// (next) pointers, loading every line of the ring into cache, ported
// from cache.h's prime. It returns head's predecessor (the ring's
// tail), the natural entry point for the next round.
func Prime(head *Cacheline) *Cacheline {
	return clFromPtr(arch.Prime(head.ptr()))
}

// primeRing is the internal, panic-free form used by the unprivileged
// builder before a candidate has any confirmed set membership of its
// own.
func primeRing(head *Cacheline) *Cacheline {
	if head == nil {
		return nil
	}
	return Prime(head)
}

// PrimeRev is Prime's mirror, walking the ring via the reverse (prev)
// pointers, ported from cache.h's prime_rev.
func PrimeRev(head *Cacheline) *Cacheline {
	return clFromPtr(arch.PrimeRev(head.ptr()))
}

// PrimeCacheSet is the original PLRU-oriented priming strategy that
// predates Prime, kept for API completeness (see DESIGN.md's Open
// Question decision) but marked deprecated: it repeats a partial
// traversal PLRUReps times to defeat a pseudo-LRU replacement policy
// that Prime's single full traversal does not reliably evict on its
// own. New code should prefer Prime.
//
// Deprecated: use Prime.
func PrimeCacheSet(head *Cacheline, associativity uint32) {
	for i := uint32(0); i < PLRUReps; i++ {
		curr := head
		for j := uint32(0); j < associativity; j++ {
			arch.Load(curr.ptr())
			curr = curr.Next()
		}
	}
}

// FullProbe times one full traversal of a ring and returns the elapsed
// cycles, ported from cache.h's probe_full_ds.
func FullProbe(head *Cacheline) uint32 {
	return arch.FullProbe(head.ptr())
}

// ProbeSet times a single-set-length traversal starting at curr,
// ported from cache.h's probe_cacheset (generalized to a runtime step
// count rather than per-level generated assembly, see DESIGN.md). The
// burst spans associativity hops from curr, but curr itself is not the
// line the timing is recorded on: matching the generated
// asm_{l1,l2}_probe_cacheset routines, the elapsed cycles are written to
// the line associativity-1 hops from curr, and the line one hop past
// that (associativity hops from curr, the start of the next set in the
// ring) is returned for the following call.
func ProbeSet(curr *Cacheline, associativity uint32) *Cacheline {
	timed, next, cycles := arch.ProbeSet(curr.ptr(), associativity)
	clFromPtr(timed).timing = cycles
	return clFromPtr(next)
}

// Probe walks an entire multi-set ring one set at a time, recording a
// timing on the first line of each set, ported from cache.h's probe.
func Probe(ctx *CacheContext, entry *Cacheline) {
	// Each ProbeSet burst follows prev pointers, so it covers exactly one
	// set only when it starts on a set's last line; an entry that is the
	// first line of its set (as Build returns) starts one hop back.
	start := entry
	if start.IsFirst() {
		start = start.Prev()
	}
	curr := start
	for {
		next := ProbeSet(curr, ctx.Associativity)
		if next == start {
			break
		}
		curr = next
	}
}

// ProbeAllCachelines times every line individually rather than one
// timing per set, ported from cache.h's probe_all_cachelines. It is
// more expensive than Probe but gives per-line rather than per-set
// resolution.
func ProbeAllCachelines(entry *Cacheline) {
	curr := entry
	for {
		curr.timing = AccessTime(curr)
		curr = curr.Next()
		if curr == entry {
			break
		}
	}
}

// IsCached reports whether timing, a measured access time, counts as a
// cache hit: it must not exceed ctx's AccessTime plus a fresh
// AccessTimeOverhead measurement taken on each call, ported from
// cache.h's is_cached.
func IsCached(ctx *CacheContext, timing uint32) bool {
	return timing <= ctx.AccessTime+AccessTimeOverhead()
}

// ClearCache flushes every line of a ring from the actual hardware
// cache (not just this structure's bookkeeping), ported from cache.h's
// clear_cache.
func ClearCache(entry *Cacheline) {
	curr := entry
	for {
		arch.Flush(curr.ptr())
		curr = curr.Next()
		if curr == entry {
			break
		}
	}
}

// PerLineTimes returns the most recently recorded timing of every line
// in traversal order, ported from cache.h's get_all_msrmts_in_order.
func PerLineTimes(entry *Cacheline) []uint32 {
	var out []uint32
	curr := entry
	for {
		out = append(out, curr.Timing())
		curr = curr.Next()
		if curr == entry {
			break
		}
	}
	return out
}

// SetTimes returns the timing recorded on the first line of each set,
// ported from cache.h's get_msrmts_for_all_set.
func SetTimes(entry *Cacheline) []uint32 {
	var out []uint32
	curr := entry
	for {
		if curr.IsFirst() {
			out = append(out, curr.Timing())
		}
		curr = curr.Next()
		if curr == entry {
			break
		}
	}
	return out
}

// PerSetSum sums the timings of every line belonging to targetSet,
// ported from cache.h's get_per_set_sum_of_msrmts.
func PerSetSum(entry *Cacheline, targetSet uint16) uint32 {
	sum := uint32(0)
	curr := entry
	for {
		if curr.SetIndex() == targetSet {
			sum += curr.Timing()
		}
		curr = curr.Next()
		if curr == entry {
			break
		}
	}
	return sum
}

// SetTime returns the timing recorded for one specific set's first
// line, ported from cache.h's get_msrmt_for_set.
func SetTime(entry *Cacheline, targetSet uint16) (uint32, bool) {
	curr := entry
	for {
		if curr.IsFirst() && curr.SetIndex() == targetSet {
			return curr.Timing(), true
		}
		curr = curr.Next()
		if curr == entry {
			break
		}
	}
	return 0, false
}
