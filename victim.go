package cachesc

import (
	"unsafe"

	"github.com/Miro-H/CacheSC/internal/arch"
)

// Victim represents the memory location under observation: the address
// an attacker wants to know whether the victim program touched, ported
// from victim.h/victim.c. It owns the single-set structure built around
// it so that structure's set can double as the eviction set for that
// address.
type Victim struct {
	ctx  *CacheContext
	addr unsafe.Pointer
	set  *Cacheline
}

// PrepareVictim builds a one-set structure for targetSet and returns a
// Victim whose Addr lands in that set, ported from victim.c's
// prepare_victim. Unlike the original, which for physical addressing
// frees every other line of the built set individually and keeps only
// the one backing the returned address, this keeps every backing page of
// the underlying full build alive until ReleaseVictim: BuildForSets does
// not track which
// backing page belongs to which line closely enough to safely free a
// strict subset (see DESIGN.md). It is not a correctness bug, only a
// memory-retention difference from the original.
func PrepareVictim(ctx *CacheContext, targetSet uint16) *Victim {
	set := BuildForSets(ctx, []uint16{targetSet})
	if set == nil {
		fatalf("could not build a structure for set %d", targetSet)
	}
	return &Victim{ctx: ctx, addr: set.ptr(), set: set}
}

// Addr is the address under observation.
func (v *Victim) Addr() unsafe.Pointer { return v.addr }

// Set is the eviction set built around v's address.
func (v *Victim) Set() *Cacheline { return v.set }

// ReleaseVictim frees v's backing structure, ported from victim.c's
// release_victim.
func ReleaseVictim(v *Victim) {
	Release(v.set)
}

// AccessVictim reads through v's address once, ported from victim.h's
// victim (a serializing, non-caching-hint read).
func AccessVictim(v *Victim) {
	arch.MFence()
	arch.Load(v.addr)
}

// FlushVictim evicts v's address from cache via clflush, ported from
// victim.h's victim_clflush.
func FlushVictim(v *Victim) {
	arch.Flush(v.addr)
}

// AccessVictimLoop reads through v's address n times in a row, ported
// from victim.h's victim_loop.
func AccessVictimLoop(v *Victim, n int) {
	for i := 0; i < n; i++ {
		AccessVictim(v)
	}
}

// AccessVictimUntilCached repeatedly accesses v's address until a
// measured access is a cache hit, ported from victim.h's
// victim_access_until_cached. It is used to establish a known-cached
// starting state before a probe round.
func AccessVictimUntilCached(v *Victim) {
	for {
		t := arch.AccessTime(v.addr)
		if IsCached(v.ctx, t) {
			return
		}
	}
}
