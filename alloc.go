package cachesc

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// pageAlloc returns a zeroed, page-aligned anonymous mapping of at least
// size bytes (the kernel rounds up to a whole number of pages), playing
// the role of aligned_alloc(PAGE_SIZE, size) in the C source. mmap is
// used instead of a Go-level allocation because the Go allocator makes
// no page-alignment guarantee and because these pages must be released
// individually and out of the garbage collector's view: the backing
// store is manipulated through raw pointer arithmetic that the GC cannot
// trace, exactly like the intrusive list it holds.
func pageAlloc(size int) []byte {
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		fatalf("mmap %d bytes failed: %v", size, err)
	}
	return b
}

// pageFree releases a mapping obtained from pageAlloc. base must be the
// exact slice (same pointer and length) pageAlloc returned.
func pageFree(base []byte) {
	if err := unix.Munmap(base); err != nil {
		fatalf("munmap failed: %v", err)
	}
}

// basePointer returns the address of the first byte of b.
func basePointer(b []byte) unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}

// cachelineAt reinterprets the memory at base+idx*CachelineSize as a
// *Cacheline. base must come from pageAlloc, which guarantees
// CachelineSize-aligned, zeroed backing memory.
func cachelineAt(base unsafe.Pointer, idx uintptr) *Cacheline {
	return (*Cacheline)(unsafe.Pointer(uintptr(base) + idx*CachelineSize))
}

// allocation is one backing mapping owned by a built structure. A
// virtual-addressing structure owns exactly one; a physical-addressing
// structure typically owns one per cache group (page), since each
// group must be freed independently, ported from cache.c's
// release_cache_ds walking a per-line set of distinct page bases.
type allocation struct {
	backing []byte
}

var (
	allocMu  sync.Mutex
	allocReg = map[*Cacheline][]allocation{}
)

// registerAllocation records the set of backing mappings that entry (the
// ring returned by a builder) exclusively owns: exactly one structure
// holds each backing page, and only that structure's Release call may
// unmap it.
func registerAllocation(entry *Cacheline, allocs []allocation) {
	if entry == nil {
		for _, a := range allocs {
			pageFree(a.backing)
		}
		return
	}
	allocMu.Lock()
	allocReg[entry] = allocs
	allocMu.Unlock()
}

// releaseAllocation frees every backing mapping owned by entry and
// forgets it, ported from cache.c's release_cache_ds. It deduplicates
// nothing itself; callers must not pass the same backing page in two
// allocation entries for one structure, matching how the original
// dedups page bases before this point instead of during it.
func releaseAllocation(entry *Cacheline) {
	if entry == nil {
		return
	}
	allocMu.Lock()
	allocs, ok := allocReg[entry]
	delete(allocReg, entry)
	allocMu.Unlock()

	if !ok {
		return
	}
	for _, a := range allocs {
		pageFree(a.backing)
	}
}
