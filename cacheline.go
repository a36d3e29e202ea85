package cachesc

import "unsafe"

// Cacheline flag bits, ported from cache_types.h's SET_FIRST/SET_LAST/
// SET_CACHE_GROUP_INIT bit layout.
const (
	FlagFirst          uint16 = 1 << 0
	FlagLast           uint16 = 1 << 1
	FlagCacheGroupInit uint16 = 1 << 2
)

// Cacheline is one record of the Prime+Probe data structure. It is sized
// to occupy exactly one hardware cache line (CachelineSize bytes) on the
// target architecture.
//
// next and prev MUST remain the first two fields, in this order: package
// arch walks them by fixed byte offset (0 and 8 on amd64) from raw inline
// assembly that has no notion of Go field names, exactly as
// cache_types.h's CL_NEXT_OFFSET/CL_PREV_OFFSET require of the C struct.
// Do not reorder, and do not insert anything before them.
type Cacheline struct {
	next *Cacheline
	prev *Cacheline

	setIndex uint16
	flags    uint16
	timing   uint32

	// padding fills out the record to CachelineSize bytes so that one
	// Cacheline occupies exactly one physical cache line and consecutive
	// records in a backing page never share a line.
	padding [CachelineSize - 2*8 - 2*2 - 4]byte
}

// SetIndex is the cache set this line was assigned to.
func (cl *Cacheline) SetIndex() uint16 { return cl.setIndex }

// Timing is the cycle count recorded by the most recent probe.
func (cl *Cacheline) Timing() uint32 { return cl.timing }

// Next returns the next line in traversal order.
func (cl *Cacheline) Next() *Cacheline { return cl.next }

// Prev returns the previous line in traversal order.
func (cl *Cacheline) Prev() *Cacheline { return cl.prev }

// IsFirst reports whether cl is the first line of its set.
func (cl *Cacheline) IsFirst() bool { return cl.flags&FlagFirst != 0 }

// IsLast reports whether cl is the last line of its set.
func (cl *Cacheline) IsLast() bool { return cl.flags&FlagLast != 0 }

// IsCacheGroupInit reports whether cl's cache-set assignment has been
// confirmed by the builder that produced it; every builder sets it on
// the lines it keeps.
func (cl *Cacheline) IsCacheGroupInit() bool { return cl.flags&FlagCacheGroupInit != 0 }

func (cl *Cacheline) setFirst()          { cl.flags |= FlagFirst }
func (cl *Cacheline) setLast()           { cl.flags |= FlagLast }
func (cl *Cacheline) setCacheGroupInit() { cl.flags |= FlagCacheGroupInit }

// ptr is the raw pointer to cl, for handing to package arch, which only
// knows about fixed byte offsets, never Go types.
func (cl *Cacheline) ptr() unsafe.Pointer { return unsafe.Pointer(cl) }

// clFromPtr recovers a *Cacheline from the unsafe.Pointer arch hands back
// after a prime/probe traversal.
func clFromPtr(p unsafe.Pointer) *Cacheline { return (*Cacheline)(p) }

// clInsertAfter splices newCl in right after anchor. If anchor is nil,
// newCl becomes a singleton ring (its own next and prev). Ported from
// cache_types.h's cl_insert.
func clInsertAfter(anchor, newCl *Cacheline) {
	if anchor == nil {
		newCl.next = newCl
		newCl.prev = newCl
		return
	}
	newCl.next = anchor.next
	newCl.prev = anchor
	anchor.next.prev = newCl
	anchor.next = newCl
}

// clRemove unlinks cl from its ring. It must not be called on a line
// whose neighbours have already been freed: like cl_remove in the C
// source, it happily dereferences whatever cl.next/cl.prev currently
// point to.
func clRemove(cl *Cacheline) {
	if cl.prev != nil {
		cl.prev.next = cl.next
	}
	if cl.next != nil {
		cl.next.prev = cl.prev
	}
}

// clReplace makes newCl take oldCl's place among oldCl's neighbours.
// oldCl is detached but its own next/prev pointers are left pointing at
// its former neighbours (they are not cleared): this is deliberate, used
// transiently during unprivileged collision testing where the swap is
// reverted a few instructions later by another clReplace call, ported
// from cache_types.h's cl_replace.
func clReplace(newCl, oldCl *Cacheline) {
	oldCl.next.prev = newCl
	oldCl.prev.next = newCl
	newCl.next = oldCl.next
	newCl.prev = oldCl.prev
}

// clLength counts the lines in cl's ring by walking backward (prev) until
// it returns to cl. Diagnostics only; the timing-critical paths never
// call this. Ported from cache_types.h's get_cache_ds_len.
func clLength(entry *Cacheline) uint32 {
	if entry == nil {
		return 0
	}
	count := uint32(0)
	curr := entry
	for {
		count++
		curr = curr.prev
		if curr == entry {
			break
		}
	}
	return count
}
