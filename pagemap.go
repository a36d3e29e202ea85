package cachesc

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Virtual-to-physical translation via /proc/self/pagemap, ported from
// addr_translation.c. The pagemap entry format is documented at
// https://www.kernel.org/doc/Documentation/vm/pagemap.txt: the low 54
// bits of each 8-byte entry hold the physical frame number, bit 63 is
// the present bit. A frame number of zero for a present page means the
// caller lacks CAP_SYS_ADMIN (or the kernel has scrubbed it, which is
// the modern default for unprivileged readers), i.e. spec §7 kind b:
// privilege-unavailable, recovered locally by the caller by switching to
// the unprivileged builder.

var (
	pagemapOnce sync.Once
	pagemapFile *os.File
	pagemapErr  error
)

func openPagemap() (*os.File, error) {
	pagemapOnce.Do(func() {
		pagemapFile, pagemapErr = os.Open(fmt.Sprintf("/proc/%d/pagemap", os.Getpid()))
	})
	return pagemapFile, pagemapErr
}

const pagemapEntryBytes = 8

// ToPhysical translates a virtual address of the current process to a
// physical address. The bool result is false when translation is
// unavailable (missing privilege, or the page isn't present), matching
// get_phys_addr's "return 1" paths; it never panics, since an
// unavailable translation is an expected, recoverable outcome that
// drives the builder's choice between the privileged and unprivileged
// path.
func ToPhysical(vaddr uintptr) (paddr uintptr, ok bool) {
	f, err := openPagemap()
	if err != nil {
		return 0, false
	}

	pageSize := uintptr(unix.Getpagesize())
	vpn := vaddr / pageSize

	var buf [pagemapEntryBytes]byte
	n, err := f.ReadAt(buf[:], int64(vpn)*pagemapEntryBytes)
	if err != nil || n != len(buf) {
		return 0, false
	}

	entry := uint64(0)
	for i := len(buf) - 1; i >= 0; i-- {
		entry = entry<<8 | uint64(buf[i])
	}

	const pfnMask = uint64(1)<<54 - 1
	pfn := entry & pfnMask
	present := entry&(uint64(1)<<63) != 0

	if !present || pfn == 0 {
		return 0, false
	}

	paddr = uintptr(pfn)*pageSize + (vaddr % pageSize)
	return paddr, true
}

// CanTranslate is a side-effect-free probe of whether the process has
// sufficient privilege to resolve physical frame numbers, ported from
// cache_types.h's can_trans_phys_addrs. It translates the address of a
// throwaway local variable.
func CanTranslate() bool {
	var probe int
	_, ok := ToPhysical(uintptr(unsafe.Pointer(&probe)))
	return ok
}
