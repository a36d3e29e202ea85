// Package arch wraps the x86-64 primitives the Prime+Probe engine needs:
// cache-line flush, serialising barriers, the cycle counter, and the
// pointer-chasing prime/probe loops that must run without a Go function
// call (and therefore without a goroutine preemption point) inside the
// measured region.
//
// Every timing-sensitive operation is a single cgo call into a small
// static-inline C helper, mirroring asm.h and the always_inline
// functions of cache.h in the ported library: the loop that walks the
// cacheline ring lives entirely on the C side of the boundary so that Go's
// scheduler cannot interleave a stop-the-world pause into the middle of a
// measurement.
package arch

/*
#include <stdint.h>
#include <string.h>

#if !defined(__x86_64__)
#error "package arch requires amd64"
#endif

static inline void cachesc_clflush(void *p) {
    asm volatile("clflush (%0)\n\t" :: "r" (p));
}

static inline void cachesc_lfence(void) {
    asm volatile("lfence\n\t" ::);
}

static inline void cachesc_sfence(void) {
    asm volatile("sfence\n\t" ::);
}

static inline void cachesc_mfence(void) {
    asm volatile("mfence\n\t" ::);
}

static inline void cachesc_cpuid(void) {
    asm volatile(
        "mov $0x80000005, %%eax\n\t"
        "cpuid\n\t"
        ::: "rax", "rbx", "rcx", "rdx"
    );
}

static inline void cachesc_readq(void *p) {
    asm volatile("movq (%0), %%r10\n\t" :: "r" (p) : "r10");
}

static inline void cachesc_incq(void *p) {
    asm volatile("incq (%0)\n\t" :: "r" (p));
}

static inline void cachesc_nop_slide(void) {
    // Ivy Bridge has a 14-19 stage pipeline; this drains it before a
    // timestamp is taken, same rationale and length as the original
    // nop_slide().
    asm volatile(
        ".rept 38\n\t"
        "nop\n\t"
        ".endr\n\t"
        ::
    );
}

static inline uint32_t cachesc_rdtsc_low(void) {
    uint32_t lo;
    asm volatile(
        "cpuid\n\t"
        "rdtsc\n\t"
        "mov %%eax, %0\n\t"
        : "=r" (lo)
        :: "rax", "rbx", "rcx", "rdx"
    );
    return lo;
}

static inline uint32_t cachesc_rdtscp_diff(uint32_t start_low) {
    uint32_t lo, diff;
    asm volatile(
        "rdtscp\n\t"
        "mov %%eax, %0\n\t"
        "cpuid\n\t"
        : "=r" (lo)
        :: "rax", "rbx", "rcx", "rdx"
    );
    diff = lo - start_low;
    return diff;
}

// accesstime measures the round trip of a single incq to p, bracketed by
// serialising instructions, per Intel's "How to Benchmark Code Execution
// Times" guide.
static inline uint32_t cachesc_accesstime(void *p) {
    uint32_t tsc_low = 0;
    asm volatile(
        "cpuid\n\t"
        "rdtsc\n\t"
        "mov %%eax, %%r8d\n\t"
        "incq (%1)\n\t"
        "rdtscp\n\t"
        "mov %%eax, %%r9d\n\t"
        "cpuid\n\t"
        "decq (%1)\n\t"
        "sub %%r8d, %%r9d\n\t"
        "mov %%r9d, %0\n\t"
        : "=r" (tsc_low)
        : "r" (p)
        : "rax", "rbx", "rcx", "rdx", "r8", "r9"
    );
    return tsc_low;
}

static inline uint32_t cachesc_accesstime_overhead(void) {
    uint32_t tsc_low = 0;
    cachesc_nop_slide();
    asm volatile(
        "cpuid\n\t"
        "rdtsc\n\t"
        "mov %%eax, %%r8d\n\t"
        "rdtscp\n\t"
        "mov %%eax, %%r9d\n\t"
        "cpuid\n\t"
        "sub %%r8d, %%r9d\n\t"
        "mov %%r9d, %0\n\t"
        : "=r" (tsc_low)
        :: "rax", "rbx", "rcx", "rdx", "r8", "r9"
    );
    return tsc_low;
}

// cachesc_prime walks the "next" pointer (offset 0) starting at head until
// it reaches head again, mfence-ing after every step so each load commits
// before the next is issued. Returns the predecessor of head, the natural
// entry point for the next round.
static inline void *cachesc_prime(void *head) {
    void *curr = head;
    cachesc_cpuid();
    do {
        curr = *(void **) curr;
        cachesc_mfence();
    } while (curr != head);
    cachesc_cpuid();
    return *(void **) ((char *) curr + 8);
}

// cachesc_prime_rev is cachesc_prime but follows "prev" (offset 8) and,
// like cachesc_prime, returns *(curr+8) rather than curr itself. Do not
// "simplify" this to return entry.next directly: that would look more
// intuitive but no longer match the original prime_rev this is ported
// from, which returns one further hop past head.
static inline void *cachesc_prime_rev(void *head) {
    void *curr = head;
    cachesc_cpuid();
    do {
        curr = *(void **) ((char *) curr + 8);
        cachesc_mfence();
    } while (curr != head);
    cachesc_cpuid();
    return *(void **) ((char *) curr + 8);
}

// cachesc_full_probe times one full walk of the ring following "prev",
// as a single timestamp: start_timer, walk, stop_timer.
static inline uint32_t cachesc_full_probe(void *head) {
    uint32_t start = cachesc_rdtsc_low();
    void *curr = head;
    do {
        curr = *(void **) ((char *) curr + 8);
    } while (curr != head);
    return cachesc_rdtscp_diff(start);
}

// cachesc_probe_set times a single back-to-back access burst over one
// cache set: `steps` many "prev" hops (steps == associativity), a single
// timestamp around the whole burst. It mirrors the generated
// asm_{l1,l2}_probe_cacheset routines hop for hop: the burst lands on
// two distinct lines, the one reached after `steps-1` hops (out_curr,
// where the timing is recorded, matching the generated code's
// curr_cl_out) and the one reached one hop further, at `steps`
// (the return value, matching next_cl_out). The caller uses the
// returned pointer as curr for the following call, so consecutive calls
// tile the ring into exactly `sets` bursts instead of drifting by one
// line each time.
static inline void *cachesc_probe_set(void *curr, uint32_t steps, void **out_curr, uint32_t *out_time) {
    uint32_t start = cachesc_rdtsc_low();
    void *c = curr;
    void *prev = curr;
    for (uint32_t i = 0; i < steps; ++i) {
        prev = c;
        c = *(void **) ((char *) c + 8);
    }
    *out_time = cachesc_rdtscp_diff(start);
    *out_curr = prev;
    return c;
}

static void cachesc_clear_block(void *base, uint32_t nr_lines, uint32_t line_size) {
    uint32_t i;
    for (i = 0; i < nr_lines; ++i) {
        cachesc_incq((char *) base + (uint64_t) i * line_size);
    }
    for (i = 0; i < nr_lines; ++i) {
        cachesc_clflush((char *) base + (uint64_t) i * line_size);
    }
}

static void cachesc_prepare_measurement(uint64_t busy_iters) {
    volatile uint64_t i = 0;
    while (i++ < busy_iters) {
    }
    for (i = 0; i < 200; ++i) {
        cachesc_rdtsc_low();
    }
    cachesc_cpuid();
}
*/
import "C"

import "unsafe"

// Flush evicts the cache line containing p from all cache levels.
func Flush(p unsafe.Pointer) {
	C.cachesc_clflush(p)
}

// Load issues a single 8-byte load to p.
func Load(p unsafe.Pointer) {
	C.cachesc_readq(p)
}

// Inc issues a single 8-byte increment to p.
func Inc(p unsafe.Pointer) {
	C.cachesc_incq(p)
}

// MFence issues a full memory fence.
func MFence() {
	C.cachesc_mfence()
}

// LFence issues a load fence.
func LFence() {
	C.cachesc_lfence()
}

// SFence issues a store fence.
func SFence() {
	C.cachesc_sfence()
}

// CPUID issues a serialising cpuid instruction.
func CPUID() {
	C.cachesc_cpuid()
}

// NopSlide runs a short run of no-ops to drain the pipeline before a
// timestamp is taken.
func NopSlide() {
	C.cachesc_nop_slide()
}

// StartTimer returns an opaque timestamp handle to later pass to
// StopTimer. Unlike the original C implementation, which stashes the low
// 32 bits of rdtsc in a reserved register that survives because both
// halves are inlined into one function body, the handle here is carried
// explicitly across the Go/C boundary: two independent cgo calls cannot
// rely on a register surviving the call, so the value travels as a
// return/parameter instead.
func StartTimer() uint32 {
	return uint32(C.cachesc_rdtsc_low())
}

// StopTimer returns the number of cycles elapsed since the matching
// StartTimer call.
func StopTimer(start uint32) uint32 {
	return uint32(C.cachesc_rdtscp_diff(C.uint32_t(start)))
}

// AccessTime measures the round-trip cost of touching p: serialise,
// timestamp, touch p, serialise, timestamp, subtract.
func AccessTime(p unsafe.Pointer) uint32 {
	return uint32(C.cachesc_accesstime(p))
}

// AccessTimeOverhead measures the same shape as AccessTime but without
// touching memory, giving the fixed cost of the measurement itself.
func AccessTimeOverhead() uint32 {
	return uint32(C.cachesc_accesstime_overhead())
}

// Prime walks the "next" pointer (fixed offset 0) of the ring starting at
// head until it returns to head, mfence-ing after every step. Returns
// the predecessor of head.
func Prime(head unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.cachesc_prime(head))
}

// PrimeRev is Prime but follows "prev" (fixed offset 8).
func PrimeRev(head unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.cachesc_prime_rev(head))
}

// FullProbe times a single walk of the whole ring (following "prev") as
// one timestamp, returning the elapsed cycles.
func FullProbe(head unsafe.Pointer) uint32 {
	return uint32(C.cachesc_full_probe(head))
}

// ProbeSet times a single back-to-back access burst of `steps` "prev"
// hops starting at curr (steps should equal the set's associativity).
// It returns the line the burst's timing belongs to (timed, the line
// `steps-1` hops from curr) together with the elapsed cycles, and the
// head of the following set (next, `steps` hops from curr) for the
// caller to feed into the following call.
func ProbeSet(curr unsafe.Pointer, steps uint32) (timed unsafe.Pointer, next unsafe.Pointer, cycles uint32) {
	var out C.uint32_t
	next = unsafe.Pointer(C.cachesc_probe_set(curr, C.uint32_t(steps), &timed, &out))
	cycles = uint32(out)
	return timed, next, cycles
}

// ClearBlock fills nrLines lines of lineSize bytes starting at base with
// known data, then flushes every one of them from the cache. It is a
// heuristic, not a guarantee: the tree-PLRU replacement state is left
// unknown.
func ClearBlock(base unsafe.Pointer, nrLines, lineSize uint32) {
	C.cachesc_clear_block(base, C.uint32_t(nrLines), C.uint32_t(lineSize))
}

// PrepareMeasurement busy-loops for roughly busyIters iterations (pass a
// value derived from the configured processor frequency) and then takes
// 200 throwaway cycle-counter reads, a heuristic to get the CPU governor
// to settle at its top frequency before measurements start.
func PrepareMeasurement(busyIters uint64) {
	C.cachesc_prepare_measurement(C.uint64_t(busyIters))
}
