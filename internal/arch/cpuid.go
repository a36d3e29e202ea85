package arch

import (
	"github.com/klauspost/cpuid/v2"
)

// Capabilities reports the CPUID features the Prime+Probe engine relies
// on. RDTSCP is the instruction StopTimer reads the cycle counter with
// (followed by a serialising cpuid); it is the only one of these primitives
// klauspost/cpuid exposes as a queryable FeatureID; clflush and an
// invariant TSC are both effectively baseline on any x86-64 chip this
// package supports, so klauspost/cpuid does not carry feature flags for
// them and there is nothing meaningful to detect here.
type Capabilities struct {
	RDTSCP bool
}

// DetectCapabilities queries the host CPU via klauspost/cpuid.
func DetectCapabilities() Capabilities {
	return Capabilities{
		RDTSCP: cpuid.CPU.Supports(cpuid.RDTSCP),
	}
}

// CacheDescriptor summarises one detected cache level, as reported by the
// host's CPUID leaves through klauspost/cpuid. It is diagnostic only: the
// P+P engine always uses the compile-time constants in config.go, never
// this. klauspost/cpuid does not expose set count or associativity
// directly, so only the total size is reported; an operator cross-checks
// it against CacheContext.CacheBytes by eye.
type CacheDescriptor struct {
	Level     int
	SizeBytes int
}

// DetectCacheTopology reports the host's detected L1D/L2/L3 sizes, for
// cmd/cachescinfo to print next to the compile-time constants so an
// operator can catch a geometry mismatch before it silently turns into
// measurement noise.
func DetectCacheTopology() []CacheDescriptor {
	c := cpuid.CPU.Cache
	descs := make([]CacheDescriptor, 0, 3)
	if c.L1D > 0 {
		descs = append(descs, CacheDescriptor{Level: 1, SizeBytes: c.L1D})
	}
	if c.L2 > 0 {
		descs = append(descs, CacheDescriptor{Level: 2, SizeBytes: c.L2})
	}
	if c.L3 > 0 {
		descs = append(descs, CacheDescriptor{Level: 3, SizeBytes: c.L3})
	}
	return descs
}
