package cachesc

import (
	"github.com/tklauser/go-sysconf"

	"github.com/Miro-H/CacheSC/internal/arch"
)

// Device-specific parameters, ported from device_conf.h. These should be
// adapted to the execution environment: the cache level sizes are
// crucial for the attack to work and cannot be discovered generically
// from an unprivileged process, hence they stay compile-time constants
// rather than something auto-detected and trusted.
const (
	PageSize      = 4096
	ProcessorFreq = 2900000000

	CachelineSize   = 64
	CacheGroupSize  = PageSize / CachelineSize

	L1Sets          = 64
	L1Associativity = 8
	L1AccessTime    = 4

	L2Sets          = 512
	L2Associativity = 8
	L2AccessTime    = 12

	L3Sets          = 4096
	L3Associativity = 16
	L3AccessTime    = 30

	// L3AccessTimeGapL2 is L3_ACCESS_TIME - L2_ACCESS_TIME, the
	// collision threshold used by the unprivileged physical builder.
	L3AccessTimeGapL2 = L3AccessTime - L2AccessTime

	// CollisionRep is the number of prime+probe repetitions used per
	// collision test in the unprivileged builder.
	CollisionRep = 100

	// PLRUReps is used by the deprecated PrimeCacheSet helper.
	PLRUReps = 8
)

// CacheLevel identifies which level of cache a CacheContext describes.
type CacheLevel int

const (
	L1 CacheLevel = iota
	L2
)

func (l CacheLevel) String() string {
	switch l {
	case L1:
		return "L1"
	case L2:
		return "L2"
	default:
		return "unknown"
	}
}

// AddressingType records whether a CacheContext's set index is derived
// from the virtual or the physical address of a line.
type AddressingType int

const (
	Virtual AddressingType = iota
	Physical
)

func (a AddressingType) String() string {
	switch a {
	case Virtual:
		return "virtual"
	case Physical:
		return "physical"
	default:
		return "unknown"
	}
}

// verifyPageSize cross-checks the compile-time PageSize constant against
// the runtime page size reported by sysconf(_SC_PAGESIZE). A mismatch
// does not corrupt any P+P invariant by itself (every offset computation
// in this package uses the PageSize constant consistently), so it is
// logged, not fatal.
func verifyPageSize() {
	got, err := sysconf.Sysconf(sysconf.SC_PAGESIZE)
	if err != nil {
		logger.WithError(err).Warn("could not read runtime page size via sysconf")
		return
	}
	if int(got) != PageSize {
		logger.WithFields(map[string]interface{}{
			"configured": PageSize,
			"runtime":    got,
		}).Warn("compile-time PageSize does not match sysconf(_SC_PAGESIZE)")
	}
}

func init() {
	verifyPageSize()
	caps := arch.DetectCapabilities()
	if !caps.RDTSCP {
		logger.WithFields(map[string]interface{}{
			"rdtscp": caps.RDTSCP,
		}).Warn("host CPU is missing RDTSCP; measurements will be meaningless")
	}
}
