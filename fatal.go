package cachesc

import "fmt"

// Measurement and builder code follows the original library's assert
// discipline (spec §7, §9 "Asserts as fatal errors"): allocation
// failure, a failed sanity check, and a privilege probe that succeeded
// at open-time but returns zero on a later translation are all
// unrecoverable faults, not values a caller branches on. Introducing a
// recoverable error return on those paths would put a branch on data
// the attacker doesn't want the compiler reordering around a measured
// region, so they panic instead, exactly where the C source would
// assert(0).
//
// fatalf panics with a *FatalError. It is not a substitute for the
// ordinary recoverable results used by ToPhysical/CanTranslate (a false
// bool) and the CLI (a Go `error`), which are the two operations spec §7
// classifies as privilege-unavailable
// (recoverable) and caller-misuse-at-the-boundary respectively.
func fatalf(format string, args ...interface{}) {
	panic(&FatalError{Msg: fmt.Sprintf(format, args...)})
}

// FatalError is the panic value used for out-of-resources, structural,
// and caller-misuse faults (spec §7 kinds a, c, d). It is exported so an
// embedding harness can recover it at its outermost loop and log a clean
// shutdown instead of a raw stack trace, without this package pretending
// those faults are recoverable at the point they're detected.
type FatalError struct {
	Msg string
}

func (e *FatalError) Error() string {
	return e.Msg
}
