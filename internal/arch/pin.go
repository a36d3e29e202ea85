package arch

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PinToCPU sets the CPU affinity of the calling OS thread to the single
// given logical CPU. Prime+Probe measurements are only meaningful when
// attacker and victim share a core (or, for a shared LLC, any core on the
// same socket), so callers are expected to call this once before
// preparing measurements, from the goroutine that will run the
// prime/probe loop (see runtime.LockOSThread).
func PinToCPU(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)

	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "pin to cpu %d", cpu)
	}
	return nil
}
