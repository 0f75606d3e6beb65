//go:build linux

package executor

import (
	"errors"

	"golang.org/x/sys/unix"
)

// applyLimits lowers CPU and address-space ceilings on a started child.
// Zero values leave the inherited limit untouched.
func applyLimits(pid int, cpuSeconds, memoryBytes uint64) error {
	var errs []error
	if cpuSeconds > 0 {
		// The hard limit sits one second above the soft one so the child gets
		// SIGXCPU before SIGKILL.
		limit := &unix.Rlimit{Cur: cpuSeconds, Max: cpuSeconds + 1}
		if err := unix.Prlimit(pid, unix.RLIMIT_CPU, limit, nil); err != nil {
			errs = append(errs, err)
		}
	}
	if memoryBytes > 0 {
		limit := &unix.Rlimit{Cur: memoryBytes, Max: memoryBytes}
		if err := unix.Prlimit(pid, unix.RLIMIT_AS, limit, nil); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
