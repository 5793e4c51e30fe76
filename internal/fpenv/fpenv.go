// Package fpenv controls the flush-to-zero mode of the floating-point unit.
//
// Flush-to-zero makes arithmetic results that would be subnormal come out as
// zero, which avoids the slow microcode paths some CPUs take for subnormal
// values. The mode lives in a per-thread control register (MXCSR on amd64,
// FPCR on arm64), so enabling it is only meaningful for code that stays on one
// OS thread. FlushToZeroGuard pins the calling goroutine to its thread for the
// lifetime of the guard and restores the previous register value on release.
//
// Side effect: between the guard and its release, float32 and float64
// arithmetic performed by the calling goroutine rounds subnormal results to
// zero. No other goroutine or thread is affected.
package fpenv

import "runtime"

// FlushToZeroGuard enables flush-to-zero on the current OS thread and returns
// the function that restores the previous mode. It must be deferred from the
// same goroutine:
//
//	defer fpenv.FlushToZeroGuard()()
//
// On platforms without support the guard is a no-op.
func FlushToZeroGuard() func() {
	if !supported() {
		return func() {}
	}

	runtime.LockOSThread()
	prev := readControl()
	writeControl(prev | ftzBit)

	return func() {
		writeControl(prev)
		runtime.UnlockOSThread()
	}
}

// Supported reports whether flush-to-zero can be controlled on this platform.
func Supported() bool {
	return supported()
}

// Active reports whether flush-to-zero is set on the current OS thread. The
// answer is only stable while the goroutine is locked to its thread, e.g.
// inside FlushToZeroGuard.
func Active() bool {
	return supported() && readControl()&ftzBit != 0
}

// Register names the control register holding the flush-to-zero bit.
func Register() string {
	return registerName
}
