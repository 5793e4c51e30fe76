package fpenv

import (
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

// smallestNormal is the smallest positive normal float32.
var smallestNormal = math.Float32frombits(0x00800000)

//go:noinline
func halve(x float32) float32 {
	return x * 0.5
}

func TestFlushToZeroGuard(t *testing.T) {
	if !Supported() {
		t.Skipf("flush-to-zero not supported on %s", runtime.GOARCH)
	}

	release := FlushToZeroGuard()
	assert.True(t, Active())
	assert.Zero(t, halve(smallestNormal), "subnormal result should flush to zero")
	release()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	assert.False(t, Active(), "guard must restore the previous mode")
	assert.NotZero(t, halve(smallestNormal))
}

func TestGuardNests(t *testing.T) {
	if !Supported() {
		t.Skip("flush-to-zero not supported")
	}

	outer := FlushToZeroGuard()
	inner := FlushToZeroGuard()
	inner()
	assert.True(t, Active(), "releasing the inner guard keeps the outer mode")
	outer()
}

func TestRegister(t *testing.T) {
	switch runtime.GOARCH {
	case "amd64":
		assert.Equal(t, "MXCSR", Register())
	case "arm64":
		assert.Equal(t, "FPCR", Register())
	default:
		assert.Equal(t, "none", Register())
		assert.NotPanics(t, func() { FlushToZeroGuard()() })
	}
}
