package fpenv

import "golang.org/x/sys/cpu"

// FPCR bit 24 (FZ).
const ftzBit = 1 << 24

const registerName = "FPCR"

func getFPCR() uint64

func setFPCR(fpcr uint64)

func supported() bool { return cpu.ARM64.HasFP }

func readControl() uint64 { return getFPCR() }

func writeControl(v uint64) { setFPCR(v) }
