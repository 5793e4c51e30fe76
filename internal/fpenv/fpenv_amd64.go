package fpenv

import "golang.org/x/sys/cpu"

// MXCSR bit 15 (FZ).
const ftzBit = 1 << 15

const registerName = "MXCSR"

func getMXCSR() uint32

func setMXCSR(csr uint32)

func supported() bool { return cpu.X86.HasSSE2 }

func readControl() uint64 { return uint64(getMXCSR()) }

func writeControl(v uint64) { setMXCSR(uint32(v)) }
