//go:build !amd64 && !arm64

package fpenv

const ftzBit = 0

const registerName = "none"

func supported() bool { return false }

func readControl() uint64 { return 0 }

func writeControl(uint64) {}
