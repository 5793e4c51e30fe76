package system

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrInsufficientMemory is returned when a requested allocation would not fit
// into the memory budget or the memory currently available on the host.
var ErrInsufficientMemory = errors.New("system: insufficient memory")

// RAMInfo contains information about system memory
type RAMInfo struct {
	TotalBytes     int64
	AvailableBytes int64
	UsedBytes      int64
}

// GetRAMInfo returns information about system RAM
func GetRAMInfo() (*RAMInfo, error) {
	return getRAMInfo()
}

// FormatBytes formats bytes as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// GetAvailableRAM returns available RAM in bytes
func GetAvailableRAM() (int64, error) {
	info, err := GetRAMInfo()
	if err != nil {
		return 0, err
	}
	return info.AvailableBytes, nil
}

// GetTotalRAM returns total RAM in bytes
func GetTotalRAM() (int64, error) {
	info, err := GetRAMInfo()
	if err != nil {
		return 0, err
	}
	return info.TotalBytes, nil
}

// CheckFits reports whether an allocation of the given size can be made.
//
// A positive budget is a hard cap and is checked first. With a zero budget the
// host's available memory is used instead; if that cannot be determined the
// allocation is allowed.
func CheckFits(bytes, budget int64) error {
	if bytes < 0 {
		return fmt.Errorf("%w: size overflows (%d bytes)", ErrInsufficientMemory, bytes)
	}
	if budget > 0 {
		if bytes > budget {
			return fmt.Errorf("%w: need %s, budget is %s",
				ErrInsufficientMemory, FormatBytes(bytes), FormatBytes(budget))
		}
		return nil
	}

	available, err := GetAvailableRAM()
	if err != nil || available <= 0 {
		return nil
	}
	if bytes > available {
		return fmt.Errorf("%w: need %s, %s available",
			ErrInsufficientMemory, FormatBytes(bytes), FormatBytes(available))
	}
	return nil
}

// GetPlatform returns the current platform
func GetPlatform() string {
	return runtime.GOOS
}

// GetArchitecture returns the system architecture
func GetArchitecture() string {
	return runtime.GOARCH
}
