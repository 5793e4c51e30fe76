package commands

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/xupit3r/tilemm/internal/logging"
)

// profiler writes CPU and heap profiles around a command run.
type profiler struct {
	cpuPath string
	memPath string

	cpuFile *os.File
	started bool
}

func (p *profiler) start() error {
	p.started = true
	if p.cpuPath == "" {
		return nil
	}
	f, err := os.Create(p.cpuPath)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}
	p.cpuFile = f
	return nil
}

// stop flushes the profiles of a started run. Only the first call after start
// writes anything.
func (p *profiler) stop() error {
	if !p.started {
		return nil
	}
	p.started = false

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			return err
		}
		p.cpuFile = nil
		logging.Infof("CPU profile written to %s", p.cpuPath)
	}

	if p.memPath == "" {
		return nil
	}
	mf, err := os.Create(p.memPath)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer mf.Close()

	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(mf); err != nil {
		return fmt.Errorf("could not write memory profile: %w", err)
	}
	logging.Infof("memory profile written to %s", p.memPath)
	return nil
}
