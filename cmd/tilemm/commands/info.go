package commands

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sys/cpu"

	"github.com/xupit3r/tilemm/internal/engine"
	"github.com/xupit3r/tilemm/internal/fpenv"
	"github.com/xupit3r/tilemm/internal/system"
	"github.com/xupit3r/tilemm/internal/tile"
)

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show host information relevant to a run",
		Long: `Display the CPU features, floating-point control register, and memory of
this host, and whether the private accumulators of the configured run fit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, a)
		},
	}
}

func runInfo(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	cfg := a.cfg

	fmt.Fprintln(out, "System Information:")
	fmt.Fprintf(out, "   Platform: %s/%s\n", system.GetPlatform(), system.GetArchitecture())
	fmt.Fprintf(out, "   CPUs: %d (GOMAXPROCS %d)\n", runtime.NumCPU(), runtime.GOMAXPROCS(0))
	fmt.Fprintf(out, "   CPU features: %s\n", strings.Join(cpuFeatures(), " "))

	if fpenv.Supported() {
		fmt.Fprintf(out, "   Flush-to-zero: supported (%s)\n", fpenv.Register())
	} else {
		fmt.Fprintln(out, "   Flush-to-zero: not supported, runs use the default mode")
	}

	ram, err := system.GetRAMInfo()
	if err != nil {
		fmt.Fprintf(out, "   RAM: unknown (%v)\n", err)
	} else {
		fmt.Fprintf(out, "   RAM: %s total, %s available\n",
			system.FormatBytes(ram.TotalBytes), system.FormatBytes(ram.AvailableBytes))
	}
	fmt.Fprintln(out)

	n := cfg.Engine.Size
	workers := tile.Active(n/cfg.Engine.Tile, cfg.Engine.Threads)
	need := engine.AccumulatorBytes(workers, n)

	fmt.Fprintln(out, "Configured Run:")
	fmt.Fprintf(out, "   N=%d tile=%d threads=%d active workers=%d\n", n, cfg.Engine.Tile, cfg.Engine.Threads, workers)
	fmt.Fprintf(out, "   Accumulators: %s\n", system.FormatBytes(need))

	switch err := system.CheckFits(need, cfg.MemoryBudgetBytes()); {
	case err == nil:
		fmt.Fprintln(out, "   Fits: yes")
	case errors.Is(err, system.ErrInsufficientMemory):
		fmt.Fprintf(out, "   Fits: no (%v)\n", err)
	default:
		fmt.Fprintf(out, "   Fits: unknown (%v)\n", err)
	}
	return nil
}

func cpuFeatures() []string {
	var flags map[string]bool
	switch runtime.GOARCH {
	case "amd64", "386":
		flags = map[string]bool{
			"sse2":     cpu.X86.HasSSE2,
			"sse41":    cpu.X86.HasSSE41,
			"avx":      cpu.X86.HasAVX,
			"avx2":     cpu.X86.HasAVX2,
			"fma":      cpu.X86.HasFMA,
			"avx512f":  cpu.X86.HasAVX512F,
			"avx512bw": cpu.X86.HasAVX512BW,
		}
	case "arm64":
		flags = map[string]bool{
			"fp":    cpu.ARM64.HasFP,
			"asimd": cpu.ARM64.HasASIMD,
			"sve":   cpu.ARM64.HasSVE,
			"sve2":  cpu.ARM64.HasSVE2,
		}
	}

	names := lo.Keys(lo.PickBy(flags, func(_ string, ok bool) bool { return ok }))
	if len(names) == 0 {
		return []string{"none detected"}
	}
	slices.Sort(names)
	return names
}
