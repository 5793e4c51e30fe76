package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/xupit3r/tilemm/internal/config"
	"github.com/xupit3r/tilemm/internal/logging"
)

const version = "0.1.0"

// flagKeys maps configuration keys to the persistent flags that override them.
var flagKeys = map[string]string{
	"engine.size":             "size",
	"engine.tile":             "tile",
	"engine.threads":          "threads",
	"engine.flush_to_zero":    "ftz",
	"engine.memory_budget_mb": "memory-budget-mb",
	"sparse.inner_threshold":  "inner-threshold",
	"sparse.inner_workers":    "inner-workers",
	"fill.a":                  "fill-a",
	"fill.b":                  "fill-b",
	"fill.seed":               "seed",
	"verify.reference":        "reference",
	"verify.rtol":             "rtol",
	"verify.atol":             "atol",
	"logging.level":           "log-level",
	"logging.format":          "log-format",
	"logging.file":            "log-file",
}

// app carries the state shared by one command tree.
type app struct {
	cfgFile string
	verbose bool
	quiet   bool
	prof    profiler

	cfg *config.Config
}

// NewRootCommand builds the tilemm command tree.
func NewRootCommand() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "tilemm",
		Short: "Cache-blocked parallel matrix multiplication",
		Long: `tilemm multiplies square single-precision matrices with a cache-blocked,
multi-threaded kernel. Every worker accumulates into a private copy of the
result which a parallel reduction folds together afterwards.

A fused sparse-dense kernel compresses the right operand into compressed
sparse column form and multiplies against it directly.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadConfig(cmd.Flags()); err != nil {
				return err
			}
			return a.prof.start()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.tilemm/config.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "quiet mode")
	pf.StringVar(&a.prof.cpuPath, "cpuprofile", "", "write a CPU profile to this file")
	pf.StringVar(&a.prof.memPath, "memprofile", "", "write a heap profile to this file on exit")

	defaults := config.DefaultConfig()
	pf.IntP("size", "n", defaults.Engine.Size, "matrix dimension N")
	pf.IntP("tile", "b", defaults.Engine.Tile, "tile width B, must divide N")
	pf.IntP("threads", "t", defaults.Engine.Threads, "worker count")
	pf.Bool("ftz", defaults.Engine.FlushToZero, "flush subnormal results to zero in workers")
	pf.Int("memory-budget-mb", defaults.Engine.MemoryBudgetMB, "cap on accumulator memory in MiB (0 uses available RAM)")
	pf.Int("inner-threshold", defaults.Sparse.InnerThreshold, "column nonzero count from which a sparse dot product is split (0 disables)")
	pf.Int("inner-workers", defaults.Sparse.InnerWorkers, "goroutines per split sparse dot product")
	pf.String("fill-a", defaults.Fill.A, "fill pattern for A")
	pf.String("fill-b", defaults.Fill.B, "fill pattern for B")
	pf.Uint64("seed", defaults.Fill.Seed, "seed for the uniform fill pattern")
	pf.String("reference", defaults.Verify.Reference, "reference product to check against (naive, blas, none)")
	pf.Float64("rtol", defaults.Verify.RTol, "relative tolerance per cell")
	pf.Float64("atol", defaults.Verify.ATol, "absolute tolerance per cell")
	pf.String("log-level", defaults.Logging.Level, "log level (debug, info, warn, error)")
	pf.String("log-format", defaults.Logging.Format, "log format (text, json)")
	pf.String("log-file", defaults.Logging.File, "also write logs to this file")

	root.AddCommand(
		newDenseCmd(a),
		newSparseCmd(a),
		newVerifyCmd(a),
		newInfoCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
		newCompletionCmd(),
	)
	registerFlagCompletions(root)

	return root, a
}

// Execute runs the root command
func Execute() error {
	root, a := newRootCommand()
	return a.execute(root)
}

// execute runs root and stops any profiles it started, also when the
// command failed. Cobra skips PersistentPostRunE after a RunE error.
func (a *app) execute(root *cobra.Command) error {
	err := root.Execute()
	if perr := a.prof.stop(); perr != nil && err == nil {
		err = perr
	}
	return err
}

func (a *app) loadConfig(flags *pflag.FlagSet) error {
	bound := make(map[string]*pflag.Flag, len(flagKeys))
	for key, name := range flagKeys {
		bound[key] = flags.Lookup(name)
	}

	cfg, err := config.Load(a.cfgFile, bound)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	err = logging.Init(logging.Options{
		Level:   level,
		Format:  cfg.Logging.Format,
		File:    cfg.Logging.File,
		Console: cfg.Logging.Console && !a.quiet,
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logging.Debugf("configuration loaded: size=%d tile=%d threads=%d",
		cfg.Engine.Size, cfg.Engine.Tile, cfg.Engine.Threads)

	a.cfg = cfg
	return nil
}
