package commands

import (
	"github.com/spf13/cobra"

	"github.com/xupit3r/tilemm/internal/logging"
	"github.com/xupit3r/tilemm/internal/report"
)

func newDenseCmd(a *app) *cobra.Command {
	var printAll bool

	cmd := &cobra.Command{
		Use:   "dense",
		Short: "Run the cache-blocked dense multiply",
		Long: `Multiply A by B with the cache-blocked kernel.

k-tiles are dealt round-robin to the workers, each of which accumulates into
its own private copy of C. A second parallel phase folds the copies together.
The phase timings and a few sampled cells are printed afterwards, together
with the comparison against the configured reference product.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			x, y, err := operands(cfg)
			if err != nil {
				return err
			}

			run, err := runDenseProduct(cfg, x, y)
			if err != nil {
				return err
			}
			logging.Infof("dense multiply finished in %s", run.Total())

			run.Reference, err = checkReference(cfg, cfg.Verify.Reference, x, y, run.Result)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if printAll {
				if err := printOperands(out, x, y, run.Result); err != nil {
					return err
				}
			}
			return report.Render(out, run)
		},
	}

	cmd.Flags().BoolVar(&printAll, "print", false, "print A, B and C in full")
	return cmd
}
