package commands

import (
	"github.com/spf13/cobra"

	"github.com/xupit3r/tilemm/internal/logging"
	"github.com/xupit3r/tilemm/internal/report"
)

func newSparseCmd(a *app) *cobra.Command {
	var printAll bool

	cmd := &cobra.Command{
		Use:   "sparse",
		Short: "Run the fused sparse-dense multiply",
		Long: `Compress B into compressed sparse column form, then compute every row of C
from A and the stored nonzeros of B. Output rows are dealt round-robin to the
workers; no reduction is needed since each row has exactly one writer.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			x, y, err := operands(cfg)
			if err != nil {
				return err
			}

			run, err := runSparseProduct(cfg, x, y)
			if err != nil {
				return err
			}
			logging.Infof("sparse multiply finished in %s (nnz=%d)", run.Total(), run.NNZ)

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
