package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xupit3r/tilemm/internal/report"
	"github.com/xupit3r/tilemm/internal/verify"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the dense and sparse kernels against a reference product",
		Long: `Run both kernels on the configured operands and compare every cell of
their results against the reference product. The naive triple loop is used
when verify.reference is none. Exits non-zero if any cell is outside the
configured tolerance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			name := cfg.Verify.Reference
			if name == "none" {
				name = "naive"
			}

			x, y, err := operands(cfg)
			if err != nil {
				return err
			}

			dense, err := runDenseProduct(cfg, x, y)
			if err != nil {
				return fmt.Errorf("dense: %w", err)
			}
			sp, err := runSparseProduct(cfg, x, y)
			if err != nil {
				return fmt.Errorf("sparse: %w", err)
			}

			// The reference is computed once and shared by both comparisons.
			dense.Reference, err = checkReference(cfg, name, x, y, dense.Result)
			if err != nil {
				return err
			}
			sp.Reference = &report.Reference{
				Name:    name,
				Elapsed: dense.Reference.Elapsed,
				Result:  dense.Reference.Result,
			}
			sp.Reference.Compare, sp.Reference.Err = verify.Compare(sp.Result, dense.Reference.Result, tolerance(cfg))

			out := cmd.OutOrStdout()
			for _, run := range []report.Run{dense, sp} {
				if err := report.Render(out, run); err != nil {
					return err
				}
			}

			var errs []error
			if dense.Reference.Err != nil {
				errs = append(errs, fmt.Errorf("dense: %w", dense.Reference.Err))
			}
			if sp.Reference.Err != nil {
				errs = append(errs, fmt.Errorf("sparse: %w", sp.Reference.Err))
			}
			return errors.Join(errs...)
		},
	}
}
