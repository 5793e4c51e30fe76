package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tilemm v%s\n", version)
			fmt.Fprintln(out, "Cache-blocked parallel matrix multiplication")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Build: development")
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		},
	}
}
