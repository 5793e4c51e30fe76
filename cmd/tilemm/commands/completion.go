package commands

import (
	"github.com/spf13/cobra"

	"github.com/xupit3r/tilemm/internal/config"
	"github.com/xupit3r/tilemm/internal/fill"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for tilemm.

To load completions:

Bash:
  $ tilemm completion bash > ~/.local/share/bash-completion/completions/tilemm
  $ source ~/.local/share/bash-completion/completions/tilemm

Zsh:
  $ tilemm completion zsh > ~/.zsh/completion/_tilemm
  $ echo 'fpath=(~/.zsh/completion $fpath)' >> ~/.zshrc
  $ echo 'autoload -Uz compinit && compinit' >> ~/.zshrc

Fish:
  $ tilemm completion fish > ~/.config/fish/completions/tilemm.fish

PowerShell:
  PS> tilemm completion powershell | Out-String | Invoke-Expression
  # To persist, add the output to your PowerShell profile
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		// Completion scripts do not depend on the configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE:              runCompletion,
	}
}

func runCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	switch args[0] {
	case "bash":
		return cmd.Root().GenBashCompletion(out)
	case "zsh":
		return cmd.Root().GenZshCompletion(out)
	case "fish":
		return cmd.Root().GenFishCompletion(out, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletionWithDesc(out)
	}
	return nil
}

// fixedCompletion completes a flag from a fixed list of values.
func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// registerFlagCompletions registers value completions for the enumerated flags
func registerFlagCompletions(root *cobra.Command) {
	completions := map[string][]string{
		"fill-a":     fill.Names(),
		"fill-b":     fill.Names(),
		"reference":  config.References,
		"log-level":  {"debug", "info", "warn", "error"},
		"log-format": config.LogFormats,
		"tile":       {"8\tsmall operands", "16", "32\tfits L1 on most hosts", "64"},
	}
	for flag, values := range completions {
		// Only fails for unknown flags, which would be a programming error.
		_ = root.RegisterFlagCompletionFunc(flag, fixedCompletion(values))
	}
}
