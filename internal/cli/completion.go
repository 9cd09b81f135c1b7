package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/goenrichr/pkg/library"
	"github.com/matzehuels/goenrichr/pkg/plot"
)

// completionCommand creates the completion command.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for goenrichr.

Bash:
  $ source <(goenrichr completion bash)

Zsh:
  $ goenrichr completion zsh > "${fpath[1]}/_goenrichr"

Fish:
  $ goenrichr completion fish > ~/.config/fish/completions/goenrichr.fish

PowerShell:
  PS> goenrichr completion powershell | Out-String | Invoke-Expression

Library names complete from the built-in default set; run
'goenrichr libraries' for the full catalog.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeLibraries completes the last element of a comma-separated
// library list against the default libraries.
func completeLibraries(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix, last := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix, last = toComplete[:i+1], toComplete[i+1:]
	}
	var out []string
	for _, name := range library.DefaultLibraries.Sorted() {
		if strings.HasPrefix(strings.ToLower(name), strings.ToLower(last)) {
			out = append(out, prefix+name)
		}
	}
	return out, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
}

func completeFormats(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return plot.Formats, cobra.ShellCompDirectiveNoFileComp
}
