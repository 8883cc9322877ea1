package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for heatmap.

Besides commands and flags, the scripts complete --scheme with the schemes
registered at completion time (built-ins, config [[scheme]] entries and
--schemes files) and --combine/--alpha with their fixed values.

Bash:
  $ source <(heatmap completion bash)
  $ heatmap completion bash > /etc/bash_completion.d/heatmap

Zsh:
  $ heatmap completion zsh > "${fpath[1]}/_heatmap"

Fish:
  $ heatmap completion fish > ~/.config/fish/completions/heatmap.fish

PowerShell:
  PS> heatmap completion powershell | Out-String | Invoke-Expression
`,
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

	return cmd
}
