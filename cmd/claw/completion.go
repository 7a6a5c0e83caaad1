package main

import (
	"github.com/spf13/cobra"

	clierrors "github.com/simplestclaw/claw/internal/errors"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for claw.

To load completions:

Bash:
  source <(claw completion bash)

Zsh:
  claw completion zsh > "${fpath[1]}/_claw"

Fish:
  claw completion fish | source

PowerShell:
  claw completion powershell | Out-String | Invoke-Expression`,
		Example:   `  claw completion bash`,
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(cmd.OutOrStdout(), true)
			case "zsh":
				return root.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return root.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			default:
				return clierrors.New(clierrors.ExitUsage, "Unsupported shell: "+args[0])
			}
		},
	}
}
