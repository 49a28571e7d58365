package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/gputweak/gputweak/internal/errors"
)

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for gputweak.

Examples:
  # Bash
  gputweak completion bash > /etc/bash_completion.d/gputweak

  # Zsh
  gputweak completion zsh > "${fpath[1]}/_gputweak"

  # Fish
  gputweak completion fish > ~/.config/fish/completions/gputweak.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCompletion(cmd.Root(), cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func writeCompletion(root *cobra.Command, w io.Writer, shell string) error {
	switch shell {
	case "bash":
		return root.GenBashCompletion(w)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletion(w)
	default:
		return errors.New(errors.ErrConfig,
			"Unknown shell: "+shell,
			"Supported shells: bash, zsh, fish, powershell")
	}
}
