/*
Package cmd provides shell completion commands for mailform.
*/
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var shells = []string{"bash", "zsh", "fish", "powershell"}

// completionCmd generates shell completions
var completionCmd = &cobra.Command{
	Use:   "completion [shell]",
	Short: "Generate shell completions",
	Long: `Generate shell completion scripts.

Bash:
  source <(mailform completion bash)

Zsh:
  mailform completion zsh > "${fpath[1]}/_mailform"

Fish:
  mailform completion fish | source

PowerShell:
  mailform completion powershell | Out-String | Invoke-Expression

Locale flags complete to the registered locale codes.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             shells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return generateCompletion(cmd.Root(), args[0], os.Stdout)
	},
}

// completionInstallCmd writes the completion script to the user's completion directory
var completionInstallCmd = &cobra.Command{
	Use:       "install [shell]",
	Short:     "Install shell completions for the current user",
	ValidArgs: shells,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path := completionPath(home, args[0])

		var content bytes.Buffer
		if err := generateCompletion(cmd.Root(), args[0], &content); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, content.Bytes(), 0644); err != nil {
			return fmt.Errorf("failed to write completion file: %w", err)
		}

		fmt.Printf("Completion script installed to: %s\n", path)
		switch args[0] {
		case "bash", "powershell":
			fmt.Printf("Load it from your shell profile:\n  . %s\n", path)
		case "zsh":
			fmt.Printf("Add to ~/.zshrc:\n  fpath=(%s $fpath)\n  autoload -Uz compinit && compinit\n", filepath.Dir(path))
		}
		return nil
	},
}

func generateCompletion(root *cobra.Command, shell string, w io.Writer) error {
	switch shell {
	case "bash":
		return root.GenBashCompletionV2(w, true)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletionWithDesc(w)
	}
	return fmt.Errorf("unsupported shell: %s", shell)
}

func completionPath(home, shell string) string {
	switch shell {
	case "bash":
		return filepath.Join(home, ".local", "share", "bash-completion", "completions", "mailform")
	case "zsh":
		return filepath.Join(home, ".zsh", "completions", "_mailform")
	case "fish":
		return filepath.Join(home, ".config", "fish", "completions", "mailform.fish")
	default:
		return filepath.Join(home, ".config", "powershell", "mailform.ps1")
	}
}

func init() {
	completionCmd.AddCommand(completionInstallCmd)
	rootCmd.AddCommand(completionCmd)
}
