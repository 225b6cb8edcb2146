package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
)

const chglogInstall = "go install github.com/git-chglog/git-chglog/cmd/git-chglog@latest"

func ChangelogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Generate or update CHANGELOG.md from git history",
		Long: `Generate CHANGELOG.md with git-chglog from conventional commits
(<type>[optional scope]: <description>).

Examples:
  dev changelog
  dev changelog --next v1.2.0
  dev changelog --tag v1.0.0 --output CHANGES.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			output, _ := flags.GetString("output")
			next, _ := flags.GetString("next")
			tag, _ := flags.GetString("tag")

			if _, err := exec.LookPath("git-chglog"); err != nil {
				slog.Error("git-chglog not found in PATH", "install", chglogInstall)
				return fmt.Errorf("git-chglog not installed: %w", err)
			}

			args = []string{"--output", output}
			if next != "" {
				args = append(args, "--next-tag", next)
			}
			if tag != "" {
				args = append(args, tag)
			}
			slog.Info("running git-chglog", "args", args)
			gitChglog := exec.Command("git-chglog", args...)
			gitChglog.Stdout = os.Stdout
			gitChglog.Stderr = os.Stderr
			if err := gitChglog.Run(); err != nil {
				return fmt.Errorf("failed to generate changelog: %w", err)
			}
			slog.Info("changelog generated", "output", output)
			return nil
		},
	}
	cmd.Flags().String("next", "", "Next version tag (e.g., v1.2.0)")
	cmd.Flags().String("output", "CHANGELOG.md", "Output file path")
	cmd.Flags().String("tag", "", "Generate changelog for specific tag")
	return cmd
}
