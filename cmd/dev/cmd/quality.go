package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// QualityCmds returns the test and lint commands.
func QualityCmds() []*cobra.Command {
	tasks := []struct {
		use, short string
		run        func() error
	}{
		{"test", "Run unit tests", func() error { return test.Test() }},
		{"lint", "Run linting", func() error { return test.Lint() }},
		{"integration-test", "Run hardware integration tests", func() error { return test.Integ() }},
	}
	cmds := make([]*cobra.Command, 0, len(tasks))
	for _, task := range tasks {
		cmds = append(cmds, &cobra.Command{
			Use:   task.use,
			Short: task.short,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := task.run(); err != nil {
					return fmt.Errorf("%s failed: %w", task.use, err)
				}
				return nil
			},
		})
	}
	return cmds
}
