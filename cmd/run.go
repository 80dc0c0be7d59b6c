package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// runCmd executes a script file
var runCmd = &cobra.Command{
	Use:   "run SCRIPT",
	Short: "Type-check and run a script file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		fs := afero.NewOsFs()
		src, err := afero.ReadFile(fs, args[0])
		if err != nil {
			return err
		}

		shell, err := newShell(fs)
		if err != nil {
			return err
		}
		defer shell.Close()

		return shell.RunSource(context.Background(), string(src))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
