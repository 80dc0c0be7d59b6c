package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// checkCmd type-checks a script without running it
var checkCmd = &cobra.Command{
	Use:   "check SCRIPT",
	Short: "Type-check a script without running it.",
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

		errs, err := shell.CheckSource(string(src))
		if err != nil {
			return err
		}
		if len(errs) > 0 {
			return fmt.Errorf("%d type errors", len(errs))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
