package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anvilsh/anvil/core/builtins"
	"github.com/anvilsh/anvil/core/interp"
	"github.com/anvilsh/anvil/core/types"
)

// builtinsCmd lists the registered builtins and their signatures
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the builtin commands and their pipe signatures.",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := interp.NewEngine(types.NewRegistry())
		if err := builtins.RegisterAll(engine); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 8, 2, ' ', 0)
		defer tw.Flush()

		reg := engine.Registry()
		for _, name := range reg.Names() {
			sig, _ := reg.LookupBuiltin(name)
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, sig, sig.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(builtinsCmd)
}
