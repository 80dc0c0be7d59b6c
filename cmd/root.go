package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/anvilsh/anvil/core"
	"github.com/anvilsh/anvil/core/config"
)

var (
	cfgPath string
	command string
)

// configDir resolves the configuration directory, defaulting to
// ~/.anvil.
func configDir() string {
	if cfgPath != "" {
		return cfgPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".anvil")
}

func loadConfig(fs afero.Fs) (*config.Configuration, error) {
	return config.LoadOrDefault(fs, configDir())
}

func newShell(fs afero.Fs) (*core.Shell, error) {
	cfg, err := loadConfig(fs)
	if err != nil {
		return nil, err
	}
	shell, err := core.NewShell(cfg, fs)
	if err != nil {
		return nil, err
	}
	if err := shell.OpenEventLog(fs, configDir()); err != nil {
		return nil, err
	}
	return shell, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "anvil",
	Short: "A statically pipe-typed command shell",
	Long: `anvil is an interactive shell whose pipelines are type-checked
before anything runs: every stage declares what it consumes and
produces, and a statement only spawns once the whole pipeline checks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		fs := afero.NewOsFs()
		shell, err := newShell(fs)
		if err != nil {
			return err
		}
		defer shell.Close()

		if command != "" {
			return shell.RunSource(context.Background(), command)
		}
		return shell.Run(context.Background())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default ~/.anvil)")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command line and exit")
}
