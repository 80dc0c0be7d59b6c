package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/anvilsh/anvil/core/eventlog"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the statement log.",
}

var failedOnly bool

var tailCommand = &cobra.Command{
	Use:   "show",
	Short: "Print logged statements.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		fs := afero.NewOsFs()
		cfg, err := loadConfig(fs)
		if err != nil {
			return err
		}
		if cfg.EventLog == "" {
			return fmt.Errorf("event logging is disabled in the configuration")
		}
		path := cfg.EventLog
		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir(), path)
		}

		fd, err := fs.Open(path)
		if err != nil {
			return err
		}
		defer fd.Close()

		return eventlog.Read(fd, func(e *eventlog.Entry) {
			if failedOnly && e.Status == "completed" {
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-10s  %s\n",
				e.Time.Format("2006-01-02 15:04:05"), e.Status, e.Source)
		})
	},
}

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Summarize the statement log.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		fs := afero.NewOsFs()
		cfg, err := loadConfig(fs)
		if err != nil {
			return err
		}
		path := cfg.EventLog
		if path == "" {
			return fmt.Errorf("event logging is disabled in the configuration")
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(configDir(), path)
		}

		fd, err := fs.Open(path)
		if err != nil {
			return err
		}
		defer fd.Close()

		report := struct {
			Statements int            `json:"statements"`
			ByStatus   map[string]int `json:"by_status"`
		}{ByStatus: make(map[string]int)}

		if err := eventlog.Read(fd, func(e *eventlog.Entry) {
			report.Statements++
			report.ByStatus[e.Status]++
		}); err != nil {
			return err
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(tailCommand)
	eventsCmd.AddCommand(reportCommand)
	tailCommand.Flags().BoolVar(&failedOnly, "failed", false, "only show statements that did not complete")
}
