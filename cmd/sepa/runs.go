package main

import (
	"fmt"
	"os"

	"github.com/newthinker/sepa/internal/core"
	"github.com/newthinker/sepa/internal/report"
	"github.com/newthinker/sepa/internal/storage/archive"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived backtest runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived run IDs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := openRuns()
		if err != nil {
			return err
		}
		ids, err := runs.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

var runsShowFile string

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one report of an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := openRuns()
		if err != nil {
			return err
		}
		data, err := runs.Load(cmd.Context(), args[0], runsShowFile)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := openRuns()
		if err != nil {
			return err
		}
		ok, err := runs.Exists(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return core.Errorf(core.ErrNoData, "run %s not found", args[0])
		}
		return runs.Delete(cmd.Context(), args[0])
	},
}

func init() {
	runsShowCmd.Flags().StringVar(&runsShowFile, "file", report.MetricsFile, "Report file to print")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

func openRuns() (*archive.Runs, error) {
	cfg, log, err := setup()
	if err != nil {
		return nil, err
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Archive.Type == "" {
		return nil, core.Errorf(core.ErrConfigMissing, "archive.type is not set")
	}
	storage, err := archive.New(cfg.ArchiveBackend())
	if err != nil {
		return nil, err
	}
	return archive.NewRuns(storage), nil
}
