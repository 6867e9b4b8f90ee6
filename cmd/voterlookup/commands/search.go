package commands

import (
	"context"
	"log/slog"
	"os"

	"voterlookup/internal/components/chrono"
	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/config"
	"voterlookup/internal/export"
	"voterlookup/internal/search"
	"voterlookup/lib/serviceutil"

	"github.com/spf13/cobra"
)

var searchFlags struct {
	export string
	output string
}

func init() {
	searchCmd.Flags().StringVar(&searchFlags.export, "export", "", "Also write the results to a file, json or csv.")
	searchCmd.Flags().StringVar(&searchFlags.output, "output", "", "The export file, voter_results_<timestamp>.<format> by default.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <name>... [--export json|csv] [--output <file>]",
	Short: "Looks up every name given and prints the matching voters.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadRunConfig(cmd, args, func(cfg *config.RunConfig, _ config.File) {
			cfg.Export = config.ExportFormat(searchFlags.export)
			cfg.Output = searchFlags.output
		})
		if err != nil {
			serviceutil.Fatal("invalid configuration", err)
		}

		err = runSearch(cmd.Context(), cfg)
		if err != nil {
			serviceutil.Fatal("search failed", err)
		}
	},
}

func runSearch(ctx context.Context, cfg config.RunConfig) error {
	tel := telemetry.SlogAPI{}

	lock, err := lockStateDir(cfg.StateDir)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	driver, err := newDriver(cfg, tel)
	if err != nil {
		return err
	}
	creds, err := resolveCredentials(tel)
	if err != nil {
		return err
	}
	session, err := driver.Authenticate(ctx, creds)
	if err != nil {
		return withAuthHint(err)
	}
	defer session.Close()

	batch := search.Batch{
		Executor:       search.NewExecutor(driver, cfg.Pause, tel),
		Filters:        cfg.Filters,
		ExtractDetails: cfg.ExtractDetails,
		Tel:            tel,
	}
	results, runErr := batch.Run(ctx, session, cfg.Names)
	renderResults(os.Stdout, results, cfg.ExtractDetails)

	if cfg.Export != config.ExportNone && len(results) > 0 {
		path, err := export.WriteFile(cfg.Output, export.Format(cfg.Export), results, chrono.NewStandardTime())
		if err != nil {
			return err
		}
		slog.Info("exported results", "path", path)
	}
	return runErr
}
