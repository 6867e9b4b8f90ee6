package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"voterlookup/lib/telemetry"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath     string
	debug          bool
	browser        bool
	extractDetails bool
	stateDir       string

	address string
	city    string
	zip     string
	phone   string
	voterID string
}

var root rootFlags
var providers telemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "voterlookup",
	Short: "voterlookup looks up voter records on the record lookup portal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(root.debug)

		t, err := telemetry.SetupFromEnv(cmd.Context(), "voterlookup")
		if err != nil {
			slog.Warn("failed to setup telemetry", "err", err)
			return
		}
		providers = t
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&root.configPath, "config", "", "The config file, voterlookup.json5 is searched for upwards from the working directory by default.")
	flags.BoolVar(&root.debug, "debug", false, "Log debug output, show the browser and keep every HTTP exchange in <state-dir>/http.")
	flags.BoolVar(&root.browser, "browser", false, "Drive a real Chrome instead of posting the portal's forms directly.")
	flags.BoolVar(&root.extractDetails, "extract-details", false, "Open every result's detail page.")
	flags.StringVar(&root.stateDir, "state-dir", "", "Where the run lock, the journal and debug dumps are kept.")

	flags.StringVar(&root.address, "address", "", "Only match voters at this address.")
	flags.StringVar(&root.city, "city", "", "Only match voters in this city.")
	flags.StringVar(&root.zip, "zip", "", "Only match voters in this zip code.")
	flags.StringVar(&root.phone, "phone", "", "Only match voters with this phone number.")
	flags.StringVar(&root.voterID, "voter-id", "", "Only match the voter with this id.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
