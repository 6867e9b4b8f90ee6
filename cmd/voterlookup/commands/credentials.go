package commands

import (
	"fmt"
	"os"

	"voterlookup/internal/components/telemetry"
	"voterlookup/internal/credentials"
	"voterlookup/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	credentialsCmd.AddCommand(credentialsSetCmd)
	credentialsCmd.AddCommand(credentialsDeleteCmd)
	rootCmd.AddCommand(credentialsCmd)
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manages the portal login kept in the OS keyring.",
}

var credentialsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Asks for the portal username and password and saves them.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		creds, err := credentials.Prompt(os.Stdin, os.Stderr)
		if err != nil {
			serviceutil.Fatal("failed to read credentials", err)
		}
		err = credentials.NewStore(telemetry.SlogAPI{}).Save(creds)
		if err != nil {
			serviceutil.Fatal("failed to save credentials", err)
		}
		fmt.Fprintf(os.Stderr, "Saved credentials for %s.\n", creds.Username)
	},
}

var credentialsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Removes the saved portal credentials.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		err := credentials.NewStore(telemetry.SlogAPI{}).Delete()
		if err != nil {
			serviceutil.Fatal("failed to delete credentials", err)
		}
		fmt.Fprintln(os.Stderr, "Deleted saved credentials.")
	},
}
