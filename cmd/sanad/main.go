package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/sanad/internal/cli"
	"github.com/cloo-solutions/sanad/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "sanad",
		Short: "Sanad CLI - talk to the Usool al-Hadith tutor",
		Long: `Sanad CLI talks to a running sanadd server.

Environment variables:
  SANAD_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.ChatCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.IndexCmd())
	rootCmd.AddCommand(client.ConfigCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
