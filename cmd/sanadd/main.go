package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/sanad/internal/cli"
	"github.com/cloo-solutions/sanad/internal/cli/daemon"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sanadd",
		Short: "Sanad tutor daemon",
		Long:  "Sanad daemon for serving the Usool al-Hadith tutor API, building the passage index and chatting locally",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(daemon.ServeCmd())
	rootCmd.AddCommand(daemon.IngestCmd())
	rootCmd.AddCommand(daemon.MigrateCmd())
	rootCmd.AddCommand(daemon.ChatCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
