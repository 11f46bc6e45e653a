package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/scripthub-inc/scripthub/internal/interfaces/cli/migrate"
	"github.com/scripthub-inc/scripthub/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scripthub",
		Short: "ScriptHub - license entitlement service",
		Long:  `ScriptHub issues, validates, and revokes script licenses for the marketplace, with built-in server and migration tooling.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
