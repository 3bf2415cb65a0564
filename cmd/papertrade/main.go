// papertrade - a simulated stock-trading ledger
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
	envFile    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "papertrade",
		Short: "Simulated stock-trading ledger",
		Long: `papertrade keeps a virtual cash balance and share positions per user,
prices trades against a live quote source and records every execution.`,
		SilenceUsage: true,
	}

	// Flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/papertrade.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before the config")

	// Subcommands
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(buyCmd())
	rootCmd.AddCommand(sellCmd())
	rootCmd.AddCommand(depositCmd())
	rootCmd.AddCommand(portfolioCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("papertrade version %s\n", version)
		},
	}
}
