package main

import (
	"fmt"
	"log"
	"os"

	"github.com/dalilsuez/backend/internal/config"
	"github.com/dalilsuez/backend/internal/database"
	"github.com/dalilsuez/backend/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dalil-admin",
	Short: "Dalil Al-Suez admin CLI - operate the backend data stores",
	Long: `dalil-admin provides operator access to the backend database:
retention pruning for the event log and idempotency cache, and quick
aggregation queries for debugging personalization.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not found, using system environment variables")
		}
		cfg := config.Load()
		if err := logger.Initialize(cfg.LogLevel, ""); err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return database.Initialize(cfg.DatabaseURL)
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
