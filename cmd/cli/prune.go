package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dalilsuez/backend/internal/database"
	"github.com/dalilsuez/backend/internal/events"
	"github.com/dalilsuez/backend/internal/idempotency"
	"github.com/spf13/cobra"
)

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old rows from unbounded stores",
}

var pruneEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Delete user events older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cutoff := time.Now().Add(-pruneOlderThan)
		removed, err := events.NewService(database.DB).PruneOlderThan(context.Background(), cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d user events older than %s\n", removed, cutoff.Format(time.RFC3339))
		return nil
	},
}

var pruneIdempotencyCmd = &cobra.Command{
	Use:   "idempotency",
	Short: "Delete idempotency records older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		cutoff := time.Now().Add(-pruneOlderThan)
		removed, err := idempotency.NewStore(database.DB).PruneOlderThan(cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d idempotency records older than %s\n", removed, cutoff.Format(time.RFC3339))
		return nil
	},
}

func init() {
	pruneCmd.PersistentFlags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour,
		"retention window, rows older than this are deleted (e.g. 720h)")
	pruneCmd.AddCommand(pruneEventsCmd)
	pruneCmd.AddCommand(pruneIdempotencyCmd)
}
