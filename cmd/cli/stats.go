package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dalilsuez/backend/internal/database"
	"github.com/dalilsuez/backend/internal/events"
	"github.com/spf13/cobra"
)

var (
	statsUserID string
	statsSince  time.Duration
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Inspect personalization signals",
}

var statsTopInterestCmd = &cobra.Command{
	Use:   "top-interest",
	Short: "Show the server-derived top interest tag for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsUserID == "" {
			return fmt.Errorf("--user is required")
		}
		svc := events.NewService(database.DB)
		tag, err := svc.TopInterestForUser(context.Background(), statsUserID, time.Now().Add(-statsSince))
		if err != nil {
			return err
		}
		if tag == "" {
			fmt.Println("No interest signal for this user in the window")
			return nil
		}
		fmt.Printf("Top interest: %s\n", tag)
		return nil
	},
}

var statsEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show a user's recent events, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsUserID == "" {
			return fmt.Errorf("--user is required")
		}
		svc := events.NewService(database.DB)

		count, err := svc.CountForUser(context.Background(), statsUserID)
		if err != nil {
			return err
		}
		evts, err := svc.RecentEvents(context.Background(), statsUserID, 20)
		if err != nil {
			return err
		}

		fmt.Printf("User %s has %d events; latest %d:\n", statsUserID, count, len(evts))
		for _, e := range evts {
			category := ""
			if e.CategoryID != nil {
				category = *e.CategoryID
			}
			entity := ""
			if e.EntityID != nil {
				entity = *e.EntityID
			}
			fmt.Printf("  %s  %-14s  category=%-24s entity=%s\n",
				e.CreatedAt.Format(time.RFC3339), e.EventType, category, entity)
		}
		return nil
	},
}

func init() {
	statsCmd.PersistentFlags().StringVar(&statsUserID, "user", "", "user id to inspect")
	statsCmd.PersistentFlags().DurationVar(&statsSince, "since", 30*24*time.Hour,
		"aggregation window (e.g. 720h)")
	statsCmd.AddCommand(statsTopInterestCmd)
	statsCmd.AddCommand(statsEventsCmd)
}
