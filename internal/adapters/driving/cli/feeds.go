package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Manage submitted feeds",
	Long: `List bulk feeds accepted by the marketplace and record their outcome.

An accepted feed stays SUBMITTED until its result is known. Once the
marketplace reports it processed, mark it with 'ack' or 'fail'.`,
	RunE: runFeedsList,
}

var feedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feeds",
	Args:  cobra.NoArgs,
	RunE:  runFeedsList,
}

var feedsAckCmd = &cobra.Command{
	Use:   "ack [feed-id]",
	Short: "Mark a feed as applied",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveFeed(cmd, args[0], domain.MutationAcked)
	},
}

var feedsFailCmd = &cobra.Command{
	Use:   "fail [feed-id]",
	Short: "Mark a feed as rejected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveFeed(cmd, args[0], domain.MutationFailed)
	},
}

// feedsState filters the list command.
var feedsState string

func init() {
	feedsListCmd.Flags().StringVarP(&feedsState, "state", "s", "",
		"Only list feeds in this state (submitted, acked, failed)")

	feedsCmd.AddCommand(feedsListCmd)
	feedsCmd.AddCommand(feedsAckCmd)
	feedsCmd.AddCommand(feedsFailCmd)
	rootCmd.AddCommand(feedsCmd)
}

func runFeedsList(cmd *cobra.Command, _ []string) error {
	if catalogSync == nil {
		return errors.New("sync service not configured")
	}

	state := domain.MutationState(strings.ToUpper(strings.TrimSpace(feedsState)))
	feeds, err := catalogSync.Feeds(commandContext(cmd), state)
	if err != nil {
		return fmt.Errorf("failed to list feeds: %w", err)
	}

	if len(feeds) == 0 {
		cmd.Println("No feeds recorded.")
		return nil
	}

	cmd.Printf("Feeds (%d):\n\n", len(feeds))
	for _, f := range feeds {
		cmd.Printf("  %s\n", f.FeedID)
		cmd.Printf("    Field:     %s\n", f.Field)
		cmd.Printf("    State:     %s\n", f.State)
		cmd.Printf("    Items:     %d\n", len(f.SKUs))
		cmd.Printf("    Submitted: %s\n", f.SubmittedAt.Local().Format(time.RFC3339))
		cmd.Println()
	}
	return nil
}

func resolveFeed(cmd *cobra.Command, feedID string, state domain.MutationState) error {
	if catalogSync == nil {
		return errors.New("sync service not configured")
	}

	if err := catalogSync.ResolveFeed(commandContext(cmd), feedID, state); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("feed not found: %s", feedID)
		}
		return fmt.Errorf("failed to update feed: %w", err)
	}

	cmd.Printf("Feed %s marked %s.\n", feedID, state)
	return nil
}
