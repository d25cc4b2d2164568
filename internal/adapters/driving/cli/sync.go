package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
	"github.com/custodia-labs/marketsync/internal/logger"
)

// briefErrors is how many report errors are printed without --verbose.
const briefErrors = 5

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation cycle",
	Long: `Runs one reconciliation cycle against the marketplace.

The cached catalogue is refreshed when it is older than the cache TTL (or
always with --force), compared with the local store, and the differences are
submitted as bulk feeds. Use --dry-run to compute the changes without
submitting them.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current or last cycle",
	Args:  cobra.NoArgs,
	RunE:  runSyncStatus,
}

// Flags for the sync command.
var (
	syncForce  bool
	syncDryRun bool
	syncFields string
)

func init() {
	syncCmd.Flags().BoolVarP(&syncForce, "force", "f", false, "Refresh the cache even when it is fresh")
	syncCmd.Flags().BoolVarP(&syncDryRun, "dry-run", "n", false, "Compute changes without submitting them")
	syncCmd.Flags().StringVar(&syncFields, "fields", "",
		"Comma-separated fields to dispatch (price,inventory,name,status)")

	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if catalogSync == nil {
		return errors.New("sync service not configured")
	}

	fields, err := parseFields(syncFields)
	if err != nil {
		return err
	}

	if syncDryRun {
		cmd.Println("Running catalog cycle (dry run)...")
	} else {
		cmd.Println("Running catalog cycle...")
	}

	report, err := catalogSync.RunCycle(commandContext(cmd), driving.CycleOptions{
		Force:  syncForce,
		DryRun: syncDryRun,
		Fields: fields,
	})
	if report != nil {
		printReport(cmd, report)
	}
	if errors.Is(err, domain.ErrSyncInProgress) {
		return errors.New("another cycle is already running")
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	return nil
}

func runSyncStatus(cmd *cobra.Command, _ []string) error {
	if catalogSync == nil {
		return errors.New("sync service not configured")
	}

	status, err := catalogSync.Status(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	if status.Running {
		cmd.Printf("Cycle %s running (stage: %s)\n", status.CycleID, status.Stage)
		cmd.Printf("  Fetched: %d\n", status.RecordsFetched)
		cmd.Printf("  Errors:  %d\n", status.ErrorCount)
	} else {
		cmd.Println("No cycle running.")
	}

	if status.LastSync.IsZero() {
		cmd.Println("Cache has never been refreshed.")
	} else {
		cmd.Printf("Cache last refreshed: %s\n", status.LastSync.Local().Format(time.RFC3339))
	}

	if status.LastReport != nil {
		cmd.Println()
		cmd.Println("Last cycle:")
		printReport(cmd, status.LastReport)
	}

	if eventReader == nil {
		return nil
	}
	events, err := eventReader.Recent(commandContext(cmd), 5, domain.NotifyCycleReport)
	if err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}
	cmd.Println()
	cmd.Println("Recent cycles:")
	for _, e := range events {
		cmd.Printf("  %s  [%s] %s\n", e.CreatedAt.Local().Format(time.RFC3339), e.Severity, e.Message)
	}
	return nil
}

// parseFields parses a comma-separated, case-insensitive field list.
func parseFields(raw string) ([]domain.MutationField, error) {
	var fields []domain.MutationField
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		f, err := domain.ParseMutationField(part)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func printReport(cmd *cobra.Command, r *domain.CycleReport) {
	cmd.Printf("Cycle %s (%s)\n", r.CycleID, r.Severity())
	if r.DryRun {
		cmd.Println("  Dry run: no feeds submitted")
	}
	switch {
	case r.FetchSkipped:
		cmd.Println("  Fetch:      skipped (cache fresh)")
	case r.FetchComplete:
		cmd.Printf("  Fetch:      %d records (inserted %d, updated %d, dropped %d)\n",
			r.Fetched, r.Inserted, r.Updated, r.Dropped)
		cmd.Printf("  Deleted:    %d\n", r.Deleted)
	default:
		cmd.Printf("  Fetch:      incomplete after %d records, deletion skipped\n", r.Fetched)
	}
	cmd.Printf("  Unmatched:  %d\n", r.Unmatched)
	cmd.Printf("  Candidates: %d\n", r.Candidates)
	cmd.Printf("  Submitted:  %d\n", r.Submitted)
	cmd.Printf("  Failed:     %d\n", r.Failed)
	if r.Skipped > 0 {
		cmd.Printf("  Skipped:    %d\n", r.Skipped)
	}
	if d := r.Duration(); d > 0 {
		cmd.Printf("  Duration:   %s\n", d.Round(time.Millisecond))
	}
	if r.TotalErrors > 0 {
		cmd.Printf("  Errors:     %d\n", r.TotalErrors)
		shown := r.Errors
		if !logger.IsVerbose() && len(shown) > briefErrors {
			shown = shown[:briefErrors]
		}
		for _, e := range shown {
			cmd.Printf("    - %s\n", e)
		}
		if hidden := r.TotalErrors - len(shown); hidden > 0 {
			cmd.Printf("    ... and %d more\n", hidden)
		}
	}
}
