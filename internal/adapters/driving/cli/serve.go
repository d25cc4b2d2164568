package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marketsync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled cycles until interrupted",
	Long: `Runs the scheduler in the foreground. A catalog cycle runs whenever the
catalog-sync task is due. Edits to the configuration file are picked up by the
next cycle.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configWatcher != nil {
		go func() {
			err := configWatcher.Watch(ctx, func() {
				logger.Info("configuration changed, applying on next cycle")
			})
			if err != nil {
				logger.Warn("config watch stopped: %v", err)
			}
		}()
	}

	cmd.Println("Scheduler running. Press Ctrl+C to stop.")

	errCh := make(chan error, 1)
	go func() {
		errCh <- scheduler.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return serveResult(err)
	case <-ctx.Done():
	}

	cmd.Println("Stopping scheduler...")
	if err := scheduler.Stop(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	return serveResult(<-errCh)
}

// serveResult treats cancellation as a clean shutdown.
func serveResult(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("scheduler failed: %w", err)
}
