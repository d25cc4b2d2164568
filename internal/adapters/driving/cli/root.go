package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
	"github.com/custodia-labs/marketsync/internal/logger"
)

// version is set by SetVersion from build flags.
var version = "dev"

// EventReader lists recorded sync events, newest first.
type EventReader interface {
	Recent(ctx context.Context, limit int, types ...domain.NotificationType) ([]domain.Notification, error)
}

// ConfigWatcher reports changes to the configuration file until ctx is done.
type ConfigWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Options carries the global flags.
type Options struct {
	ConfigDir string
	DataDir   string
	Verbose   bool
}

// Services are the ports the commands drive.
type Services struct {
	CatalogSync     driving.CatalogSync
	SettingsService driving.SettingsService
	Scheduler       driving.Scheduler
	Events          EventReader
	ConfigWatcher   ConfigWatcher

	// Close releases resources held by the services. Optional.
	Close func() error
}

// Bootstrapper builds services once the global flags are parsed.
type Bootstrapper func(ctx context.Context, opts Options) (*Services, error)

// Service instances, set by Configure or directly by tests.
var (
	catalogSync     driving.CatalogSync
	settingsService driving.SettingsService
	scheduler       driving.Scheduler
	eventReader     EventReader
	configWatcher   ConfigWatcher
)

var (
	opts         Options
	bootstrap    Bootstrapper
	closeHandler func() error
)

var rootCmd = &cobra.Command{
	Use:   "marketsync",
	Short: "Reconcile a local product catalogue with a marketplace",
	Long: `marketsync keeps a marketplace catalogue in line with a local commerce store.

Each cycle refreshes a cached copy of the marketplace catalogue, compares it
with the local store and submits price, inventory, name and status updates
as bulk feeds.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.ConfigDir, "config-dir", "", "Configuration directory (default ~/.marketsync)")
	rootCmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "Data directory (default ~/.marketsync/data)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetBootstrapper registers the function that builds services before a command runs.
func SetBootstrapper(b Bootstrapper) {
	bootstrap = b
}

// Configure installs services for the commands.
func Configure(s *Services) {
	if s == nil {
		return
	}
	catalogSync = s.CatalogSync
	settingsService = s.SettingsService
	scheduler = s.Scheduler
	eventReader = s.Events
	configWatcher = s.ConfigWatcher
	closeHandler = s.Close
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(opts.Verbose)
	if bootstrap == nil || cmd == versionCmd {
		return nil
	}

	services, err := bootstrap(commandContext(cmd), opts)
	if err != nil {
		return err
	}
	Configure(services)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	return Shutdown()
}

// Shutdown releases the configured services. It is safe to call more than
// once; post-run hooks do not run when a command fails.
func Shutdown() error {
	if closeHandler == nil {
		return nil
	}
	err := closeHandler()
	closeHandler = nil
	if err != nil {
		return fmt.Errorf("closing services: %w", err)
	}
	return nil
}

// commandContext returns the command context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
