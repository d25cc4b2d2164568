package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the marketplace connection, the commerce store and
cycle tuning.

Every key can also be overridden with a MARKETSYNC_ environment variable,
e.g. MARKETSYNC_MARKETPLACE_API_KEY.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the marketplace and commerce store step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	mp := settings.Marketplace
	cmd.Println("[Marketplace]")
	cmd.Printf("  Base URL: %s\n", valueOrUnset(mp.BaseURL))
	switch {
	case mp.ClientID != "" && mp.ClientSecret != "":
		cmd.Printf("  Auth: OAuth client credentials\n")
		cmd.Printf("  Client ID: %s\n", mp.ClientID)
		cmd.Printf("  Client Secret: %s\n", maskAPIKey(mp.ClientSecret))
		if mp.TokenURL != "" {
			cmd.Printf("  Token URL: %s\n", mp.TokenURL)
		}
	case mp.APIKey != "":
		cmd.Printf("  Auth: API key\n")
		cmd.Printf("  API Key: %s\n", maskAPIKey(mp.APIKey))
	default:
		cmd.Printf("  Auth: (not set)\n")
	}
	cmd.Printf("  Currency: %s\n", mp.Currency)
	if mp.RequestsPerSecond > 0 {
		cmd.Printf("  Requests/sec: %g\n", mp.RequestsPerSecond)
	}
	if mp.Timeout > 0 {
		cmd.Printf("  Timeout: %s\n", mp.Timeout)
	}
	cmd.Println()

	cmd.Println("[Commerce Store]")
	if settings.Commerce.DSN != "" {
		cmd.Printf("  Backend: postgres\n")
		cmd.Printf("  DSN: %s\n", maskDSN(settings.Commerce.DSN))
		cmd.Printf("  Table Prefix: %s\n", settings.Commerce.TablePrefix)
	} else {
		cmd.Printf("  Backend: (not set)\n")
	}
	cmd.Println()

	s := settings.Sync
	cmd.Println("[Sync]")
	cmd.Printf("  Page Size: %d\n", s.PageSize)
	cmd.Printf("  Inventory Page Size: %d\n", s.InventoryPageSize)
	cmd.Printf("  Chunk Size: %d\n", s.ChunkSize)
	cmd.Printf("  Page Delay: %s\n", s.PageDelay)
	cmd.Printf("  Chunk Delay: %s\n", s.ChunkDelay)
	cmd.Printf("  Cache TTL: %s\n", s.CacheTTL)
	cmd.Printf("  Lease TTL: %s\n", s.LeaseTTL)
	cmd.Printf("  Price Tolerance: %s\n", s.PriceTolerance)
	cmd.Printf("  Reconcile Names: %s\n", yesNo(s.ReconcileNames))
	cmd.Printf("  Reconcile Status: %s\n", yesNo(s.ReconcileStatus))
	if len(s.Fields) > 0 {
		names := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			names[i] = string(f)
		}
		cmd.Printf("  Fields: %s\n", strings.Join(names, ", "))
	}
	cmd.Println()

	sched := settingsService.GetSchedulerConfig()
	task := sched.GetTaskConfig(domain.TaskIDCatalogSync)
	cmd.Println("[Scheduler]")
	cmd.Printf("  Enabled: %s\n", yesNo(sched.Enabled))
	if task.Enabled {
		cmd.Printf("  Catalog Sync: every %s\n", task.Interval)
	} else {
		cmd.Printf("  Catalog Sync: disabled\n")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'marketsync settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Marketsync Settings Wizard")
	cmd.Println("==========================")
	cmd.Println()

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	mp := &settings.Marketplace

	// Step 1: Marketplace
	cmd.Println("Step 1: Marketplace")
	cmd.Println("-------------------")
	mp.BaseURL = prompt(cmd, reader, "Base URL", mp.BaseURL)

	cmd.Println("Authentication:")
	cmd.Println("  1. OAuth client credentials")
	cmd.Println("  2. API key")
	authDefault := 1
	if mp.APIKey != "" && mp.ClientID == "" {
		authDefault = 2
	}
	cmd.Printf("Enter choice [%d]: ", authDefault)
	if parseChoice(readLine(reader), 2, authDefault) == 1 {
		mp.ClientID = prompt(cmd, reader, "Client ID", mp.ClientID)
		cmd.Print("Client secret (leave empty to keep current): ")
		if secret := readSecret(in, reader); secret != "" {
			mp.ClientSecret = secret
		}
		cmd.Println()
		mp.TokenURL = prompt(cmd, reader, "Token URL (empty for default)", mp.TokenURL)
		mp.APIKey = ""
	} else {
		cmd.Print("API key (leave empty to keep current): ")
		if key := readSecret(in, reader); key != "" {
			mp.APIKey = key
		}
		cmd.Println()
		mp.ClientID, mp.ClientSecret, mp.TokenURL = "", "", ""
	}
	mp.Currency = strings.ToUpper(prompt(cmd, reader, "Currency", mp.Currency))
	cmd.Println()

	// Step 2: Commerce store
	cmd.Println("Step 2: Commerce Store")
	cmd.Println("----------------------")
	cmd.Print("PostgreSQL DSN (leave empty to keep current): ")
	if dsn := readSecret(in, reader); dsn != "" {
		settings.Commerce.DSN = dsn
	}
	cmd.Println()
	settings.Commerce.TablePrefix = prompt(cmd, reader, "Table prefix", settings.Commerce.TablePrefix)
	cmd.Println()

	// Step 3: Sync
	cmd.Println("Step 3: Sync")
	cmd.Println("------------")
	ttl := prompt(cmd, reader, "Cache TTL", settings.Sync.CacheTTL.String())
	if d, err := time.ParseDuration(ttl); err == nil && d > 0 {
		settings.Sync.CacheTTL = d
	} else {
		cmd.Printf("Invalid duration %q, keeping %s\n", ttl, settings.Sync.CacheTTL)
	}
	cmd.Println()

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	cmd.Println("Settings saved.")
	return nil
}

// Helper functions.

// prompt asks for a value, returning current when the answer is empty.
func prompt(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	if current != "" {
		cmd.Printf("%s [%s]: ", label, current)
	} else {
		cmd.Printf("%s: ", label)
	}
	if input := readLine(reader); input != "" {
		return input
	}
	return current
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readSecret reads without echo from a terminal, falling back to a plain line.
func readSecret(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskDSN hides the password of a postgres URL or keyword/value DSN.
func maskDSN(dsn string) string {
	if scheme, rest, ok := strings.Cut(dsn, "://"); ok {
		at := strings.LastIndex(rest, "@")
		if at < 0 {
			return dsn
		}
		user, _, hasPassword := strings.Cut(rest[:at], ":")
		if !hasPassword {
			return dsn
		}
		return scheme + "://" + user + ":****" + rest[at:]
	}

	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=****"
		}
	}
	return strings.Join(fields, " ")
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
