package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh [sku]",
	Short: "Re-read one SKU's inventory from the marketplace",
	Long: `Fetches the current inventory of a single cached SKU and stores it
without running a full cycle.`,
	Args: cobra.ExactArgs(1),
	RunE: runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	if catalogSync == nil {
		return errors.New("sync service not configured")
	}

	sku := args[0]
	rec, err := catalogSync.RefreshSKU(commandContext(cmd), sku)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("sku not in cache: %s", sku)
		}
		return fmt.Errorf("refresh failed: %w", err)
	}

	cmd.Printf("SKU:         %s\n", rec.SKU)
	cmd.Printf("External ID: %s\n", rec.ExternalID)
	cmd.Printf("Name:        %s\n", rec.Name)
	cmd.Printf("Price:       %s\n", rec.Price.StringFixed(2))
	cmd.Printf("Inventory:   %d\n", rec.InventoryCount)
	cmd.Printf("Status:      %s\n", rec.LifecycleStatus)
	return nil
}
