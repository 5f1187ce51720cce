package app

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/shiphero"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

const defaultChangesWindow = 7 * 24 * time.Hour

func (a *App) inventoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inventory change history",
	}

	var filter shiphero.ChangesFilter
	changes := &cobra.Command{
		Use:   "changes",
		Short: "Export inventory changes (last 7 days unless --from is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := filter
			if f.DateFrom == "" {
				f.DateFrom = time.Now().Add(-defaultChangesWindow).UTC().Format(time.RFC3339)
			} else if err := checkDate("--from", f.DateFrom); err != nil {
				return err
			}
			if f.DateTo != "" {
				if err := checkDate("--to", f.DateTo); err != nil {
					return err
				}
			}

			set, err := a.svc.InventoryChanges(cmd.Context(), f, a.cfg.Paging.MaxRecords)
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), set, "inventory_changes")
		},
	}
	changes.Flags().StringVar(&filter.DateFrom, "from", "", "start date (YYYY-MM-DD or RFC 3339)")
	changes.Flags().StringVar(&filter.DateTo, "to", "", "end date (YYYY-MM-DD or RFC 3339)")
	changes.Flags().StringVar(&filter.SKU, "sku", "", "only this SKU")
	changes.Flags().StringVar(&filter.LocationID, "location", "", "only this location id")

	cmd.AddCommand(changes)
	return cmd
}

func checkDate(flag, value string) error {
	if _, err := transform.ParseDate(value); err != nil {
		return errors.WrapError(err, errors.ErrValidation, flag)
	}
	return nil
}

func (a *App) statusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Current inventory levels",
	}

	var sku string
	get := &cobra.Command{
		Use:   "get",
		Short: "Export current stock per product and warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.svc.InventoryStatus(cmd.Context(), sku, a.cfg.Paging.MaxRecords)
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), set, "inventory_status")
		},
	}
	get.Flags().StringVar(&sku, "sku", "", "only this SKU")

	var threshold int64
	low := &cobra.Command{
		Use:   "low-stock",
		Short: "Export items whose available stock is at or below a threshold",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.svc.LowStock(cmd.Context(), threshold, a.cfg.Paging.MaxRecords)
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), set, "low_stock")
		},
	}
	low.Flags().Int64Var(&threshold, "threshold", 10, "available quantity at or below which an item is low")

	cmd.AddCommand(get, low)
	return cmd
}
