package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/shiphero"
)

func (a *App) productsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Product catalog",
	}

	var sku string
	list := &cobra.Command{
		Use:   "list",
		Short: "Export products, one row per product and warehouse",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.svc.Products(cmd.Context(), sku, a.cfg.Paging.MaxRecords)
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), set, "products")
		},
	}
	list.Flags().StringVar(&sku, "sku", "", "only this SKU")

	cmd.AddCommand(list)
	return cmd
}

func (a *App) kitsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kits",
		Short: "Kit definitions",
	}

	details := &cobra.Command{
		Use:   "details <sku>",
		Short: "Export the components of a kit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.svc.KitDetails(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), set, "kit_"+args[0])
		},
	}

	var (
		components  string
		warehouseID string
		build       bool
	)
	create := &cobra.Command{
		Use:   "create <sku>",
		Short: "Define a kit from components",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comps, err := parseComponents(components)
			if err != nil {
				return err
			}
			product, err := a.svc.CreateKit(cmd.Context(), args[0], comps, warehouseID, build)
			if err != nil {
				return err
			}
			return a.printJSON(product)
		},
	}
	create.Flags().StringVar(&components, "components", "", "components as SKU:QTY,SKU:QTY")
	create.Flags().StringVar(&warehouseID, "warehouse", "", "warehouse id")
	create.Flags().BoolVar(&build, "build", false, "also build the kit")

	var remove string
	removeComponents := &cobra.Command{
		Use:   "remove-components <sku>",
		Short: "Remove components from a kit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product, err := a.svc.RemoveKitComponents(cmd.Context(), args[0], splitList(remove))
			if err != nil {
				return err
			}
			return a.printJSON(product)
		},
	}
	removeComponents.Flags().StringVar(&remove, "components", "", "component SKUs, comma separated")

	clearKit := &cobra.Command{
		Use:   "clear <sku>",
		Short: "Disassemble a kit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.svc.ClearKit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(result)
		},
	}

	cmd.AddCommand(details, create, removeComponents, clearKit)
	return cmd
}

func (a *App) warehousesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "warehouses",
		Short: "Account warehouses",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Export the account's warehouses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.svc.Warehouses(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), set, "warehouses")
		},
	}

	products := &cobra.Command{
		Use:   "products <warehouse-id>",
		Short: "Export the products stocked in a warehouse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.svc.WarehouseProducts(cmd.Context(), args[0], a.cfg.Paging.MaxRecords)
			if err != nil {
				return err
			}
			return a.emit(cmd.Context(), set, "warehouse_products")
		},
	}

	cmd.AddCommand(list, products)
	return cmd
}

// parseComponents reads "SKU:QTY,SKU:QTY". A missing quantity means 1.
func parseComponents(s string) ([]shiphero.KitComponent, error) {
	var out []shiphero.KitComponent
	for _, item := range splitList(s) {
		sku, qty, found := strings.Cut(item, ":")
		c := shiphero.KitComponent{SKU: strings.TrimSpace(sku), Quantity: 1}
		if found {
			n, err := strconv.Atoi(strings.TrimSpace(qty))
			if err != nil || n <= 0 {
				return nil, errors.WrapError(fmt.Errorf("bad quantity in %q", item), errors.ErrValidation, "--components")
			}
			c.Quantity = n
		}
		if c.SKU == "" {
			return nil, errors.WrapError(fmt.Errorf("empty sku in %q", item), errors.ErrValidation, "--components")
		}
		out = append(out, c)
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
