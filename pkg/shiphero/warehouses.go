package shiphero

import (
	"context"
	"fmt"

	"github.com/saturnines/shiphero-core/pkg/core"
	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

// Warehouses lists the account's warehouses, skipping excluded ids.
func (s *Service) Warehouses(ctx context.Context) (*record.Set, error) {
	resp, err := s.client.Request(ctx, accountQuery, nil)
	if err != nil {
		return nil, err
	}
	account, err := core.RequireObject(resp.Data, "account.data")
	if err != nil {
		return nil, err
	}
	warehouses := core.Objects(account, "warehouses")
	if len(warehouses) == 0 {
		return nil, errors.WrapError(fmt.Errorf("account has no warehouses"), errors.ErrValidation, "list warehouses")
	}

	set := record.NewSet("warehouses")
	for _, w := range warehouses {
		id, _ := w["id"].(string)
		if s.excludeWarehouses[id] {
			continue
		}
		set.Append(record.New(7).
			Set("warehouse_id", w["id"]).
			Set("legacy_id", w["legacy_id"]).
			Set("identifier", w["identifier"]).
			Set("invoice_email", w["invoice_email"]).
			Set("profile", w["profile"]).
			Set("address_name", core.Object(w, "address")["name"]).
			Set("account_email", account["email"]))
	}
	return set, nil
}

// WarehouseProducts lists the products stocked in one warehouse.
func (s *Service) WarehouseProducts(ctx context.Context, warehouseID string, maxRecords int) (*record.Set, error) {
	if warehouseID == "" {
		return nil, errors.WrapError(fmt.Errorf("warehouse id is required"), errors.ErrValidation, "warehouse products")
	}
	p := s.paginator("warehouse_products", warehouseProductsQuery, "warehouse_products.data",
		func(node map[string]interface{}) ([]*record.Record, error) {
			return single(FlattenWarehouseProduct(node)), nil
		})
	return p.FetchAll(ctx, map[string]interface{}{"warehouse_id": warehouseID}, maxRecords)
}

// FlattenWarehouseProduct maps one warehouse product node to a record.
func FlattenWarehouseProduct(node map[string]interface{}) *record.Record {
	warehouse := core.Object(node, "warehouse")
	product := core.Object(node, "product")
	return record.New(14).
		Set("id", node["id"]).
		Set("account_id", node["account_id"]).
		Set("warehouse_id", warehouse["id"]).
		Set("warehouse_profile", warehouse["profile"]).
		Set("dynamic_slotting", warehouse["dynamic_slotting"]).
		Set("product_id", product["id"]).
		Set("sku", product["sku"]).
		Set("product_name", product["name"]).
		Set("on_hand", transform.IntOr(node["on_hand"], 0)).
		Set("inventory_bin", node["inventory_bin"]).
		Set("reserve_inventory", transform.IntOr(node["reserve_inventory"], 0)).
		Set("reorder_amount", transform.IntOr(node["reorder_amount"], 0)).
		Set("reorder_level", transform.IntOr(node["reorder_level"], 0)).
		Set("custom", node["custom"])
}
