package shiphero

import (
	"context"
	"sort"
	"time"

	"github.com/saturnines/shiphero-core/pkg/core"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

// InventoryStatus fetches current stock, one record per product and warehouse.
func (s *Service) InventoryStatus(ctx context.Context, sku string, maxRecords int) (*record.Set, error) {
	ts := s.now()
	p := s.paginator("inventory_status", inventoryStatusQuery, "inventory",
		func(node map[string]interface{}) ([]*record.Record, error) {
			return FlattenInventoryStatus(node, ts), nil
		})
	return p.FetchAll(ctx, map[string]interface{}{"sku": optional(sku)}, maxRecords)
}

// FlattenInventoryStatus fans a product out to one record per warehouse
// product, repeating the product columns on each.
func FlattenInventoryStatus(node map[string]interface{}, ts time.Time) []*record.Record {
	product := core.Object(node, "product")
	warehouseProducts := core.Objects(node, "warehouse_products")

	out := make([]*record.Record, 0, len(warehouseProducts))
	for _, wp := range warehouseProducts {
		warehouse := core.Object(wp, "warehouse")
		out = append(out, record.New(15).
			Set("sku", node["sku"]).
			Set("product_id", node["id"]).
			Set("product_name", product["name"]).
			Set("barcode", product["barcode"]).
			Set("vendor_sku", product["vendor_sku"]).
			Set("retail_price", product["retail_price"]).
			Set("wholesale_price", product["wholesale_price"]).
			Set("warehouse_id", wp["warehouse_id"]).
			Set("warehouse_name", warehouse["name"]).
			Set("warehouse_legacy_id", warehouse["legacy_id"]).
			Set("on_hand", transform.IntOr(wp["on_hand"], 0)).
			Set("available", transform.IntOr(wp["available"], 0)).
			Set("reserved", transform.IntOr(wp["reserved"], 0)).
			Set("replenishable", transform.IntOr(wp["replenishable"], 0)).
			Set("timestamp", ts.Format(time.RFC3339)))
	}
	return out
}

// LowStock fetches inventory status and keeps records with available at or
// below threshold, lowest first.
func (s *Service) LowStock(ctx context.Context, threshold int64, maxRecords int) (*record.Set, error) {
	set, err := s.InventoryStatus(ctx, "", maxRecords)
	if err != nil {
		return nil, err
	}
	low := FilterLowStock(set, threshold)
	if low.Len() > 0 {
		s.logger.Warn("low stock items found", "count", low.Len(), "threshold", threshold)
	}
	return low, nil
}

// FilterLowStock returns the records whose available count is at or below
// threshold, sorted ascending by available.
func FilterLowStock(set *record.Set, threshold int64) *record.Set {
	low := set.Filter(func(r *record.Record) bool {
		v, _ := r.Get("available")
		return transform.IntOr(v, 0) <= threshold
	})
	low.Resource = "low_stock"
	sort.SliceStable(low.Records, func(i, j int) bool {
		a, _ := low.Records[i].Get("available")
		b, _ := low.Records[j].Get("available")
		return transform.IntOr(a, 0) < transform.IntOr(b, 0)
	})
	return low
}
