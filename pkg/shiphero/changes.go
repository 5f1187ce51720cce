package shiphero

import (
	"context"

	"github.com/saturnines/shiphero-core/pkg/core"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

// ChangesFilter narrows an inventory changes query. Empty fields are not sent.
type ChangesFilter struct {
	DateFrom   string
	DateTo     string
	SKU        string
	LocationID string
}

// InventoryChanges fetches inventory change events.
func (s *Service) InventoryChanges(ctx context.Context, f ChangesFilter, maxRecords int) (*record.Set, error) {
	s.logger.Info("fetching inventory changes", "date_from", f.DateFrom, "date_to", f.DateTo, "sku", f.SKU)
	p := s.paginator("inventory_changes", inventoryChangesQuery, "inventory_changes.data",
		func(node map[string]interface{}) ([]*record.Record, error) {
			return single(FlattenInventoryChange(node)), nil
		})
	return p.FetchAll(ctx, map[string]interface{}{
		"dateFrom":   optional(f.DateFrom),
		"dateTo":     optional(f.DateTo),
		"sku":        optional(f.SKU),
		"locationId": optional(f.LocationID),
	}, maxRecords)
}

// FlattenInventoryChange maps one change node to a record.
// current_on_hand is previous_on_hand + change_in_on_hand, absent values
// counting as zero.
func FlattenInventoryChange(node map[string]interface{}) *record.Record {
	location := core.Object(node, "location")
	current := transform.IntOr(node["previous_on_hand"], 0) + transform.IntOr(node["change_in_on_hand"], 0)

	return record.New(17).
		Set("user_id", node["user_id"]).
		Set("account_id", node["account_id"]).
		Set("warehouse_id", node["warehouse_id"]).
		Set("sku", node["sku"]).
		Set("previous_on_hand", intOrNil(node["previous_on_hand"])).
		Set("change_in_on_hand", intOrNil(node["change_in_on_hand"])).
		Set("current_on_hand", current).
		Set("reason", node["reason"]).
		Set("cycle_counted", node["cycle_counted"]).
		Set("location_id", node["location_id"]).
		Set("created_at", node["created_at"]).
		Set("location_name", location["name"]).
		Set("location_zone", location["zone"]).
		Set("location_pickable", location["pickable"]).
		Set("location_sellable", location["sellable"]).
		Set("location_temperature", location["temperature"]).
		Set("location_last_counted", location["last_counted"])
}
