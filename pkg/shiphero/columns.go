package shiphero

// columnTypes maps the columns of each resource to the transform used when
// the rows are written to a typed table. Columns not listed pass through.
var columnTypes = map[string]map[string]string{
	"inventory_changes": {
		"user_id":               "string",
		"account_id":            "string",
		"warehouse_id":          "string",
		"sku":                   "trim",
		"previous_on_hand":      "int",
		"change_in_on_hand":     "int",
		"current_on_hand":       "int",
		"reason":                "string",
		"cycle_counted":         "bool",
		"location_id":           "string",
		"created_at":            "string",
		"location_name":         "string",
		"location_zone":         "string",
		"location_pickable":     "bool",
		"location_sellable":     "bool",
		"location_temperature":  "string",
		"location_last_counted": "string",
	},
	"inventory_status": statusColumnTypes,
	"low_stock":        statusColumnTypes,
	"products": {
		"sku":                 "trim",
		"legacy_id":           "int",
		"height":              "float",
		"width":               "float",
		"length":              "float",
		"weight":              "float",
		"kit":                 "bool",
		"kit_build":           "bool",
		"kit_component_count": "int",
		"no_air":              "bool",
		"final_sale":          "bool",
		"customs_value":       "string",
		"dropship":            "bool",
		"virtual":             "bool",
		"active":              "bool",
		"on_hand":             "int",
	},
	"warehouse_products": {
		"sku":               "trim",
		"dynamic_slotting":  "bool",
		"on_hand":           "int",
		"reserve_inventory": "int",
		"reorder_amount":    "int",
	},
	"warehouses": {
		"legacy_id": "int",
	},
}

var statusColumnTypes = map[string]string{
	"sku":                 "trim",
	"product_id":          "string",
	"retail_price":        "string",
	"wholesale_price":     "string",
	"warehouse_id":        "string",
	"warehouse_legacy_id": "int",
	"on_hand":             "int",
	"available":           "int",
	"reserved":            "int",
	"replenishable":       "int",
}

// ColumnTypes returns the column transforms for resource, or nil when the
// resource has none.
func ColumnTypes(resource string) map[string]string {
	types, ok := columnTypes[resource]
	if !ok {
		return nil
	}
	out := make(map[string]string, len(types))
	for k, v := range types {
		out[k] = v
	}
	return out
}
