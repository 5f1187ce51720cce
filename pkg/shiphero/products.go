package shiphero

import (
	"context"
	"strings"

	"github.com/saturnines/shiphero-core/pkg/core"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

// Products lists catalog products, one record per product and warehouse.
func (s *Service) Products(ctx context.Context, sku string, maxRecords int) (*record.Set, error) {
	p := s.paginator("products", productsQuery, "products.data",
		func(node map[string]interface{}) ([]*record.Record, error) {
			return FlattenProduct(node), nil
		})
	return p.FetchAll(ctx, map[string]interface{}{"sku": optional(sku)}, maxRecords)
}

// FlattenProduct emits one record per warehouse product. A product stocked
// nowhere still yields one record with empty warehouse columns.
func FlattenProduct(node map[string]interface{}) []*record.Record {
	dims := core.Object(node, "dimensions")
	components := core.Objects(node, "kit_components")

	base := func() *record.Record {
		return record.New(26).
			Set("product_id", node["id"]).
			Set("legacy_id", node["legacy_id"]).
			Set("account_id", node["account_id"]).
			Set("sku", node["sku"]).
			Set("name", node["name"]).
			Set("barcode", node["barcode"]).
			Set("country_of_manufacture", node["country_of_manufacture"]).
			Set("height", dims["height"]).
			Set("width", dims["width"]).
			Set("length", dims["length"]).
			Set("weight", dims["weight"]).
			Set("tariff_code", node["tariff_code"]).
			Set("kit", node["kit"]).
			Set("kit_build", node["kit_build"]).
			Set("kit_component_count", int64(len(components))).
			Set("no_air", node["no_air"]).
			Set("final_sale", node["final_sale"]).
			Set("customs_value", node["customs_value"]).
			Set("customs_description", node["customs_description"]).
			Set("dropship", node["dropship"]).
			Set("virtual", node["virtual"]).
			Set("active", node["active"]).
			Set("tags", joinTags(node["tags"])).
			Set("created_at", node["created_at"]).
			Set("updated_at", node["updated_at"])
	}

	warehouseProducts := core.Objects(node, "warehouse_products")
	if len(warehouseProducts) == 0 {
		return single(base().Set("warehouse_id", nil).Set("on_hand", nil))
	}

	out := make([]*record.Record, 0, len(warehouseProducts))
	for _, wp := range warehouseProducts {
		out = append(out, base().
			Set("warehouse_id", wp["warehouse_id"]).
			Set("on_hand", transform.IntOr(wp["on_hand"], 0)))
	}
	return out
}

// joinTags renders the tag list as one comma separated cell.
func joinTags(v interface{}) string {
	list, _ := v.([]interface{})
	tags := make([]string, 0, len(list))
	for _, t := range list {
		if s := transform.String(t); s != "" {
			tags = append(tags, s)
		}
	}
	return strings.Join(tags, ",")
}
