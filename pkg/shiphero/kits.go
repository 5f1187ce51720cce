package shiphero

import (
	"context"
	"fmt"

	"github.com/saturnines/shiphero-core/pkg/core"
	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transform"
)

// KitComponent is one component line of a kit.
type KitComponent struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity,omitempty"`
}

func requireSKU(sku string) error {
	if sku == "" {
		return errors.WrapError(fmt.Errorf("kit sku is required"), errors.ErrValidation, "kit")
	}
	return nil
}

// KitDetails lists the components of a kit, one record per component.
func (s *Service) KitDetails(ctx context.Context, sku string) (*record.Set, error) {
	if err := requireSKU(sku); err != nil {
		return nil, err
	}
	resp, err := s.client.Request(ctx, kitQuery, map[string]interface{}{"sku": sku})
	if err != nil {
		return nil, err
	}
	raw, err := core.RequireField(resp.Data, "product")
	if err != nil {
		return nil, err
	}
	product, ok := raw.(map[string]interface{})
	if !ok || product == nil {
		return nil, errors.WrapError(fmt.Errorf("kit %s not found", sku), errors.ErrValidation, "kit details")
	}

	set := record.NewSet("kit_details")
	for _, c := range core.Objects(product, "components") {
		set.Append(record.New(6).
			Set("kit_sku", sku).
			Set("kit_name", product["name"]).
			Set("component_sku", c["sku"]).
			Set("component_name", core.Object(c, "product")["name"]).
			Set("quantity", transform.IntOr(c["quantity"], 0)).
			Set("component_id", c["id"]))
	}
	return set, nil
}

// CreateKit defines a kit from components in a warehouse and optionally
// builds it. Returns the resulting product.
func (s *Service) CreateKit(ctx context.Context, sku string, components []KitComponent, warehouseID string, build bool) (map[string]interface{}, error) {
	if err := requireSKU(sku); err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, errors.WrapError(fmt.Errorf("at least one component is required"), errors.ErrValidation, "create kit")
	}
	if warehouseID == "" {
		return nil, errors.WrapError(fmt.Errorf("warehouse id is required"), errors.ErrValidation, "create kit")
	}

	comps := make([]map[string]interface{}, len(components))
	for i, c := range components {
		comps[i] = map[string]interface{}{"sku": c.SKU, "quantity": c.Quantity}
	}
	resp, err := s.client.Request(ctx, kitBuildMutation, map[string]interface{}{
		"sku":         sku,
		"components":  comps,
		"warehouseId": warehouseID,
		"kitBuild":    build,
	})
	if err != nil {
		return nil, err
	}
	product, err := core.RequireObject(resp.Data, "kit_build.product")
	if err != nil {
		return nil, err
	}
	s.logger.Info("kit created", "sku", sku, "components", len(components), "built", build)
	return product, nil
}

// RemoveKitComponents drops components from a kit.
func (s *Service) RemoveKitComponents(ctx context.Context, sku string, componentSKUs []string) (map[string]interface{}, error) {
	if err := requireSKU(sku); err != nil {
		return nil, err
	}
	if len(componentSKUs) == 0 {
		return nil, errors.WrapError(fmt.Errorf("at least one component sku is required"), errors.ErrValidation, "remove kit components")
	}

	comps := make([]map[string]interface{}, len(componentSKUs))
	for i, c := range componentSKUs {
		comps[i] = map[string]interface{}{"sku": c}
	}
	resp, err := s.client.Request(ctx, kitRemoveComponentsMutation, map[string]interface{}{
		"sku":        sku,
		"components": comps,
	})
	if err != nil {
		return nil, err
	}
	product, err := core.RequireObject(resp.Data, "kit_remove_components.product")
	if err != nil {
		return nil, err
	}
	s.logger.Info("kit components removed", "sku", sku, "components", len(componentSKUs))
	return product, nil
}

// ClearKit disassembles a kit in every warehouse.
func (s *Service) ClearKit(ctx context.Context, sku string) (map[string]interface{}, error) {
	if err := requireSKU(sku); err != nil {
		return nil, err
	}
	resp, err := s.client.Request(ctx, kitClearMutation, map[string]interface{}{"sku": sku})
	if err != nil {
		return nil, err
	}
	result, err := core.RequireObject(resp.Data, "kit_clear")
	if err != nil {
		return nil, err
	}
	s.logger.Info("kit cleared", "sku", sku)
	return result, nil
}
