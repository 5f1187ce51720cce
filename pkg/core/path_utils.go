package core

import (
	"fmt"
	"strings"

	"github.com/saturnines/shiphero-core/pkg/errors"
)

// ExtractField walks a dotted path through nested JSON objects.
// The bool is false when any segment is missing or not an object.
func ExtractField(data interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	current := data
	for _, part := range strings.Split(path, ".") {
		currentMap, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = currentMap[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// RequireField is ExtractField that reports a missing key as a
// validation error. A present key holding null is not an error.
func RequireField(data interface{}, path string) (interface{}, error) {
	v, ok := ExtractField(data, path)
	if !ok {
		return nil, errors.WrapError(
			fmt.Errorf("missing key %q", path),
			errors.ErrValidation,
			"unexpected response format",
		)
	}
	return v, nil
}

// RequireObject is RequireField for a non-null JSON object.
func RequireObject(data interface{}, path string) (map[string]interface{}, error) {
	v, err := RequireField(data, path)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.WrapError(
			fmt.Errorf("%q is %T, not an object", path, v),
			errors.ErrValidation,
			"unexpected response format",
		)
	}
	return m, nil
}

// Object returns m[key] as an object, or an empty object when it is
// absent or null.
func Object(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return map[string]interface{}{}
}

// Objects returns the objects found in the list at m[key].
func Objects(m map[string]interface{}, key string) []map[string]interface{} {
	list, _ := m[key].([]interface{})
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}
