// Package transform coerces decoded JSON values into the scalar types used
// by flattened records, CSV cells and SQL parameters.
package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Transformer converts one value.
type Transformer interface {
	Transform(value interface{}) (interface{}, error)
}

// TransformFunc adapts a function to Transformer.
type TransformFunc func(value interface{}) (interface{}, error)

func (f TransformFunc) Transform(value interface{}) (interface{}, error) { return f(value) }

// Registry maps column types to transformers.
type Registry struct {
	transformers map[string]Transformer
}

// NewRegistry creates a registry with the default column types.
func NewRegistry() *Registry {
	r := &Registry{transformers: make(map[string]Transformer)}
	r.Register("int", TransformFunc(intTransform))
	r.Register("float", TransformFunc(floatTransform))
	r.Register("bool", TransformFunc(boolTransform))
	r.Register("string", TransformFunc(stringTransform))
	r.Register("time", TransformFunc(timeTransform))
	r.Register("trim", TransformFunc(trimTransform))
	return r
}

// Register adds or replaces a transformer.
func (r *Registry) Register(name string, t Transformer) {
	r.transformers[name] = t
}

// Get returns the transformer registered under name.
func (r *Registry) Get(name string) (Transformer, error) {
	t, ok := r.transformers[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform type: %s", name)
	}
	return t, nil
}

// Apply runs the named transformer on value.
func (r *Registry) Apply(name string, value interface{}) (interface{}, error) {
	t, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return t.Transform(value)
}

// DefaultRegistry is the shared registry.
var DefaultRegistry = NewRegistry()

// nil stays nil so nullable columns remain NULL.
func intTransform(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	n, ok := Int(value)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to int", value)
	}
	return n, nil
}

func floatTransform(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	f, ok := Float(value)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to float", value)
	}
	return f, nil
}

func boolTransform(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	b, ok := Bool(value)
	if !ok {
		return nil, fmt.Errorf("cannot convert %T to bool", value)
	}
	return b, nil
}

func stringTransform(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	return String(value), nil
}

func timeTransform(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	if s, ok := value.(string); ok && s == "" {
		return nil, nil
	}
	tm, ok := Time(value)
	if !ok {
		return nil, fmt.Errorf("cannot parse time from %v", value)
	}
	return tm, nil
}

func trimTransform(value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("trim transform requires string input, got %T", value)
	}
	return strings.TrimSpace(str), nil
}

// Int converts numeric JSON values to int64.
func Int(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return wholeFloat(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil {
				return 0, false
			}
			return wholeFloat(f)
		}
		return n, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// wholeFloat rejects fractions and values outside the int64 range.
func wholeFloat(f float64) (int64, bool) {
	if f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// IntOr returns Int(value) or def when value is absent or not numeric.
func IntOr(value interface{}, def int64) int64 {
	if n, ok := Int(value); ok {
		return n
	}
	return def
}

// Float converts numeric JSON values to float64.
func Float(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool converts JSON booleans and their common string and numeric forms.
func Bool(value interface{}) (bool, bool) {
	switch v := value.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	case int:
		return v != 0, true
	case float64:
		return v != 0, true
	default:
		return false, false
	}
}

// String renders a value as text. nil becomes the empty string.
func String(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339)
	case []interface{}, map[string]interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", v)
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time parses the timestamp layouts the API and users produce.
func Time(value interface{}) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timeLayouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return tm, true
			}
		}
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseDate validates a user supplied date or timestamp.
func ParseDate(s string) (time.Time, error) {
	tm, ok := Time(s)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return tm, nil
}
