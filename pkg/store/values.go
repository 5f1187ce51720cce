package store

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/saturnines/shiphero-core/pkg/transform"
)

// Value converts a record cell to a driver argument. Whole floats become
// integers and nested JSON is stored as text.
func Value(v interface{}) interface{} {
	switch x := v.(type) {
	case nil, string, bool, int64, time.Time:
		return x
	case int:
		return int64(x)
	case float64, json.Number:
		if n, ok := transform.Int(x); ok {
			return n
		}
		f, _ := transform.Float(x)
		return f
	default:
		return transform.String(x)
	}
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
