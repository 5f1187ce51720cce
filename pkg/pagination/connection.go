package pagination

import (
	"fmt"

	"github.com/saturnines/shiphero-core/pkg/errors"
)

// The API spells page metadata two ways depending on the resource.
var (
	pageInfoKeys    = []string{"pageInfo", "page_info"}
	hasNextPageKeys = []string{"hasNextPage", "has_next_page"}
	endCursorKeys   = []string{"endCursor", "end_cursor"}
)

// Connection is one page of a relay style connection.
type Connection struct {
	Nodes       []map[string]interface{}
	HasNextPage bool
	EndCursor   string
}

// ParseConnection reads edges and page info from a connection object.
// Missing keys are reported as errors.ErrValidation.
func ParseConnection(container map[string]interface{}) (*Connection, error) {
	rawEdges, ok := container["edges"]
	if !ok {
		return nil, missing("edges")
	}
	edges, ok := rawEdges.([]interface{})
	if rawEdges != nil && !ok {
		return nil, invalid("edges", "a list", rawEdges)
	}

	conn := &Connection{Nodes: make([]map[string]interface{}, 0, len(edges))}
	for i, e := range edges {
		edge, ok := e.(map[string]interface{})
		if !ok {
			return nil, invalid(fmt.Sprintf("edges[%d]", i), "an object", e)
		}
		rawNode, ok := edge["node"]
		if !ok {
			return nil, missing(fmt.Sprintf("edges[%d].node", i))
		}
		if rawNode == nil {
			continue
		}
		node, ok := rawNode.(map[string]interface{})
		if !ok {
			return nil, invalid(fmt.Sprintf("edges[%d].node", i), "an object", rawNode)
		}
		conn.Nodes = append(conn.Nodes, node)
	}

	rawInfo, key, ok := firstKey(container, pageInfoKeys)
	if !ok {
		return nil, missing("pageInfo")
	}
	info, ok := rawInfo.(map[string]interface{})
	if !ok {
		return nil, invalid(key, "an object", rawInfo)
	}

	rawHasNext, key, ok := firstKey(info, hasNextPageKeys)
	if !ok {
		return nil, missing("pageInfo.hasNextPage")
	}
	conn.HasNextPage, ok = rawHasNext.(bool)
	if !ok {
		return nil, invalid(key, "a bool", rawHasNext)
	}

	if rawCursor, key, ok := firstKey(info, endCursorKeys); ok && rawCursor != nil {
		conn.EndCursor, ok = rawCursor.(string)
		if !ok {
			return nil, invalid(key, "a string", rawCursor)
		}
	}

	return conn, nil
}

func firstKey(m map[string]interface{}, keys []string) (interface{}, string, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v, k, true
		}
	}
	return nil, "", false
}

func missing(key string) error {
	return errors.WrapError(
		fmt.Errorf("missing key %q", key),
		errors.ErrValidation,
		"unexpected response format",
	)
}

func invalid(key, want string, got interface{}) error {
	return errors.WrapError(
		fmt.Errorf("%q is %T, expected %s", key, got, want),
		errors.ErrValidation,
		"unexpected response format",
	)
}
