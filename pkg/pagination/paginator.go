// Package pagination drives cursor paged GraphQL connections.
package pagination

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/saturnines/shiphero-core/pkg/errors"
	"github.com/saturnines/shiphero-core/pkg/record"
	"github.com/saturnines/shiphero-core/pkg/transport/graphql"
)

// Requester issues one GraphQL request.
type Requester interface {
	Request(ctx context.Context, query string, variables map[string]interface{}) (*graphql.Response, error)
}

// FlattenFunc turns one node into zero or more records.
type FlattenFunc func(node map[string]interface{}) ([]*record.Record, error)

// Paginator fetches every page of one connection.
type Paginator struct {
	Requester Requester
	Query     string
	// ConnectionPath is the dotted path under "data" to the object holding
	// edges and page info, e.g. "inventory_changes.data".
	ConnectionPath string
	PageSize       int
	Flatten        FlattenFunc
	Resource       string

	// Variable names, "first" and "after" when empty.
	FirstVar string
	AfterVar string

	Logger *slog.Logger
}

// FetchAll requests pages until the connection is null, a page is empty,
// hasNextPage is false or maxRecords records were collected. maxRecords
// counts flattened records; zero or less means no ceiling.
func (p *Paginator) FetchAll(ctx context.Context, base map[string]interface{}, maxRecords int) (*record.Set, error) {
	if p.Requester == nil || p.Flatten == nil {
		return nil, errors.WrapError(fmt.Errorf("requester and flatten are required"), errors.ErrConfiguration, "paginate")
	}
	pageSize := p.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	firstVar, afterVar := p.FirstVar, p.AfterVar
	if firstVar == "" {
		firstVar = "first"
	}
	if afterVar == "" {
		afterVar = "after"
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	set := record.NewSet(p.Resource)
	var cursor interface{}

	for page := 1; ; page++ {
		first := pageSize
		if maxRecords > 0 {
			remaining := maxRecords - set.Len()
			if remaining <= 0 {
				break
			}
			if remaining < first {
				first = remaining
			}
		}

		vars := make(map[string]interface{}, len(base)+2)
		for k, v := range base {
			vars[k] = v
		}
		vars[firstVar] = first
		vars[afterVar] = cursor

		resp, err := p.Requester.Request(ctx, p.Query, vars)
		if err != nil {
			return nil, err
		}

		container, err := lookupConnection(resp.Data, p.ConnectionPath)
		if err != nil {
			return nil, err
		}
		if container == nil {
			logger.Debug("connection is null, stopping", "resource", p.Resource, "page", page)
			break
		}

		conn, err := ParseConnection(container)
		if err != nil {
			return nil, err
		}
		if len(conn.Nodes) == 0 {
			break
		}

		for _, node := range conn.Nodes {
			recs, err := p.Flatten(node)
			if err != nil {
				return nil, err
			}
			set.Append(recs...)
		}
		logger.Debug("fetched page", "resource", p.Resource, "page", page, "nodes", len(conn.Nodes), "records", set.Len())

		if !conn.HasNextPage {
			break
		}
		if conn.EndCursor == "" || conn.EndCursor == cursor {
			return nil, errors.WrapError(
				fmt.Errorf("page %d reports more pages without a new cursor", page),
				errors.ErrPagination,
				"advance cursor",
			)
		}
		cursor = conn.EndCursor
	}

	if maxRecords > 0 {
		set.Truncate(maxRecords)
	}
	return set, nil
}

// lookupConnection walks path under data. A null anywhere on the path
// returns (nil, nil); a missing key is a validation error.
func lookupConnection(data map[string]interface{}, path string) (map[string]interface{}, error) {
	if data == nil {
		return nil, missing("data")
	}
	var cur interface{} = data
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, invalid(part, "an object", cur)
		}
		cur, ok = m[part]
		if !ok {
			return nil, missing(part)
		}
		if cur == nil {
			return nil, nil
		}
	}
	m, ok := cur.(map[string]interface{})
	if !ok {
		return nil, invalid(path, "an object", cur)
	}
	return m, nil
}
