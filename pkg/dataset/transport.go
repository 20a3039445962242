package dataset

import (
	"context"
	"fmt"
)

// Transport operations. Submit groups map to one request per non-empty
// group of created/updated/destroyed records.
const (
	OpRead     = "read"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDestroy  = "destroy"
	OpSubmit   = "submit"
	OpValidate = "validate"
	OpTLS      = "tls"
	OpExports  = "exports"
	OpLookup   = "lookup"
)

// Request describes one transport call at the value level, independent of
// wire format. Params carry query-string style parameters (page, pagesize,
// sortname, plus merged query parameters); Data carries the body.
type Request struct {
	Operation string
	URL       string
	Method    string
	Params    map[string]any
	Data      any
}

// Transport executes remote operations. Implementations return the raw
// response object; the engine extracts rows and totals via the configured
// DataKey/TotalKey paths. A nil response with a nil error means "no
// content": there is no server-assigned data to merge.
type Transport interface {
	Do(ctx context.Context, req *Request) (map[string]any, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req *Request) (map[string]any, error)

// Do implements Transport.
func (f TransportFunc) Do(ctx context.Context, req *Request) (map[string]any, error) {
	return f(ctx, req)
}

// URLs overrides the name-derived endpoint per operation. Unset entries
// fall back to the /dataset/{name}/... conventions.
type URLs struct {
	Query    string
	Submit   string
	Validate string
	TLS      string
	Export   string
}

// responseRows extracts the row array from a response via the dataKey
// path. A response that is itself an array-equivalent (no dataKey wrapper)
// is not supported; the wire contract always nests rows.
func responseRows(resp map[string]any, dataKey string) []map[string]any {
	if resp == nil {
		return nil
	}
	raw := chainGet(resp, dataKey)
	if raw == nil {
		return nil
	}
	var rows []map[string]any
	for _, item := range toSlice(raw) {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

// responseTotal extracts the optional total row count via the totalKey
// path. Returns -1 when absent.
func responseTotal(resp map[string]any, totalKey string) int {
	if resp == nil {
		return -1
	}
	switch v := chainGet(resp, totalKey).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case nil:
		return -1
	default:
		return -1
	}
}

// defaultURL resolves the conventional endpoint for an operation on a named
// dataset. Returns "" for unnamed datasets, which makes remote operations
// no-ops guarded by a warning.
func defaultURL(name, operation string) string {
	if name == "" {
		return ""
	}
	switch operation {
	case OpRead:
		return fmt.Sprintf("/dataset/%s/queries", name)
	case OpValidate:
		return fmt.Sprintf("/dataset/%s/validate", name)
	case OpTLS:
		return fmt.Sprintf("/dataset/%s/languages", name)
	case OpExports:
		return fmt.Sprintf("/dataset/%s/export", name)
	default:
		return fmt.Sprintf("/dataset/%s/mutations", name)
	}
}
