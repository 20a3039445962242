// Shared helpers for formset CLI commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mesh-intelligence/formset/internal/httptransport"
	"github.com/mesh-intelligence/formset/internal/sqlitetransport"
	"github.com/mesh-intelligence/formset/pkg/dataset"
)

// errUsage marks bad command input so main can pick the user-error exit code.
var errUsage = errors.New("invalid usage")

// newTransport builds the dataset transport from config: an HTTP transport
// when base_url is set, a local SQLite backend otherwise. The caller must
// defer the returned cleanup func.
func newTransport() (dataset.Transport, func() error, error) {
	if configBaseURL != "" {
		return httptransport.New(configBaseURL), func() error { return nil }, nil
	}

	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve data dir: %w", err)
	}

	backend := sqlitetransport.NewBackend()
	if err := backend.Attach(dataDir); err != nil {
		return nil, nil, fmt.Errorf("attach backend: %w", err)
	}

	return backend, backend.Detach, nil
}

// newDataSet binds a dataset to the named resource over the given transport.
// Rows are keyed by the "id" field assigned by the backend.
func newDataSet(name string, transport dataset.Transport) *dataset.DataSet {
	return dataset.New(dataset.Props{
		Name:       name,
		Transport:  transport,
		PrimaryKey: "id",
		PageSize:   configPageSize,
	}, nil)
}

// parseFilters turns key=value arguments into query parameters. Values are
// parsed as JSON when possible so numbers and booleans keep their type.
func parseFilters(args []string) (map[string]any, error) {
	filters := make(map[string]any)
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: invalid filter %q (expected key=value)", errUsage, arg)
		}
		key := parts[0]
		value := parts[1]

		var parsed any
		if err := json.Unmarshal([]byte(value), &parsed); err != nil {
			parsed = value
		}
		filters[key] = parsed
	}
	return filters, nil
}

// parseRowJSON unmarshals a JSON object argument into row data.
func parseRowJSON(arg string) (map[string]any, error) {
	var row map[string]any
	if err := json.Unmarshal([]byte(arg), &row); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON object %q: %v", errUsage, arg, err)
	}
	return row, nil
}

// findByID queries the dataset for the row with the given primary key value
// and returns the matching record.
func findByID(ctx context.Context, ds *dataset.DataSet, id string) (*dataset.Record, error) {
	var parsed any
	if err := json.Unmarshal([]byte(id), &parsed); err != nil {
		parsed = id
	}
	ds.SetQueryParameter("id", parsed)

	if err := ds.Query(ctx, 1); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	record := ds.Get(0)
	if record == nil {
		return nil, fmt.Errorf("%w: no record with id %s", errUsage, id)
	}
	return record, nil
}

// printRecords writes records as JSON, indented by default and compact with
// the --json flag.
func printRecords(records []*dataset.Record) error {
	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.ToData(true))
	}
	return printValue(rows)
}

func printValue(value any) error {
	var (
		out []byte
		err error
	)
	if flagJSON {
		out, err = json.Marshal(value)
	} else {
		out, err = json.MarshalIndent(value, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
