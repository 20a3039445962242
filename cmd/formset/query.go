// Query command lists rows from a dataset with optional filtering.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagQueryPage     int
	flagQueryPageSize int
)

var queryCmd = &cobra.Command{
	Use:   "query <dataset> [filter...]",
	Short: "Query rows with optional filters",
	Long: `Query fetches a page of rows from the named dataset.

Filters are specified as key=value pairs. Multiple filters are ANDed
together. An empty filter returns all rows.

Example:
  formset query orders
  formset query orders status=open
  formset query orders status=open customer=acme --page 2 --page-size 5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&flagQueryPage, "page", 1, "page to fetch")
	queryCmd.Flags().IntVar(&flagQueryPageSize, "page-size", 0, "rows per page (default from config)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	filters, err := parseFilters(args[1:])
	if err != nil {
		return err
	}

	transport, cleanup, err := newTransport()
	if err != nil {
		return err
	}
	defer cleanup()

	ds := newDataSet(args[0], transport)
	ds.SetPageSize(flagQueryPageSize)
	for key, value := range filters {
		ds.SetQueryParameter(key, value)
	}

	if err := ds.Query(cmd.Context(), flagQueryPage); err != nil {
		return fmt.Errorf("query: %w", err)
	}

	return printRecords(ds.Data())
}
