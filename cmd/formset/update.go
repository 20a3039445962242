// Update command patches an existing row in a dataset.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <dataset> <id> <json>",
	Short: "Update a row by id from a JSON object",
	Long: `Update fetches the row with the given id, applies the fields from
the JSON object and submits the change.

Example:
  formset update orders 3 '{"status": "shipped"}'`,
	Args: cobra.ExactArgs(3),
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	patch, err := parseRowJSON(args[2])
	if err != nil {
		return err
	}

	transport, cleanup, err := newTransport()
	if err != nil {
		return err
	}
	defer cleanup()

	ds := newDataSet(args[0], transport)
	record, err := findByID(cmd.Context(), ds, args[1])
	if err != nil {
		return err
	}

	for key, value := range patch {
		record.Set(key, value)
	}

	if _, err := ds.Submit(cmd.Context()); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	return printValue(record.ToData(true))
}
