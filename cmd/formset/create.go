// Create command inserts a new row into a dataset.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create <dataset> <json>",
	Short: "Create a row from a JSON object",
	Long: `Create inserts a row built from the JSON object and submits it.

Example:
  formset create orders '{"customer": "acme", "status": "open"}'`,
	Args: cobra.ExactArgs(2),
	RunE: runCreate,
}

func runCreate(cmd *cobra.Command, args []string) error {
	row, err := parseRowJSON(args[1])
	if err != nil {
		return err
	}

	transport, cleanup, err := newTransport()
	if err != nil {
		return err
	}
	defer cleanup()

	ds := newDataSet(args[0], transport)
	record := ds.Create(row, -1)

	if _, err := ds.Submit(cmd.Context()); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	return printValue(record.ToData(true))
}
