// Delete command removes a row from a dataset.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <dataset> <id>",
	Short: "Delete a row by id",
	Long: `Delete fetches the row with the given id, marks it for deletion
and submits the change.

Example:
  formset delete orders 3`,
	Args: cobra.ExactArgs(2),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
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

	ds.Remove(record)
	if _, err := ds.Submit(cmd.Context()); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	fmt.Printf("Deleted row %s from %s\n", args[1], args[0])
	return nil
}
