// Version command for the formset CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/formset/pkg/formset"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the formset version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("formset", formset.Version)
	},
}
