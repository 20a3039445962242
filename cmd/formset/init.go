// Init command prepares the formset directories.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/formset/internal/sqlitetransport"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the formset storage",
	Long:  `Init creates the configuration directory with a default config.yaml and the local SQLite data directory.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Config dir and config.yaml already exist at this point, created
		// by PersistentPreRunE.
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		dataDir, err := resolveDataDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}

		backend := sqlitetransport.NewBackend()
		if err := backend.Attach(dataDir); err != nil {
			return fmt.Errorf("attach backend: %w", err)
		}
		if err := backend.Detach(); err != nil {
			return fmt.Errorf("detach backend: %w", err)
		}

		fmt.Println("Initialized formset")
		fmt.Println("  config dir:", configDir)
		fmt.Println("  data dir:  ", dataDir)
		return nil
	},
}
