package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize tally storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nand seed the local store with the default wallets.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	// Only an explicit --data-dir is recorded; otherwise the platform
	// default keeps applying.
	dataDir := ""
	if flags.dataDir != "" {
		dataDir, err = filepath.Abs(flags.dataDir)
		if err != nil {
			return err
		}
	}
	if err := writeConfigIfMissing(filepath.Join(configDir, configFileExt), dataDir); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Opening the workspace seeds the wallets; persist writes every document
	// file once so the data directory is complete.
	return withApp(cmd, false, func(a *app) error {
		if err := a.ws.Persist(); err != nil {
			return fmt.Errorf("initialize storage: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "tally initialized\nconfig: %s\ndata:   %s\n", configDir, a.settings.dataDir)
		return nil
	})
}
