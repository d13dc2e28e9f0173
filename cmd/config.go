package cmd

import (
	"fmt"

	"github.com/relloyd/healthpipe/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configure connections and default flag values",
	Long: fmt.Sprintf(`Configure connections & default parameters where:

- Connections are stored in file %q
- Default flag values and pipeline settings are stored in file %q

Pipeline settings placed under key %q of the main config file are applied
before any pipeline file or flags.`, config.Connections.FullPath, config.Main.FullPath, config.KeyPipeline),
}

func init() {
	rootCmd.AddCommand(configCmd)
}
