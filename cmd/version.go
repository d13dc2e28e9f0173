package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information for healthpipe",
	Long:  `Show version information for healthpipe`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), `healthpipe
  Version:	%v
  Build date:	%v
  OS/Arch:	%v
`, version, buildDate, osArch)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
