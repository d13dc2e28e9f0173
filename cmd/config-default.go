package cmd

import (
	"fmt"
	"io"

	"github.com/relloyd/healthpipe/actions"
	"github.com/relloyd/healthpipe/config"
	"github.com/spf13/cobra"
)

var defaultCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Configure default values for commands",
	Long: fmt.Sprintf(`Configure default values for commands, where:

- Defaults are stored in config file %q`, config.Main.FullPath),
}

var defaultAddCfg = actions.DefaultAddConfig{}

var defaultAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or set a default flag value",
	Long:  fmt.Sprintf("Add a default flag value to config file %q", config.Main.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultAddCfg.ConfigFile = config.Main
		defaultAddCfg.Output = cmd.OutOrStdout()
		return actions.RunDefaultAdd(&defaultAddCfg)
	},
}

var configDefaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all default flag values",
	Long: fmt.Sprintf(`List default flag values stored in config file %q
by printing them all to STDOUT`,
		config.Main.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDefaults(config.Main, cmd.OutOrStdout())
	},
}

type keyLister interface {
	GetAllKeys() ([]string, error)
	Get(key string, out interface{}) error
}

// listDefaults prints key=value for every key in f.
// The pipeline section is skipped since it is not a flag value.
func listDefaults(f keyLister, w io.Writer) error {
	keys, err := f.GetAllKeys()
	if err != nil {
		return err
	}
	for _, k := range keys { // for each key...
		if k == config.KeyPipeline {
			continue
		}
		var val string
		if err := f.Get(k, &val); err != nil {
			return err
		}
		fmt.Fprintf(w, "%v=%v\n", k, val)
	}
	return nil
}

var defaultRemoveCfg = actions.DefaultRemoveConfig{}

var defaultRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Remove a default flag value",
	Long:    fmt.Sprintf("Remove a default flag value from config file %q", config.Main.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaultRemoveCfg.ConfigFile = config.Main
		defaultRemoveCfg.Output = cmd.OutOrStdout()
		return actions.RunDefaultRemove(&defaultRemoveCfg)
	},
}

func init() {
	configCmd.AddCommand(defaultCmd)
	defaultCmd.AddCommand(defaultAddCmd)
	defaultCmd.AddCommand(configDefaultListCmd)
	defaultCmd.AddCommand(defaultRemoveCmd)

	defaultAddCmd.Flags().SortFlags = false
	defaultAddCmd.Flags().StringVarP(&defaultAddCfg.Key, "key", "k", "", "* The key to set in config. Match the name of the flag\n"+
		"to have this value take effect in commands")
	defaultAddCmd.Flags().StringVarP(&defaultAddCfg.Value, "value", "v", "", "* The default value to set")
	defaultAddCmd.Flags().BoolVarP(&defaultAddCfg.Force, "force", "f", false, "Overwrite existing values")
	_ = defaultAddCmd.MarkFlagRequired("key")
	_ = defaultAddCmd.MarkFlagRequired("value")
	defaultAddCmd.SilenceUsage = true

	defaultRemoveCmd.Flags().SortFlags = false
	defaultRemoveCmd.Flags().StringVarP(&defaultRemoveCfg.Key, "key", "k", "",
		"The key to remove from config. Match the name of the flag\n"+
			"to have this value take effect in commands")
	_ = defaultRemoveCmd.MarkFlagRequired("key")
	defaultRemoveCmd.SilenceUsage = true
}
