package cmd

import (
	"github.com/relloyd/healthpipe/actions"
	"github.com/relloyd/healthpipe/config"
	"github.com/spf13/cobra"
)

var validatePipelineFlags = pipelineFlags{}

var validateCfg = actions.ValidateConfig{}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the pipeline settings without running anything",
	Long: `Build the pipeline task graph from the supplied settings, or load a rendered
definition file, and report the number of tasks and dependencies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runValidate()
	},
}

func runValidate() error {
	if validateCfg.DefinitionFile == "" {
		p, err := getPipelineConfig(&validatePipelineFlags, config.Main)
		if err != nil {
			return err
		}
		validateCfg.Pipeline = p
	}
	_, err := actions.RunValidate(&validateCfg)
	return err
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().SortFlags = false
	addPipelineFlags(validateCmd, &validatePipelineFlags)
	switches.addFlag(validateCmd, &validateCfg.DefinitionFile, "file", "", false, "")
	if !twelveFactorMode {
		_ = validateCmd.MarkFlagFilename("file", "json", "yaml")
	}
}
