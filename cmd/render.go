package cmd

import (
	"github.com/relloyd/healthpipe/actions"
	"github.com/relloyd/healthpipe/config"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

var renderPipelineFlags = pipelineFlags{}

var renderCfg = actions.RenderConfig{
	LogLevel: "warn",
	Format:   actions.OutputFormatYaml,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Print the pipeline definition as YAML or JSON",
	Long: `Build the pipeline task graph from the supplied settings and print its definition.
Optionally publish the definition to an S3 bucket for an external scheduler to pick up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runRender()
	},
}

func runRender() error {
	p, err := getPipelineConfig(&renderPipelineFlags, config.Main)
	if err != nil {
		return err
	}
	renderCfg.Pipeline = p
	renderCfg.StackDumpOnPanic = stackDumpOnPanic
	return actions.RenderPipeline(context.Background(), &renderCfg)
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().SortFlags = false
	addPipelineFlags(renderCmd, &renderPipelineFlags)
	switches.addFlag(renderCmd, &renderCfg.Format, "output", actions.OutputFormatYaml, false, "")
	switches.addFlag(renderCmd, &renderCfg.Destination, "destination", "", false, "")
	switches.addFlag(renderCmd, &renderCfg.Region, "destination-region", "", false, "")
	switches.addFlag(renderCmd, &renderCfg.LogLevel, "log-level", "warn", false, "")
}
