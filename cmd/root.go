package cmd

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2024-01-01T00:00+0000"
	osArch           = "linux"
	stackDumpOnPanic bool
)

var rootCmd = &cobra.Command{
	Use:   "healthpipe",
	Short: "Load and transform global health data from object storage into a warehouse",
	Long: `healthpipe builds and runs the health data pipeline.

The pipeline checks that the source CSV object exists in a bucket, loads it
into a staging table, then creates one table and one reporting view per
country (partition key) before marking the run complete.

Use "render" to print or publish the pipeline definition for an external
scheduler, "validate" to check the settings and "run" to execute the pipeline
locally against a warehouse connection.`,
}

func init() {
	cobra.EnableCommandSorting = false
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if lambdaMode { // if we should handle lambda execution...
			lambda.Start(func() error { return execute12FactorMode(twelveFactorActions) })
		} else if err := execute12FactorMode(twelveFactorActions); err != nil {
			// execute12FactorMode prints the error.
			os.Exit(1)
		}
	} else { // else we're using CLI args and flags via Cobra...
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}
