package cmd

import (
	"net"

	"github.com/relloyd/healthpipe/actions"
	"github.com/relloyd/healthpipe/config"
	"github.com/relloyd/healthpipe/constants"
	"github.com/spf13/cobra"
	"golang.org/x/net/context"
)

var runPipelineFlags = pipelineFlags{}

var runCfg = actions.RunConfig{
	LogLevel:                  "info",
	WarehouseConnection:       constants.ConnectionNameWarehouse,
	StorageConnection:         constants.ConnectionNameStorage,
	StatsDumpFrequencySeconds: 0,
}

var webCfg = actions.WebServerConfig{
	Scheme: "http",
	Addr:   net.IP{0, 0, 0, 0},
	Port:   8080,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline locally",
	Long: `Run the pipeline on the local scheduler.

The source object is read from the storage connection and SQL is executed on the
warehouse connection. Each task is retried on failure. A failed partition does
not stop the other partitions, but the run fails at the final marker task.
Optionally run a web server to monitor progress and health remotely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runRun()
	},
}

func runRun() error {
	if runCfg.DefinitionFile == "" {
		p, err := getPipelineConfig(&runPipelineFlags, config.Main)
		if err != nil {
			return err
		}
		runCfg.Pipeline = p
	}
	runCfg.Connections = getConnectionLoader()
	runCfg.StackDumpOnPanic = stackDumpOnPanic
	runCfg.Web = &webCfg
	_, err := actions.RunPipeline(context.Background(), &runCfg)
	return err
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().SortFlags = false
	addPipelineFlags(runCmd, &runPipelineFlags)
	switches.addFlag(runCmd, &runCfg.DefinitionFile, "file", "", false, "")
	switches.addFlag(runCmd, &runCfg.StorageConnection, "storage-connection", constants.ConnectionNameStorage, false, "")
	switches.addFlag(runCmd, &runCfg.WarehouseConnection, "warehouse-connection", constants.ConnectionNameWarehouse, false, "")
	switches.addFlag(runCmd, &runCfg.ReportFormat, "report", "", false, "")
	switches.addFlag(runCmd, &runCfg.StatsDumpFrequencySeconds, "stats", "0", false, "")
	switches.addFlag(runCmd, &runCfg.WithWebService, "web-service", "", false, "")
	switches.addFlag(runCmd, &webCfg.Port, "port", "8080", false, "")
	switches.addFlag(runCmd, &runCfg.LogLevel, "log-level", "info", false, "")
	switches.addFlag(runCmd, &runCfg.JsonLogs, "json-logs", "", false, "")
	if !twelveFactorMode {
		runCmd.Flags().IPVarP(&webCfg.Addr, "address", "a", net.IP{0, 0, 0, 0}, "Address to listen on")
		_ = runCmd.MarkFlagFilename("file", "json", "yaml")
	}
}
