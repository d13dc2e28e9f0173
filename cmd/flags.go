package cmd

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/relloyd/healthpipe/config"
	"github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliFlag struct {
	name      string // name of flag
	val       string // default value
	shortHand string // single character name for the flag
	desc      string // description of the flag; the long text
}

type cliFlags map[string]cliFlag

var switches = cliFlags{
	"mock": cliFlag{name: "mock", shortHand: "m", desc: "mock switch for testing"},
	// Pipeline settings.
	"project-id": cliFlag{name: "project-id", shortHand: "j",
		desc: "The warehouse project that owns the staging, transform and reporting datasets"},
	"bucket": cliFlag{name: "bucket", shortHand: "b",
		desc: "The bucket holding the source CSV object"},
	"object": cliFlag{name: "object", shortHand: "O",
		desc: "The path of the source CSV object inside the bucket"},
	"partition-keys": cliFlag{name: "partition-keys", shortHand: "k",
		desc: "The <CSV of countries> to build per-partition tables and views for. \n" +
			"Each one must be unique and usable as part of a task ID"},
	"staging-dataset": cliFlag{name: "staging-dataset", shortHand: "S",
		desc: "Dataset that receives the raw CSV load"},
	"transform-dataset": cliFlag{name: "transform-dataset", shortHand: "T",
		desc: "Dataset that receives the per-partition tables"},
	"reporting-dataset": cliFlag{name: "reporting-dataset", shortHand: "R",
		desc: "Dataset that receives the per-partition views"},
	"retries": cliFlag{name: "retries", shortHand: "r",
		desc: "Number of extra attempts per task after the first failure"},
	"sql-dialect": cliFlag{name: "sql-dialect", shortHand: "Q",
		desc: "SQL dialect used to generate statements: \"bigquery | snowflake\". \n" +
			"When running, it must match the warehouse connection type, and it is required for dsn warehouses"},
	"dag-id": cliFlag{name: "dag-id", shortHand: "g",
		desc: "The pipeline identifier"},
	"pipeline-file": cliFlag{name: "pipeline-file", shortHand: "p",
		desc: "YAML file of pipeline settings applied before any of the flags above"},
	// Output.
	"output": cliFlag{name: "output", shortHand: "o",
		desc: "Specify \"yaml\" or \"json\" to print the pipeline definition"},
	"destination": cliFlag{name: "destination", shortHand: "d",
		desc: "Optional s3://<bucket>[/<prefix>] to publish the pipeline definition to instead of printing it"},
	"destination-region": cliFlag{name: "s3-region", shortHand: "e",
		desc: "AWS region of the destination bucket"},
	// Running.
	"log-level": cliFlag{name: "log-level", shortHand: "l",
		desc: "Log level: \"error | warn | info | debug\" where only task stats are \n" +
			"output at using \"warn\""},
	"json-logs": cliFlag{name: "json-logs", shortHand: "J",
		desc: "Write logs as JSON"},
	"report": cliFlag{name: "report", shortHand: "o",
		desc: "Format of the run report: \"table | json\" (default table when STDOUT is a terminal, else json)"},
	"file": cliFlag{name: "file", shortHand: "f",
		desc: "File containing a rendered pipeline definition (.yaml or .json) to use \n" +
			"instead of the pipeline settings"},
	"storage-connection": cliFlag{name: "storage-connection", shortHand: "s",
		desc: "Name of the S3 connection used to read the source object"},
	"warehouse-connection": cliFlag{name: "warehouse-connection", shortHand: "w",
		desc: "Name of the warehouse connection used to execute SQL"},
	"stats": cliFlag{name: "stats", shortHand: "L",
		desc: "Number of seconds between dumping task statistics (use 0 to disable)"},
	"web-service": cliFlag{name: "web-service", shortHand: "W",
		desc: "Launch a web service to monitor the run"},
	"port": cliFlag{name: "port", shortHand: "P",
		desc: "Port to listen on"},
	// Connections.
	"connection-name": cliFlag{name: "connection-name", shortHand: "c",
		desc: "Connection name referred to by pipeline commands"},
	"force-connection": cliFlag{name: "force", shortHand: "f",
		desc: "Allow overwrite of existing connections"},
	"dsn": cliFlag{name: "dsn", shortHand: "d",
		desc: "Connect string to parse (takes priority over individual flags)"},
	"user": cliFlag{name: "user", shortHand: "u",
		desc: "Username to connect"},
	"password": cliFlag{name: "password", shortHand: "P",
		desc: "Password for the user"},
	"schema": cliFlag{name: "schema", shortHand: "s",
		desc: "Schema name"},
	"snowflake-database-name": cliFlag{name: "database-name", shortHand: "D",
		desc: "Database name"},
	"snowflake-account": cliFlag{name: "account", shortHand: "a",
		desc: "Snowflake account"},
	"snowflake-role": cliFlag{name: "role", shortHand: "r",
		desc: "Snowflake role (omit to use default)"},
	"snowflake-warehouse": cliFlag{name: "warehouse", shortHand: "w",
		desc: "Snowflake compute warehouse name (omit to use default)"},
	"s3-dsn": cliFlag{name: "dsn", shortHand: "d",
		desc: "DSN of the form s3://<bucket name>/<prefix> (takes priority over individual flags)"},
	"s3-bucket": cliFlag{name: "s3-bucket", shortHand: "b",
		desc: "AWS S3 bucket name (set AWS environment variables for access)"},
	"s3-prefix": cliFlag{name: "s3-prefix", shortHand: "P",
		desc: "AWS S3 bucket prefix"},
	"s3-region": cliFlag{name: "s3-region", shortHand: "R",
		desc: "AWS S3 bucket region"},
}

// addFlag add a flag to cobra.Command c, based on the type of targetVar (which must be a pointer).
// The name of the flag is looked up in map, cliFlags.
// When running in twelveFactorMode, the targetVar is populated using the value of environment variable for the supplied
// name, or if not set then the supplied default value is used.
// When NOT running in twelveFactorMode, the default value is fetched from config if it exists else the supplied
// defaultValue is applied.
// The flag is marked as required in Cobra based on the value of required.
// Supply a value for desc2 to append to the existing description found in map cliFlags.
func (f *cliFlags) addFlag(c *cobra.Command, targetVar interface{}, name string, defaultValue string, required bool, desc2 string) {
	v := reflect.ValueOf(targetVar)
	if v.Kind() != reflect.Ptr {
		fmt.Println("error adding flag: targetVar must be a pointer")
		os.Exit(1)
	}
	sw := f.getCliFlag(name, defaultValue, config.Main.Get) // get the cliFlag details, with defaults taken from config or the supplied defaultValue
	desc := sw.desc + desc2
	switch p := targetVar.(type) {
	case *string:
		if twelveFactorMode {
			*p = sw.val
		} else {
			c.Flags().StringVarP(p, sw.name, sw.shortHand, sw.val, desc)
		}
	case *bool:
		b := helper.GetTrueFalseStringAsBool(sw.val)
		if twelveFactorMode {
			*p = b
		} else {
			c.Flags().BoolVarP(p, sw.name, sw.shortHand, b, desc)
		}
	case *int:
		defaultInt := 0
		if sw.val != "" {
			i, err := strconv.Atoi(sw.val)
			if err != nil {
				fmt.Printf("the value for flag %q must be an integer: %v\n", sw.name, err)
				os.Exit(1)
			}
			defaultInt = i
		}
		if twelveFactorMode {
			*p = defaultInt
		} else {
			c.Flags().IntVarP(p, sw.name, sw.shortHand, defaultInt, desc)
		}
	default:
		panic("Error: unhandled CLI flag target value type")
	}
	if required && !twelveFactorMode { // if the flag is required...
		if sw.val != "" { // if a default from config satisfies it...
			mustSetFlag(c.Flags(), sw.name, sw.val)
		} else {
			_ = c.MarkFlagRequired(sw.name)
		}
	}
}

// getCliFlag fetches the value of name from the environment, when running in twelveFactorMode,
// else read the Main config file to find it.
// If a value cannot be found then use the supplied defaultValue in its place.
func (f *cliFlags) getCliFlag(name string, defaultValue string, fnGetConfig func(key string, out interface{}) error) cliFlag {
	s, ok := (*f)[name]
	if !ok {
		panic(fmt.Sprintf("unregistered CLI flag, %q", name))
	}
	if twelveFactorMode { // if we should read env vars...
		if err := helper.ReadValueFromEnv(flagNameToEnvVar(s.name), &s.val); err != nil { // if there's no value for the env var...
			s.val = defaultValue
		}
	} else { // else check the config file or apply default...
		if err := fnGetConfig(s.name, &s.val); err != nil || s.val == "" { // if there was no key found...
			s.val = defaultValue
		}
	}
	return s
}

// flagNameToEnvVar will form a sanitised environment variable name using constants.EnvVarPrefix.
func flagNameToEnvVar(name string) string {
	return constants.EnvVarPrefix + "_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func mustSetFlag(f *pflag.FlagSet, name string, val string) {
	if err := f.Set(name, val); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// pipelineFlags holds the raw values of the pipeline settings flags.
// Only values that are set override the settings loaded from file.
type pipelineFlags struct {
	file             string
	projectID        string
	bucket           string
	object           string
	partitionKeys    string
	stagingDataset   string
	transformDataset string
	reportingDataset string
	retries          string
	sqlDialect       string
	dagID            string
}

// addPipelineFlags registers the pipeline settings flags on c.
func addPipelineFlags(c *cobra.Command, p *pipelineFlags) {
	switches.addFlag(c, &p.projectID, "project-id", "", false, "")
	switches.addFlag(c, &p.bucket, "bucket", "", false, "")
	switches.addFlag(c, &p.object, "object", "", false, "")
	switches.addFlag(c, &p.partitionKeys, "partition-keys", "", false,
		fmt.Sprintf(" (default %q)", strings.Join(constants.DefaultPartitionKeys, ",")))
	switches.addFlag(c, &p.stagingDataset, "staging-dataset", "", false, "")
	switches.addFlag(c, &p.transformDataset, "transform-dataset", "", false, "")
	switches.addFlag(c, &p.reportingDataset, "reporting-dataset", "", false, "")
	switches.addFlag(c, &p.retries, "retries", "", false, fmt.Sprintf(" (default %v)", constants.DefaultRetries))
	switches.addFlag(c, &p.sqlDialect, "sql-dialect", "", false, "")
	switches.addFlag(c, &p.dagID, "dag-id", "", false, fmt.Sprintf(" (default %q)", constants.DagID))
	switches.addFlag(c, &p.file, "pipeline-file", "", false, "")
	if !twelveFactorMode {
		_ = c.MarkFlagFilename(switches["pipeline-file"].name, "yaml", "yml")
	}
}

// getPipelineConfig returns the default pipeline settings overlaid with, in order:
// the pipeline section of the main config file, the pipeline file and the flags that were supplied.
func getPipelineConfig(p *pipelineFlags, main pipelineConfigGetter) (*pipeline.Config, error) {
	cfg := pipeline.NewConfig()
	if main != nil && !twelveFactorMode {
		if err := main.GetPipelineConfig(&cfg); err != nil {
			return nil, err
		}
	}
	if p.file != "" {
		if err := config.LoadPipelineConfig(p.file, &cfg); err != nil {
			return nil, err
		}
	}
	setIfNotEmpty(&cfg.ProjectID, p.projectID)
	setIfNotEmpty(&cfg.BucketName, p.bucket)
	setIfNotEmpty(&cfg.SourceObjectPath, p.object)
	setIfNotEmpty(&cfg.StagingDataset, p.stagingDataset)
	setIfNotEmpty(&cfg.TransformDataset, p.transformDataset)
	setIfNotEmpty(&cfg.ReportingDataset, p.reportingDataset)
	setIfNotEmpty(&cfg.SqlDialect, p.sqlDialect)
	setIfNotEmpty(&cfg.DagID, p.dagID)
	if strings.TrimSpace(p.partitionKeys) != "" {
		cfg.PartitionKeys = helper.CsvToStringSliceTrimSpaces(p.partitionKeys)
	}
	if strings.TrimSpace(p.retries) != "" {
		i, err := strconv.Atoi(strings.TrimSpace(p.retries))
		if err != nil {
			return nil, fmt.Errorf("the value for retries must be an integer: %v", err)
		}
		cfg.Retries = i
	}
	return &cfg, nil
}

type pipelineConfigGetter interface {
	GetPipelineConfig(cfg *pipeline.Config) error
}

func setIfNotEmpty(target *string, val string) {
	if strings.TrimSpace(val) != "" {
		*target = strings.TrimSpace(val)
	}
}
