package cmd

import (
	"fmt"
	"os"

	"github.com/relloyd/healthpipe/actions"
	"github.com/relloyd/healthpipe/aws/s3"
	"github.com/relloyd/healthpipe/config"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/rdbms"
	"github.com/relloyd/healthpipe/rdbms/shared"
	"github.com/spf13/cobra"
)

var configConnCmd = &cobra.Command{
	Use:   "connections",
	Short: "Configure connection details",
	Long: fmt.Sprintf(`Configure connections for use by the run command where:

- Connections are stored in file %q`, config.Connections.FullPath),
}

var configConnAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a connection",
	Long:  `Add a logical connection (warehouse or S3 bucket) for use with the run command.`,
}

// S3

var configConnS3 = actions.ConnectionConfig{}
var s3Conn = s3.AwsS3Bucket{}
var s3Dsn string

var configConnAddS3Cmd = &cobra.Command{
	Use:   "s3",
	Short: "Add an AWS S3 bucket",
	Long: fmt.Sprintf(`Add an AWS S3 bucket to the config store %q.

Provide a URL or supply individual flags.
Trailing slashes are trimmed and cleaned up internally.
The URL takes precedence and should be of the form:

s3://<bucket name>/<prefix>`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		b, err := getS3Bucket(s3Dsn, s3Conn)
		if err != nil {
			return err
		}
		configConnS3.ConfigFile = getConnectionGetterSetter()
		configConnS3.ConnDetails = b
		return actions.RunConnectionAdd(&configConnS3)
	},
}

// getS3Bucket returns the bucket parsed from dsn if it is set, else b.
func getS3Bucket(dsn string, b s3.AwsS3Bucket) (s3.AwsS3Bucket, error) {
	if dsn == "" {
		return b, nil
	}
	return s3.ParseDSN(dsn, b.Region)
}

// Snowflake

var configConnSnowflake = actions.ConnectionConfig{}
var snowflakeConn = rdbms.SnowflakeConnectionDetails{}
var snowflakeDsn string

var configConnAddSnowflakeCmd = &cobra.Command{
	Use:   "snowflake",
	Short: "Add a Snowflake warehouse connection",
	Long: fmt.Sprintf(`Add a Snowflake connection to the config store %q
by providing a DSN of the form:

snowflake://<user>:<password>@<account>/<database-name>?schema=<schema>&warehouse=<warehouse>&role=<role>

or by supplying individual flags.`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		d, err := getSnowflakeConnection(snowflakeDsn, snowflakeConn)
		if err != nil {
			return err
		}
		configConnSnowflake.ConfigFile = getConnectionGetterSetter()
		configConnSnowflake.ConnDetails = d
		return actions.RunConnectionAdd(&configConnSnowflake)
	},
}

// getSnowflakeConnection returns the details parsed from dsn if it is set, else d.
func getSnowflakeConnection(dsn string, d rdbms.SnowflakeConnectionDetails) (rdbms.SnowflakeConnectionDetails, error) {
	if dsn == "" {
		return d, nil
	}
	p, err := rdbms.SnowflakeParseDSN(dsn)
	if err != nil {
		return d, err
	}
	return *p, nil
}

// Generic DSN

var configConnDsn = actions.ConnectionConfig{}
var dsnConn = actions.DsnConnection{}

var configConnAddDsnCmd = &cobra.Command{
	Use:   "dsn",
	Short: "Add a generic database connection",
	Long: fmt.Sprintf(`Add a database connection to the config store %q
by providing any URL understood by github.com/xo/dburl, for example:

postgres://<user>:<password>@<host>:<port>/<database>

The SQL dialect of a dsn warehouse cannot be detected, so supply --sql-dialect
when running the pipeline against it.`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		configConnDsn.ConfigFile = getConnectionGetterSetter()
		configConnDsn.ConnDetails = &dsnConn
		return actions.RunConnectionAdd(&configConnDsn)
	},
}

// List and remove

var configConnListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all connections",
	Long: fmt.Sprintf(`List connections stored in config store %q
by printing them all to STDOUT with passwords redacted`,
		config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.RunConnectionList(config.Connections, cmd.OutOrStdout())
	},
}

var connRemoveCfg = actions.ConnectionConfig{}

var configConnRemoveCmd = &cobra.Command{
	Use:     "remove",
	Aliases: []string{"rm", "del", "delete"},
	Short:   "Remove a connection",
	Long:    fmt.Sprintf("Remove a connection from config file %q", config.Connections.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		connRemoveCfg.ConfigFile = getConnectionGetterSetter()
		return actions.RunConnectionRemove(&connRemoveCfg)
	},
}

// getConnectionGetterSetter returns the connections config file.
// Connections cannot be saved when running in twelveFactorMode.
var getConnectionGetterSetter = func() actions.ConfigGetterSetter {
	if twelveFactorMode {
		fmt.Printf("Error: connections cannot be configured when %v is set (supply them using %v and %v instead)\n",
			envVarTwelveFactorMode,
			helper.GetTypeEnvVarName("<connection-name>"),
			helper.GetDsnEnvVarName("<connection-name>"))
		os.Exit(1)
	}
	return config.Connections
}

var _ actions.ConnectionLister = config.Connections
var _ shared.ConnectionGetter = config.Connections

func init() {
	configCmd.AddCommand(configConnCmd)
	configConnCmd.AddCommand(configConnAddCmd)
	configConnCmd.AddCommand(configConnListCmd)
	configConnCmd.AddCommand(configConnRemoveCmd)
	configConnAddCmd.AddCommand(configConnAddS3Cmd)
	configConnAddCmd.AddCommand(configConnAddSnowflakeCmd)
	configConnAddCmd.AddCommand(configConnAddDsnCmd)

	configConnAddS3Cmd.Flags().SortFlags = false
	switches.addFlag(configConnAddS3Cmd, &configConnS3.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddS3Cmd, &configConnS3.Force, "force-connection", "", false, "")
	switches.addFlag(configConnAddS3Cmd, &s3Dsn, "s3-dsn", "", false, "")
	switches.addFlag(configConnAddS3Cmd, &s3Conn.Name, "s3-bucket", "", false, "")
	switches.addFlag(configConnAddS3Cmd, &s3Conn.Prefix, "s3-prefix", "", false, "")
	switches.addFlag(configConnAddS3Cmd, &s3Conn.Region, "s3-region", "eu-west-1", false, "")

	configConnAddSnowflakeCmd.Flags().SortFlags = false
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflake.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddSnowflakeCmd, &configConnSnowflake.Force, "force-connection", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &snowflakeDsn, "dsn", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &snowflakeConn.Account, "snowflake-account", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &snowflakeConn.User, "user", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &snowflakeConn.Password, "password", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &snowflakeConn.DBName, "snowflake-database-name", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &snowflakeConn.Schema, "schema", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &snowflakeConn.Warehouse, "snowflake-warehouse", "", false, "")
	switches.addFlag(configConnAddSnowflakeCmd, &snowflakeConn.RoleName, "snowflake-role", "", false, "")

	configConnAddDsnCmd.Flags().SortFlags = false
	switches.addFlag(configConnAddDsnCmd, &configConnDsn.LogicalName, "connection-name", "", true, "")
	switches.addFlag(configConnAddDsnCmd, &configConnDsn.Force, "force-connection", "", false, "")
	switches.addFlag(configConnAddDsnCmd, &dsnConn.Dsn, "dsn", "", true, "")

	configConnRemoveCmd.Flags().StringVarP(&connRemoveCfg.LogicalName, "connection-name", "c", "",
		"The connection name to remove")
	_ = configConnRemoveCmd.MarkFlagRequired("connection-name")
	configConnRemoveCmd.SilenceUsage = true
}
