package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/relloyd/healthpipe/actions"
	"github.com/relloyd/healthpipe/aws/s3"
	"github.com/relloyd/healthpipe/config"
	c "github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/rdbms"
	"github.com/relloyd/healthpipe/rdbms/shared"
)

// init will be called first due to the lexical order in which these functions are executed.
// This ensures the value of twelveFactorMode is set such that other init() functions that configure
// Cobra can do the job of processing all environment variables that would contain equivalent of the CLI flag
// structures used by the actions.
func init() {
	setupTwelveFactorMode()
}

// setupTwelveFactorMode will enable or disable 12 factor mode based on environment variable.
func setupTwelveFactorMode() {
	mode := os.Getenv(envVarTwelveFactorMode)
	lambdaMode = false
	if mode != "" { // if variable for 12factor mode is set and we should read env vars to determine actions...
		twelveFactorMode = true
		if strings.ToLower(mode) == "lambda" {
			lambdaMode = true
		}
	} else { // else 12factor mode should be off...
		twelveFactorMode = false // explicitly turn off this mode since tests may have turned it on while others require it off.
	}
}

const (
	envVarTwelveFactorMode = c.EnvVarPrefix + "_" + "12FACTOR_MODE"
	envVarCommand          = c.EnvVarPrefix + "_" + "COMMAND"
	envVarLogLevel         = c.EnvVarPrefix + "_" + "LOG_LEVEL"
	envVarStackDump        = c.EnvVarPrefix + "_" + "STACK_DUMP"
)

var (
	twelveFactorMode bool // true if os env var envVarTwelveFactorMode is set
	lambdaMode       bool // true if os env var envVarTwelveFactorMode is "lambda"
	twelveFactorVars = map[string]string{
		envVarCommand:   "",
		envVarLogLevel:  "",
		envVarStackDump: "",
		// Default connections.
		helper.GetDsnEnvVarName(c.ConnectionNameStorage):    "",
		helper.GetTypeEnvVarName(c.ConnectionNameStorage):   "",
		helper.GetRegionEnvVarName(c.ConnectionNameStorage): "",
		helper.GetDsnEnvVarName(c.ConnectionNameWarehouse):  "",
		helper.GetTypeEnvVarName(c.ConnectionNameWarehouse): "",
	}
	twelveFactorVarsSensitive = map[string]string{ // used to flag some of the above variables as being sensitive.
		helper.GetDsnEnvVarName(c.ConnectionNameStorage):   "",
		helper.GetDsnEnvVarName(c.ConnectionNameWarehouse): "",
	}
)

type twelveFactorAction struct {
	runnerFunc func() error
}

var twelveFactorActions = map[string]twelveFactorAction{
	"render":   {runnerFunc: runRender},
	"validate": {runnerFunc: runValidate},
	"run":      {runnerFunc: runRun},
}

func getConnectionLoader() actions.ConnectionLoader {
	if twelveFactorMode {
		return &TwelveFactorConnections{}
	}
	return config.Connections
}

func execute12FactorMode(acts map[string]twelveFactorAction) (err error) {
	logLevel := helper.ReadValueFromEnvWithDefault(envVarLogLevel, "warn") // fetch logLevel from env as this is not a persistent flag
	stackDump := helper.GetTrueFalseStringAsBool(os.Getenv(envVarStackDump)) || stackDumpOnPanic
	log := logger.NewLogger("healthpipe", logLevel, stackDump)
	log.Info("healthpipe is running in 12 Factor mode...")
	for k := range twelveFactorVars { // for each env variable that we need...
		twelveFactorVars[k] = os.Getenv(k)
		if _, sensitive := twelveFactorVarsSensitive[k]; !sensitive {
			log.Debug(k, "=", twelveFactorVars[k])
		} else {
			log.Debug(k, "=", "<obfuscated>")
		}
	}
	a, ok := acts[strings.ToLower(strings.TrimSpace(twelveFactorVars[envVarCommand]))]
	if !ok {
		err = fmt.Errorf("invalid command %q supplied via %v", twelveFactorVars[envVarCommand], envVarCommand)
		log.Error(err.Error())
		return
	}
	if err = a.runnerFunc(); err != nil {
		log.Error("Error: ", err)
	}
	return err
}

type TwelveFactorConnections struct{} // implements interfaces in module, actions.

// LoadConnection reads the DSN and type of connectionName from the environment, parses the DSN
// based on the type and returns the shared.ConnectionDetails.
// This mimics loading connections from the connections config file.
// Mock warehouse connections do not need a DSN.
func (t *TwelveFactorConnections) LoadConnection(connectionName string) (shared.ConnectionDetails, error) {
	var vDsn, vType string
	kType := helper.GetTypeEnvVarName(connectionName)
	if err := helper.ReadValueFromEnv(kType, &vType); err != nil { // if we can't read the connection type from the environment...
		return shared.ConnectionDetails{}, err
	}
	vType = strings.TrimSpace(vType)
	retval := shared.ConnectionDetails{LogicalName: connectionName, Data: make(map[string]string)}
	if strings.EqualFold(vType, c.ConnectionTypeMockWarehouse) {
		retval.Type = c.ConnectionTypeMockWarehouse
		return retval, nil
	}
	kDsn := helper.GetDsnEnvVarName(connectionName)
	if err := helper.ReadValueFromEnv(kDsn, &vDsn); err != nil { // if we cannot find the DSN in the environment...
		return shared.ConnectionDetails{}, err
	}
	switch strings.ToLower(vType) {
	case c.ConnectionTypeS3:
		var vRegion string
		kRegion := helper.GetRegionEnvVarName(connectionName)
		if err := helper.ReadValueFromEnv(kRegion, &vRegion); err != nil { // if we cannot find the bucket region in the environment...
			return shared.ConnectionDetails{}, fmt.Errorf("bucket region not found in environment variable %v", kRegion)
		}
		cn, err := s3.ParseDSN(vDsn, vRegion)
		if err != nil {
			return shared.ConnectionDetails{}, err
		}
		retval.Type = c.ConnectionTypeS3
		retval.Data = cn.GetMap(retval.Data)
	case c.ConnectionTypeSnowflake:
		cn, err := rdbms.SnowflakeParseDSN(vDsn)
		if err != nil {
			return shared.ConnectionDetails{}, err
		}
		// Rebuild the DSN again.
		dsn, err := rdbms.SnowflakeGetDSN(cn)
		if err != nil {
			return shared.ConnectionDetails{}, err
		}
		retval.Type = c.ConnectionTypeSnowflake
		retval.Data = shared.DsnConnectionDetails{Dsn: dsn}.GetMap(retval.Data)
	case c.ConnectionTypeGenericDsn:
		d := shared.DsnConnectionDetails{Dsn: vDsn}
		if _, err := d.Parse(); err != nil {
			return shared.ConnectionDetails{}, err
		}
		retval.Type = c.ConnectionTypeGenericDsn
		retval.Data = d.GetMap(retval.Data)
	default:
		return shared.ConnectionDetails{}, fmt.Errorf("unsupported connection type %q found in %v", vType, kType)
	}
	return retval, nil
}
