package rdbms

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/rdbms/shared"
	sf "github.com/snowflakedb/gosnowflake"
	"golang.org/x/net/context"
)

const snowflakeScheme = "snowflake://"

type SnowflakeConnectionDetails struct {
	Account   string `errorTxt:"Snowflake account" mandatory:"yes"`
	DBName    string `errorTxt:"Snowflake db name" mandatory:"yes"`
	Schema    string `errorTxt:"Snowflake schema" mandatory:"yes"`
	User      string `errorTxt:"Snowflake username" mandatory:"yes"`
	Password  string `errorTxt:"Snowflake password" mandatory:"yes"`
	Warehouse string `errorTxt:"Snowflake warehouse"`
	RoleName  string `errorTxt:"Snowflake role name"`
}

func (d SnowflakeConnectionDetails) String() string {
	return fmt.Sprintf("%v:%v@%v/%v?schema=%v&warehouse=%v&role=%v",
		d.User,
		"xxxxxxx",
		d.Account,
		d.DBName,
		d.Schema,
		d.Warehouse,
		d.RoleName,
	)
}

func (d SnowflakeConnectionDetails) GetScheme() (string, error) {
	return constants.ConnectionTypeSnowflake, nil
}

// Parse checks the mandatory fields are set and that a DSN can be built from them.
func (d SnowflakeConnectionDetails) Parse() error {
	if err := helper.ValidateStructIsPopulated(d); err != nil {
		return err
	}
	_, err := SnowflakeGetDSN(&d)
	return err
}

// GetMap saves the DSN for d into m so it can be persisted as generic connection data.
// An empty map is returned if the DSN cannot be built, so call Parse() first.
func (d SnowflakeConnectionDetails) GetMap(m map[string]string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	dsn, err := SnowflakeGetDSN(&d)
	if err == nil {
		m[shared.DefaultDsnConnectionKeyNames.Dsn] = dsn
	}
	return m
}

// newSnowflakeConnection opens and pings the Snowflake database connection specified in d.
func newSnowflakeConnection(ctx context.Context, log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	if _, err := SnowflakeParseDSN(d.Dsn); err != nil {
		return nil, err
	}
	conn := &shared.HpConnection{DbType: constants.ConnectionTypeSnowflake}
	var err error
	conn.DbSql, err = sql.Open("snowflake", strings.TrimPrefix(d.Dsn, snowflakeScheme))
	if err != nil {
		return nil, err
	}
	if err = conn.DbSql.PingContext(ctx); err != nil {
		_ = conn.DbSql.Close()
		return nil, fmt.Errorf("unable to connect to Snowflake: %w", err)
	}
	log.Info("Successful database connection to Snowflake.")
	return conn, nil
}

// SnowflakeGetDSN constructs a DSN based on SnowflakeConnectionDetails.
// The prefix 'snowflake://' is added to the DSN.
func SnowflakeGetDSN(c *SnowflakeConnectionDetails) (string, error) {
	cfg := &sf.Config{
		Account:   c.Account,
		Database:  c.DBName,
		Schema:    c.Schema,
		User:      c.User,
		Password:  c.Password,
		Warehouse: c.Warehouse,
		Role:      c.RoleName,
	}
	dsn, err := sf.DSN(cfg)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(dsn, snowflakeScheme) {
		dsn = snowflakeScheme + dsn
	}
	return dsn, nil
}

// SnowflakeParseDSN converts a Snowflake DSN into native connection details.
// The DSN must start with 'snowflake://'.
func SnowflakeParseDSN(d string) (*SnowflakeConnectionDetails, error) {
	if !strings.HasPrefix(d, snowflakeScheme) {
		return nil, errors.New("unsupported Snowflake DSN format")
	}
	cfg, err := sf.ParseDSN(strings.TrimPrefix(d, snowflakeScheme))
	if err != nil {
		return nil, err
	}
	retval := &SnowflakeConnectionDetails{
		User:      cfg.User,
		Password:  cfg.Password,
		Schema:    cfg.Schema,
		DBName:    cfg.Database,
		Account:   cfg.Account,
		RoleName:  cfg.Role,
		Warehouse: cfg.Warehouse,
	}
	if cfg.Region != "" { // if region exists in the parsed config...
		// Add it to our account settings.
		retval.Account = fmt.Sprintf("%v.%v", retval.Account, cfg.Region)
	}
	return retval, nil
}
