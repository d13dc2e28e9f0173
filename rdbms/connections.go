package rdbms

import (
	"database/sql"
	"fmt"

	"github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/rdbms/shared"
	"golang.org/x/net/context"
)

// OpenDbConnection opens a database connection using the supplied ConnectionDetails struct in c.
func OpenDbConnection(ctx context.Context, log logger.Logger, c shared.ConnectionDetails) (db shared.Connector, err error) {
	log.Debug("opening connection type ", c.Type, " with logicalName ", c.LogicalName) // don't log password details in c.Data!
	switch c.Type {
	case constants.ConnectionTypeSnowflake:
		db, err = newSnowflakeConnection(ctx, log, shared.GetDsnConnectionDetails(&c))
	case constants.ConnectionTypeMockWarehouse:
		db = shared.NewMockConnector(log)
	case constants.ConnectionTypeGenericDsn:
		db, err = newConnectionWithDsn(ctx, log, shared.GetDsnConnectionDetails(&c))
	default:
		err = fmt.Errorf("unsupported database type, %q", c.Type)
	}
	return
}

// newConnectionWithDsn opens a connection for any URL supported by dburl.
// The driver named by the URL scheme must be linked into the binary.
func newConnectionWithDsn(ctx context.Context, log logger.Logger, d *shared.DsnConnectionDetails) (shared.Connector, error) {
	u, err := d.Parse()
	if err != nil {
		return nil, fmt.Errorf("error parsing DSN %q: %w", d.String(), err)
	}
	log.Info("Opening database connection: ", d)
	conn := &shared.HpConnection{DbType: u.OriginalScheme}
	conn.DbSql, err = sql.Open(u.Driver, u.DSN)
	if err != nil {
		return nil, err
	}
	if err = conn.DbSql.PingContext(ctx); err != nil {
		_ = conn.DbSql.Close()
		return nil, err
	}
	log.Info("Successful connection to: ", d)
	return conn, nil
}
