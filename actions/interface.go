package actions

import (
	"github.com/relloyd/healthpipe/rdbms/shared"
)

type ConnectionLoader interface {
	LoadConnection(connectionName string) (shared.ConnectionDetails, error)
}

type ConfigGetterSetter interface {
	Get(key string, out interface{}) error
	Set(key string, val interface{}) error
	Delete(key string) error
}

// ConnectionValidator is implemented by the typed connection details that can be saved as a connection,
// e.g. s3.AwsS3Bucket and rdbms.SnowflakeConnectionDetails.
type ConnectionValidator interface {
	Parse() error
	GetMap(m map[string]string) map[string]string
	GetScheme() (string, error)
}
