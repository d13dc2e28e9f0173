package components

import (
	"fmt"

	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/pipeline"
	"github.com/relloyd/healthpipe/rdbms"
	"github.com/relloyd/healthpipe/rdbms/shared"
)

// Registry maps task kinds to the operator that executes them.
type Registry map[pipeline.Kind]Operator

type RegistryConfig struct {
	Log     logger.Logger    `errorTxt:"logger" mandatory:"yes"`
	Storage StorageFactory   `errorTxt:"storage" mandatory:"yes"`
	Db      shared.Connector `errorTxt:"warehouse connection" mandatory:"yes"`
	Dialect rdbms.Dialect    `errorTxt:"SQL dialect" mandatory:"yes"`
}

// NewRegistry returns a Registry with an operator for every task kind.
func NewRegistry(cfg RegistryConfig) (Registry, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	sqlJob := &SqlJob{Log: cfg.Log, Db: cfg.Db}
	return Registry{
		pipeline.KindExistenceCheck:       &ExistenceSensor{Log: cfg.Log, Storage: cfg.Storage},
		pipeline.KindBulkLoad:             &CsvLoader{Log: cfg.Log, Storage: cfg.Storage, Db: cfg.Db, Dialect: cfg.Dialect},
		pipeline.KindCreatePartitionTable: sqlJob,
		pipeline.KindCreatePartitionView:  sqlJob,
		pipeline.KindMarker:               Marker{},
	}, nil
}

// Get returns the operator registered for kind.
func (r Registry) Get(kind pipeline.Kind) (Operator, error) {
	op, ok := r[kind]
	if !ok {
		return nil, fmt.Errorf("no operator registered for task kind %v", kind)
	}
	return op, nil
}
