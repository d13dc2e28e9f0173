package actions

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/relloyd/healthpipe/aws/s3"
	"github.com/relloyd/healthpipe/components"
	"github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/pipeline"
	"github.com/relloyd/healthpipe/rdbms"
	"github.com/relloyd/healthpipe/scheduler"
	"github.com/relloyd/healthpipe/stats"
	"golang.org/x/net/context"
)

type RunConfig struct {
	LogLevel                  string `errorTxt:"log level" mandatory:"yes"`
	StackDumpOnPanic          bool
	JsonLogs                  bool
	Pipeline                  *pipeline.Config // used unless DefinitionFile is set
	DefinitionFile            string           // optional rendered definition to run instead
	Connections               ConnectionLoader `errorTxt:"connections" mandatory:"yes"`
	WarehouseConnection       string           `errorTxt:"warehouse connection name" mandatory:"yes"`
	StorageConnection         string           // name of the s3 connection, ignored if Storage is set
	Storage                   components.StorageFactory
	ReportFormat              string // table|json; defaults to table for terminals
	StatsDumpFrequencySeconds int    // 0 disables periodic task stats
	Output                    io.Writer
	WithWebService            bool
	Web                       *WebServerConfig
}

// RunPipeline executes the pipeline on the local scheduler against the configured warehouse and bucket.
// The run result is printed to cfg.Output and returned. An error is returned if any task failed.
// When cfg.WithWebService is set, run status is served over HTTP until the server is stopped.
func RunPipeline(ctx context.Context, cfg *RunConfig) (*scheduler.RunResult, error) {
	if cfg == nil {
		return nil, errors.New("nil pointer to run config supplied")
	}
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	if cfg.WithWebService && cfg.Web == nil {
		return nil, errors.New("web server config is required to run with a web service")
	}
	log := newLogger(cfg.LogLevel, cfg.JsonLogs, cfg.StackDumpOnPanic)
	out := writerOrStdout(cfg.Output)
	format, err := reportFormat(cfg.ReportFormat, out)
	if err != nil {
		return nil, err
	}
	// Resolve connections.
	warehouse, err := cfg.Connections.LoadConnection(cfg.WarehouseConnection)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load warehouse connection %q", cfg.WarehouseConnection)
	}
	g, dialect, dagID, retries, err := loadGraph(cfg, warehouse.Type)
	if err != nil {
		return nil, err
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	storage, err := getStorage(cfg)
	if err != nil {
		return nil, err
	}
	// Cancel the run on SIGINT.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	chanOS := make(chan os.Signal, 1)
	signal.Notify(chanOS, os.Interrupt)
	defer signal.Stop(chanOS)
	go func() {
		select {
		case <-chanOS:
			log.Warn("interrupt received, stopping run")
			cancel()
		case <-ctx.Done():
		}
	}()
	db, err := rdbms.OpenDbConnection(ctx, log, warehouse)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open warehouse connection %q", cfg.WarehouseConnection)
	}
	defer db.Close()
	registry, err := components.NewRegistry(components.RegistryConfig{Log: log, Storage: storage, Db: db, Dialect: dialect})
	if err != nil {
		return nil, err
	}
	runs := scheduler.NewSafeMapRunInfo()
	if cfg.WithWebService {
		srv, chanStopServer := runServer(log, cfg.Web, runs)
		defer func() {
			log.Info("run finished, the web server is still available until it is stopped")
			if err := waitForServer(log, srv, chanStopServer, runs); err != nil {
				log.Error("error shutting down web server: ", err)
			}
		}()
	}
	statsMgr := stats.NewRunStats(log, runs, order, stats.SetStatsDumpFrequency(cfg.StatsDumpFrequencySeconds))
	statsMgr.StartDumping()
	s := &scheduler.Scheduler{Log: log, Operators: registry, Retries: retries, DagID: dagID, Runs: runs}
	res, runErr := s.Run(ctx, g)
	statsMgr.StopDumping()
	if res != nil {
		if err := printRunResult(out, res, order, format); err != nil {
			log.Error("unable to print run result: ", err)
		}
	}
	return res, runErr
}

// loadGraph returns the graph to run plus the SQL dialect, DAG id and retry budget that go with it.
// The dialect follows the warehouse connection type. A dialect named by the pipeline settings or recorded in
// the definition file must match it, since the bulk load and the task statements run on the same warehouse.
func loadGraph(cfg *RunConfig, connectionType string) (g *pipeline.Graph, dialect rdbms.Dialect, dagID string, retries int, err error) {
	if cfg.DefinitionFile != "" {
		d, err := pipeline.LoadDefinition(cfg.DefinitionFile)
		if err != nil {
			return nil, nil, "", 0, err
		}
		requested := d.SqlDialect
		if requested == "" { // if the definition predates the dialect field it was rendered for the default...
			requested = rdbms.DialectBigQuery
		}
		if dialect, err = rdbms.GetDialectForConnection(connectionType, requested); err != nil {
			return nil, nil, "", 0, errors.Wrapf(err, "unable to run definition file %q", cfg.DefinitionFile)
		}
		g, err = d.Graph()
		return g, dialect, d.DagID, d.DefaultArgs.Retries, err
	}
	if cfg.Pipeline == nil {
		return nil, nil, "", 0, errors.New("supply pipeline settings or a definition file to run")
	}
	p := *cfg.Pipeline
	if dialect, err = rdbms.GetDialectForConnection(connectionType, p.SqlDialect); err != nil {
		return nil, nil, "", 0, &pipeline.ConfigError{Reason: err.Error()}
	}
	p.SqlDialect = dialect.Name()
	g, err = pipeline.Build(p)
	return g, dialect, p.DagID, p.Retries, err
}

// getStorage returns cfg.Storage if it is set, else a factory for the S3 storage connection.
func getStorage(cfg *RunConfig) (components.StorageFactory, error) {
	if cfg.Storage != nil {
		return cfg.Storage, nil
	}
	if cfg.StorageConnection == "" {
		return nil, errors.New("please supply a value for storage connection name")
	}
	d, err := cfg.Connections.LoadConnection(cfg.StorageConnection)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load storage connection %q", cfg.StorageConnection)
	}
	if d.Type != constants.ConnectionTypeS3 {
		return nil, fmt.Errorf("storage connection %q must be of type %v, got %q", cfg.StorageConnection, constants.ConnectionTypeS3, d.Type)
	}
	b := s3.NewAwsBucket(&d)
	return NewStorageFactory(b.Region, b.Prefix), nil
}
