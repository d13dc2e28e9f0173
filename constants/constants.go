package constants

import "time"

// Pipeline

const (
	DagID                       = "health_data_pipeline"
	DagDescription              = "Pipeline for loading and transforming health data from object storage to the warehouse"
	DagOwner                    = "healthpipe"
	DefaultRetries              = 1
	TaskIdFileExists            = "file_exists"
	TaskIdLoadCsv               = "load_csv_to_bq"
	TaskIdSuccess               = "success_task"
	TaskSuffixTable             = "_health_data"
	TaskSuffixView              = "_view"
	StagingTableName            = "global_data"
	PartitionColumnName         = "country"
	SensorPollInterval          = 30 * time.Second
	SensorTimeout               = 300 * time.Second
	SensorModePoke              = "poke"
	CsvHeaderRowsSkipped        = 1
	CsvFieldDelimiter           = ","
	SourceFormatCsv             = "CSV"
	WriteDispositionTruncate    = "WRITE_TRUNCATE"
	WriteDispositionAppend      = "WRITE_APPEND"
	LoaderInsertBatchSize       = 500
	LoaderSchemaSampleRows      = 1000
	TriggerRuleAllSuccess       = "all_success"
	TriggerRuleOneSuccess       = "one_success"
	EnvVarPrefix                = "HP" // prefixed for environment variables in twelveFactorMode
	ConnectionTypeS3            = "s3"
	ConnectionTypeSnowflake     = "snowflake"
	ConnectionTypeMockWarehouse = "mockWarehouse"
	ConnectionTypeGenericDsn    = "dsn"
	ConnectionNameStorage       = "storage"
	ConnectionNameWarehouse     = "warehouse"
	EmojiBang                   = "\U0001F4A5"
)

// DagTags are applied to every rendered pipeline definition.
var DagTags = []string{"bigquery", "gcs", "health-data"}

// DefaultPartitionKeys are the countries used when none are configured.
var DefaultPartitionKeys = []string{"USA", "India", "Germany", "Japan", "France", "Canada", "Italy"}
