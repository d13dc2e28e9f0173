package pipeline

import (
	"strconv"

	c "github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/rdbms"
)

// Build returns the task graph for cfg.
// It has no side effects. Any error returned is a *ConfigError.
func Build(cfg Config) (*Graph, error) {
	d, err := validateConfig(cfg)
	if err != nil {
		return nil, err
	}
	head := []TaskNode{existenceCheckNode(cfg), bulkLoadNode(cfg)}
	edges := []Edge{{Upstream: c.TaskIdFileExists, Downstream: c.TaskIdLoadCsv}}
	nodes := head
	var tails []Edge
	for _, key := range cfg.PartitionKeys {
		pn, pe, err := partitionNodes(cfg, key, d)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, pn...)
		edges = append(edges, pe[:2]...)
		tails = append(tails, pe[2])
	}
	nodes = append(nodes, markerNode())
	edges = append(edges, tails...)
	g := &Graph{Nodes: nodes, Edges: edges}
	if err := g.Validate(); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	return g, nil
}

// validateConfig checks cfg and returns the dialect used to render statements.
func validateConfig(cfg Config) (rdbms.Dialect, error) {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	if !rdbms.ValidProjectName(cfg.ProjectID) {
		return nil, newConfigError("invalid project id %q", cfg.ProjectID)
	}
	for _, ds := range []string{cfg.StagingDataset, cfg.TransformDataset, cfg.ReportingDataset} {
		if !rdbms.ValidObjectName(ds) {
			return nil, newConfigError("invalid dataset name %q", ds)
		}
	}
	if cfg.Retries < 0 {
		return nil, newConfigError("retries must not be negative, got %v", cfg.Retries)
	}
	d, err := rdbms.GetDialect(cfg.SqlDialect)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	seen := make(map[string]string, len(cfg.PartitionKeys))
	for _, key := range cfg.PartitionKeys {
		if err := ValidatePartitionKey(key); err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
		slug := PartitionSlug(key)
		if prev, ok := seen[slug]; ok {
			return nil, newConfigError("partition keys %q and %q produce the same identifier %q", prev, key, slug)
		}
		seen[slug] = key
	}
	return d, nil
}

func existenceCheckNode(cfg Config) TaskNode {
	return TaskNode{
		ID:   c.TaskIdFileExists,
		Kind: KindExistenceCheck,
		Params: map[string]string{
			ParamBucket:       cfg.BucketName,
			ParamObject:       cfg.SourceObjectPath,
			ParamPollInterval: c.SensorPollInterval.String(),
			ParamTimeout:      c.SensorTimeout.String(),
			ParamMode:         c.SensorModePoke,
			ParamTriggerRule:  string(TriggerAllSuccess),
		},
	}
}

func bulkLoadNode(cfg Config) TaskNode {
	return TaskNode{
		ID:   c.TaskIdLoadCsv,
		Kind: KindBulkLoad,
		Params: map[string]string{
			ParamBucket:              cfg.BucketName,
			ParamSourceObjects:       cfg.SourceObjectPath,
			ParamDestination:         StagingTable(cfg).String(),
			ParamSourceFormat:        c.SourceFormatCsv,
			ParamSkipLeadingRows:     strconv.Itoa(c.CsvHeaderRowsSkipped),
			ParamFieldDelimiter:      c.CsvFieldDelimiter,
			ParamWriteDisposition:    c.WriteDispositionTruncate,
			ParamAutodetect:          "true",
			ParamAllowJaggedRows:     "true",
			ParamIgnoreUnknownValues: "true",
			ParamTriggerRule:         string(TriggerAllSuccess),
		},
	}
}

// partitionNodes returns the table and view nodes for key plus the edges
// load >> table, table >> view and view >> marker, in that order.
func partitionNodes(cfg Config, key string, d rdbms.Dialect) ([]TaskNode, []Edge, error) {
	tableSql, err := TableStatement(cfg, key, d)
	if err != nil {
		return nil, nil, &ConfigError{Reason: err.Error()}
	}
	viewSql, err := ViewStatement(cfg, key, d)
	if err != nil {
		return nil, nil, &ConfigError{Reason: err.Error()}
	}
	slug := PartitionSlug(key)
	table := TaskNode{
		ID:   slug + c.TaskSuffixTable,
		Kind: KindCreatePartitionTable,
		Params: map[string]string{
			ParamQuery:        tableSql,
			ParamUseLegacySql: "false",
			ParamDestination:  TransformTable(cfg, key).String(),
			ParamPartitionKey: key,
			ParamTriggerRule:  string(TriggerAllSuccess),
		},
	}
	view := TaskNode{
		ID:   slug + c.TaskSuffixView,
		Kind: KindCreatePartitionView,
		Params: map[string]string{
			ParamQuery:        viewSql,
			ParamUseLegacySql: "false",
			ParamDestination:  ReportingView(cfg, key).String(),
			ParamPartitionKey: key,
			ParamTriggerRule:  string(TriggerAllSuccess),
		},
	}
	edges := []Edge{
		{Upstream: c.TaskIdLoadCsv, Downstream: table.ID},
		{Upstream: table.ID, Downstream: view.ID},
		{Upstream: view.ID, Downstream: c.TaskIdSuccess},
	}
	return []TaskNode{table, view}, edges, nil
}

// markerNode joins every partition. It only succeeds when all views succeed.
func markerNode() TaskNode {
	return TaskNode{
		ID:     c.TaskIdSuccess,
		Kind:   KindMarker,
		Params: map[string]string{ParamTriggerRule: string(TriggerAllSuccess)},
	}
}
