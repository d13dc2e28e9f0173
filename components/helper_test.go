package components

import (
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/pipeline"
)

var testLog = logger.NewLogger("components-test", "error", false)

func testGraph() *pipeline.Graph {
	cfg := pipeline.NewConfig()
	cfg.ProjectID = "proj"
	cfg.BucketName = "bucket"
	cfg.SourceObjectPath = "data/health.csv"
	cfg.PartitionKeys = []string{"USA", "India"}
	cfg.SqlDialect = "snowflake"
	g, err := pipeline.Build(cfg)
	if err != nil {
		panic(err)
	}
	return g
}

func testNode(id string) pipeline.TaskNode {
	n, ok := testGraph().Node(id)
	if !ok {
		panic("missing test node " + id)
	}
	return n
}
