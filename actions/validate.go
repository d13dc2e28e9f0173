package actions

import (
	"errors"
	"fmt"
	"io"

	c "github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/pipeline"
)

type ValidateConfig struct {
	Pipeline       *pipeline.Config // used unless DefinitionFile is set
	DefinitionFile string           // optional rendered definition to check instead
	Output         io.Writer
}

// RunValidate builds or loads the task graph without running anything and reports its size.
func RunValidate(cfg *ValidateConfig) (*pipeline.Graph, error) {
	if cfg == nil {
		return nil, errors.New("nil pointer to validate config supplied")
	}
	var g *pipeline.Graph
	var err error
	dagID := c.DagID
	if cfg.DefinitionFile != "" {
		d, err := pipeline.LoadDefinition(cfg.DefinitionFile)
		if err != nil {
			return nil, err
		}
		if g, err = d.Graph(); err != nil {
			return nil, err
		}
		dagID = d.DagID
	} else {
		if cfg.Pipeline == nil {
			return nil, errors.New("supply pipeline settings or a definition file to validate")
		}
		if g, err = pipeline.Build(*cfg.Pipeline); err != nil {
			return nil, err
		}
		if cfg.Pipeline.DagID != "" {
			dagID = cfg.Pipeline.DagID
		}
	}
	partitions := 0
	for _, n := range g.Nodes {
		if n.Kind == pipeline.KindCreatePartitionTable {
			partitions++
		}
	}
	_, err = fmt.Fprintf(writerOrStdout(cfg.Output), "Pipeline %q is valid: %v tasks, %v dependencies, %v partitions\n",
		dagID, len(g.Nodes), len(g.Edges), partitions)
	return g, err
}
