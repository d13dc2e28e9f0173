package components

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/pipeline"
	"github.com/relloyd/healthpipe/rdbms/shared"
	"golang.org/x/net/context"
)

// SqlJob executes the statement found in the node's query parameter as a single job.
type SqlJob struct {
	Log logger.Logger
	Db  shared.Connector
}

func (j *SqlJob) Execute(ctx context.Context, node pipeline.TaskNode) error {
	query := strings.TrimSpace(node.Param(pipeline.ParamQuery))
	if query == "" {
		return fmt.Errorf("task %v has no %v parameter", node.ID, pipeline.ParamQuery)
	}
	if helper.GetTrueFalseStringAsBool(node.Param(pipeline.ParamUseLegacySql)) {
		return fmt.Errorf("task %v: legacy SQL is not supported", node.ID)
	}
	log := j.Log.WithField("task", node.ID)
	log.Debug("executing SQL: ", query)
	if _, err := j.Db.ExecContext(ctx, query); err != nil {
		return errors.Wrapf(err, "error executing SQL for task %v", node.ID)
	}
	if dest := node.Param(pipeline.ParamDestination); dest != "" {
		log.Info("created ", dest)
	}
	return nil
}
