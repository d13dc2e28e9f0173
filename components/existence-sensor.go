package components

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	c "github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/pipeline"
	"golang.org/x/net/context"
)

// ExistenceSensor polls object storage until the object named by the node exists or the timeout elapses.
type ExistenceSensor struct {
	Log     logger.Logger
	Storage StorageFactory
}

func (s *ExistenceSensor) Execute(ctx context.Context, node pipeline.TaskNode) error {
	if mode := node.Param(pipeline.ParamMode); mode != "" && mode != c.SensorModePoke {
		return fmt.Errorf("task %v: unsupported sensor mode %q", node.ID, mode)
	}
	bucket := node.Param(pipeline.ParamBucket)
	object := node.Param(pipeline.ParamObject)
	interval := helper.GetDurationFromString(node.Param(pipeline.ParamPollInterval), c.SensorPollInterval)
	timeout := helper.GetDurationFromString(node.Param(pipeline.ParamTimeout), c.SensorTimeout)
	client, err := s.Storage(bucket)
	if err != nil {
		return errors.Wrapf(err, "unable to open bucket %v", bucket)
	}
	log := s.Log.WithField("task", node.ID)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		ok, err := client.Exists(ctx, object)
		if err != nil {
			log.Warn("error checking for object ", object, " in bucket ", bucket, ": ", err)
		} else if ok {
			log.Info("found object ", object, " in bucket ", bucket)
			return nil
		} else {
			log.Debug("object ", object, " not found in bucket ", bucket, "; waiting ", interval)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.Wrapf(ErrUpstreamNotReady, "object %v not found in bucket %v after %v", object, bucket, timeout)
		case <-ticker.C:
		}
	}
}
