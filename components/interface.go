package components

import (
	"github.com/pkg/errors"
	"github.com/relloyd/healthpipe/aws/s3"
	"github.com/relloyd/healthpipe/pipeline"
	"golang.org/x/net/context"
)

// ErrUpstreamNotReady is returned when an existence check times out before the object appears.
var ErrUpstreamNotReady = errors.New("upstream object not ready")

// Operator executes a single task node.
type Operator interface {
	Execute(ctx context.Context, node pipeline.TaskNode) error
}

// OperatorFunc adapts a function to Operator.
type OperatorFunc func(ctx context.Context, node pipeline.TaskNode) error

func (f OperatorFunc) Execute(ctx context.Context, node pipeline.TaskNode) error {
	return f(ctx, node)
}

// StorageFactory returns a client for the named bucket.
type StorageFactory func(bucket string) (s3.BasicClient, error)

// StaticStorage returns a StorageFactory that always returns client.
func StaticStorage(client s3.BasicClient) StorageFactory {
	return func(string) (s3.BasicClient, error) {
		return client, nil
	}
}
