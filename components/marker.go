package components

import (
	"github.com/relloyd/healthpipe/pipeline"
	"golang.org/x/net/context"
)

// Marker does nothing. Its only purpose is to join upstream tasks.
type Marker struct{}

func (Marker) Execute(ctx context.Context, _ pipeline.TaskNode) error {
	return ctx.Err()
}
