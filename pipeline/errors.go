package pipeline

import (
	"errors"
	"fmt"
)

// ConfigError is returned by Build when the pipeline config can't produce a valid graph.
// A ConfigError is fatal: nothing should be submitted for execution.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid pipeline config: %v", e.Reason)
}

func newConfigError(format string, a ...interface{}) error {
	return &ConfigError{Reason: fmt.Sprintf(format, a...)}
}

// IsConfigError returns true if err or anything it wraps is a *ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}
