package scheduler

import "fmt"

// JobFailure is returned once a task has failed on every attempt.
type JobFailure struct {
	TaskID   string
	Attempts int
	Err      error
}

func (e *JobFailure) Error() string {
	return fmt.Sprintf("task %v failed after %v attempt(s): %v", e.TaskID, e.Attempts, e.Err)
}

func (e *JobFailure) Unwrap() error {
	return e.Err
}
