package scheduler

import (
	"encoding/json"
	"fmt"
	"time"
)

type TaskState uint32

const (
	TaskStatePending TaskState = iota + 1
	TaskStateRunning
	TaskStateSuccess
	TaskStateFailed
	TaskStateUpstreamFailed
)

var taskStateNames = map[TaskState]string{
	TaskStatePending:        "pending",
	TaskStateRunning:        "running",
	TaskStateSuccess:        "success",
	TaskStateFailed:         "failed",
	TaskStateUpstreamFailed: "upstream_failed",
}

func (s TaskState) String() string {
	if v, ok := taskStateNames[s]; ok {
		return v
	}
	return fmt.Sprintf("TaskState(%d)", uint32(s))
}

func (s TaskState) MarshalJSON() ([]byte, error) {
	v, ok := taskStateNames[s]
	if !ok {
		return nil, fmt.Errorf("unhandled TaskState value %v in custom MarshalJSON() conversion", uint32(s))
	}
	return json.Marshal(v)
}

// IsTerminal returns true once a task can no longer change state.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateSuccess || s == TaskStateFailed || s == TaskStateUpstreamFailed
}

type RunStatus uint32

const (
	RunStatusRunning RunStatus = iota + 1
	RunStatusSuccess
	RunStatusFailed
	RunStatusShutdown
)

var runStatusNames = map[RunStatus]string{
	RunStatusRunning:  "running",
	RunStatusSuccess:  "success",
	RunStatusFailed:   "failed",
	RunStatusShutdown: "shutdown by user",
}

func (s RunStatus) String() string {
	if v, ok := runStatusNames[s]; ok {
		return v
	}
	return fmt.Sprintf("RunStatus(%d)", uint32(s))
}

func (s RunStatus) MarshalJSON() ([]byte, error) {
	v, ok := runStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("unhandled RunStatus value %v in custom MarshalJSON() conversion", uint32(s))
	}
	return json.Marshal(v)
}

// TaskRun is the outcome of one task in a run.
type TaskRun struct {
	State     TaskState `json:"state"`
	Attempts  int       `json:"attempts"`
	StartTime time.Time `json:"startTime,omitempty"`
	EndTime   time.Time `json:"endTime,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// RunResult is a snapshot of a pipeline run.
type RunResult struct {
	RunID     string             `json:"runId"`
	DagID     string             `json:"dagId"`
	Status    RunStatus          `json:"status"`
	StartTime time.Time          `json:"startTime"`
	EndTime   time.Time          `json:"endTime"`
	Tasks     map[string]TaskRun `json:"tasks"`
}

// IsFinished returns true if the run has stopped.
func (r *RunResult) IsFinished() bool {
	return r.Status != RunStatusRunning
}

func (r RunResult) copy() RunResult {
	tasks := make(map[string]TaskRun, len(r.Tasks))
	for k, v := range r.Tasks {
		tasks[k] = v
	}
	r.Tasks = tasks
	return r
}
