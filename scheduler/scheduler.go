package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/healthpipe/components"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/pipeline"
	"github.com/rs/xid"
	"golang.org/x/net/context"
)

// OperatorGetter returns the operator for a task kind. components.Registry implements it.
type OperatorGetter interface {
	Get(kind pipeline.Kind) (components.Operator, error)
}

// Scheduler runs a pipeline graph on the local machine.
// Each task starts once all of its upstream tasks are terminal and its trigger rule is met.
// Failed tasks are retried Retries times without backoff.
type Scheduler struct {
	Log       logger.Logger
	Operators OperatorGetter
	Retries   int
	DagID     string
	Runs      *SafeMapRunInfo // optional registry that receives a snapshot on every state change
}

type run struct {
	s      *Scheduler
	g      *pipeline.Graph
	mu     sync.Mutex
	result RunResult
	done   map[string]chan struct{}
	errs   map[string]error
}

// Run executes g and blocks until every task is terminal.
// An error is returned if the sink task did not succeed. It wraps the first failure in topological order.
func (s *Scheduler) Run(ctx context.Context, g *pipeline.Graph) (*RunResult, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	if err = g.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r := &run{
		s: s,
		g: g,
		result: RunResult{
			RunID:     xid.New().String(),
			DagID:     s.DagID,
			Status:    RunStatusRunning,
			StartTime: time.Now(),
			Tasks:     make(map[string]TaskRun, len(g.Nodes)),
		},
		done: make(map[string]chan struct{}, len(g.Nodes)),
		errs: make(map[string]error, len(g.Nodes)),
	}
	for _, n := range g.Nodes {
		r.result.Tasks[n.ID] = TaskRun{State: TaskStatePending}
		r.done[n.ID] = make(chan struct{})
	}
	if s.Runs != nil {
		s.Runs.Store(r.result.RunID, RunInfo{Result: r.result.copy(), Cancel: cancel})
	}
	log := s.Log.WithField("runId", r.result.RunID)
	log.Info("starting run of ", len(g.Nodes), " tasks")
	wg := sync.WaitGroup{}
	for _, n := range g.Nodes {
		wg.Add(1)
		go func(n pipeline.TaskNode) {
			defer wg.Done()
			defer close(r.done[n.ID])
			r.runTask(ctx, log.WithField("task", n.ID), n)
		}(n)
	}
	wg.Wait()

	sinks := g.Sinks()
	r.mu.Lock()
	r.result.EndTime = time.Now()
	switch {
	case r.result.Tasks[sinks[0]].State == TaskStateSuccess:
		r.result.Status = RunStatusSuccess
	case ctx.Err() != nil:
		r.result.Status = RunStatusShutdown
	default:
		r.result.Status = RunStatusFailed
	}
	result := r.result.copy()
	cause := r.rootCause(order)
	r.mu.Unlock()
	r.publish()
	log.Info("run finished with status ", result.Status)
	switch result.Status {
	case RunStatusSuccess:
		return &result, nil
	case RunStatusShutdown:
		return &result, errors.Wrap(ctx.Err(), "run stopped")
	default:
		if cause == nil {
			cause = fmt.Errorf("task %v did not succeed", sinks[0])
		}
		return &result, errors.Wrapf(cause, "pipeline %v failed", s.DagID)
	}
}

// rootCause returns the first recorded task error in order. Callers must hold r.mu.
func (r *run) rootCause(order []string) error {
	for _, id := range order {
		if err := r.errs[id]; err != nil {
			return err
		}
	}
	return nil
}

func (r *run) runTask(ctx context.Context, log logger.Logger, n pipeline.TaskNode) {
	upstream := r.g.Upstream(n.ID)
	for _, id := range upstream {
		<-r.done[id]
	}
	if !r.triggerRuleMet(n, upstream) {
		log.Warn("not running ", n.ID, ": trigger rule ", n.TriggerRule(), " not met")
		r.setState(n.ID, func(t *TaskRun) { t.State = TaskStateUpstreamFailed })
		return
	}
	if err := ctx.Err(); err != nil {
		r.fail(n.ID, 0, err)
		return
	}
	op, err := r.s.Operators.Get(n.Kind)
	if err != nil {
		r.fail(n.ID, 0, err)
		return
	}
	r.setState(n.ID, func(t *TaskRun) {
		t.State = TaskStateRunning
		t.StartTime = time.Now()
	})
	maxAttempts := r.s.Retries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	attempt := 0
	for attempt < maxAttempts {
		attempt++
		r.setState(n.ID, func(t *TaskRun) { t.Attempts = attempt })
		log.Info("starting attempt ", attempt, " of ", maxAttempts)
		err = op.Execute(ctx, n)
		if err == nil {
			break
		}
		log.Error("attempt ", attempt, " failed: ", err)
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		r.fail(n.ID, attempt, err)
		return
	}
	r.setState(n.ID, func(t *TaskRun) {
		t.State = TaskStateSuccess
		t.EndTime = time.Now()
	})
	log.Info("task succeeded")
}

func (r *run) triggerRuleMet(n pipeline.TaskNode, upstream []string) bool {
	if len(upstream) == 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	succeeded := 0
	for _, id := range upstream {
		if r.result.Tasks[id].State == TaskStateSuccess {
			succeeded++
		}
	}
	switch n.TriggerRule() {
	case pipeline.TriggerOneSuccess:
		return succeeded > 0
	default:
		return succeeded == len(upstream)
	}
}

func (r *run) fail(id string, attempts int, err error) {
	jf := &JobFailure{TaskID: id, Attempts: attempts, Err: err}
	r.mu.Lock()
	r.errs[id] = jf
	r.mu.Unlock()
	r.setState(id, func(t *TaskRun) {
		t.State = TaskStateFailed
		t.Attempts = attempts
		t.EndTime = time.Now()
		t.Error = err.Error()
	})
}

func (r *run) setState(id string, fn func(t *TaskRun)) {
	r.mu.Lock()
	t := r.result.Tasks[id]
	fn(&t)
	r.result.Tasks[id] = t
	r.mu.Unlock()
	r.publish()
}

func (r *run) publish() {
	if r.s.Runs == nil {
		return
	}
	r.mu.Lock()
	snapshot := r.result.copy()
	r.mu.Unlock()
	r.s.Runs.updateResult(snapshot.RunID, snapshot)
}
