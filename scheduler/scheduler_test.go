package scheduler

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relloyd/healthpipe/components"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/pipeline"
	"golang.org/x/net/context"
)

var testLog = logger.NewLogger("scheduler-test", "error", false)

func buildGraph(t *testing.T, keys ...string) *pipeline.Graph {
	cfg := pipeline.NewConfig()
	cfg.ProjectID = "proj"
	cfg.BucketName = "bucket"
	cfg.SourceObjectPath = "health.csv"
	cfg.PartitionKeys = keys
	g, err := pipeline.Build(cfg)
	if err != nil {
		t.Fatalf("unable to build graph: %v", err)
	}
	return g
}

// operators returns a registry where every kind runs fn.
func operators(fn components.OperatorFunc) components.Registry {
	return components.Registry{
		pipeline.KindExistenceCheck:       fn,
		pipeline.KindBulkLoad:             fn,
		pipeline.KindCreatePartitionTable: fn,
		pipeline.KindCreatePartitionView:  fn,
		pipeline.KindMarker:               fn,
	}
}

type callCounter struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *callCounter) record(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[id]++
	return c.calls[id]
}

func (c *callCounter) get(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[id]
}

func TestRunAllSucceed(t *testing.T) {
	g := buildGraph(t, "USA", "India")
	calls := &callCounter{}
	runs := NewSafeMapRunInfo()
	s := &Scheduler{Log: testLog, Retries: 1, DagID: "test", Runs: runs, Operators: operators(func(ctx context.Context, n pipeline.TaskNode) error {
		calls.record(n.ID)
		return nil
	})}
	res, err := s.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != RunStatusSuccess || res.RunID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	for _, n := range g.Nodes {
		tr := res.Tasks[n.ID]
		if tr.State != TaskStateSuccess || tr.Attempts != 1 || calls.get(n.ID) != 1 {
			t.Fatalf("task %v: unexpected run %+v with %v calls", n.ID, tr, calls.get(n.ID))
		}
	}
	ri, ok := runs.Load(res.RunID)
	if !ok || ri.Result.Status != RunStatusSuccess || len(runs.Keys()) != 1 {
		t.Fatalf("expected the run to be registered, got %+v", ri)
	}
	b, err := json.Marshal(ri.Result)
	if err != nil {
		t.Fatalf("unable to marshal result: %v", err)
	}
	var m map[string]interface{}
	_ = json.Unmarshal(b, &m)
	if m["status"] != "success" {
		t.Fatalf("expected status success in JSON, got %v", string(b))
	}
}

func TestRunRespectsDependencies(t *testing.T) {
	g := buildGraph(t, "USA", "India", "Japan")
	var mu sync.Mutex
	finished := map[string]bool{}
	var violations int32
	s := &Scheduler{Log: testLog, Operators: operators(func(ctx context.Context, n pipeline.TaskNode) error {
		mu.Lock()
		for _, up := range g.Upstream(n.ID) {
			if !finished[up] {
				atomic.AddInt32(&violations, 1)
			}
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		finished[n.ID] = true
		mu.Unlock()
		return nil
	})}
	if _, err := s.Run(context.Background(), g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&violations) != 0 {
		t.Fatalf("%v tasks started before their upstream tasks finished", violations)
	}
}

func TestRunPartitionsInParallel(t *testing.T) {
	g := buildGraph(t, "USA", "India")
	started := make(chan string, 2)
	release := make(chan struct{})
	s := &Scheduler{Log: testLog, Operators: operators(func(ctx context.Context, n pipeline.TaskNode) error {
		if n.Kind != pipeline.KindCreatePartitionTable {
			return nil
		}
		started <- n.ID
		select {
		case <-release:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("partition tables did not run concurrently")
		}
	})}
	go func() {
		<-started
		<-started
		close(release)
	}()
	if _, err := s.Run(context.Background(), g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunRetriesFailedTasks(t *testing.T) {
	g := buildGraph(t, "USA")
	calls := &callCounter{}
	s := &Scheduler{Log: testLog, Retries: 1, Operators: operators(func(ctx context.Context, n pipeline.TaskNode) error {
		if n.ID == "load_csv_to_bq" && calls.record(n.ID) == 1 {
			return errors.New("transient")
		}
		return nil
	})}
	res, err := s.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("expected the retry to succeed, got %v", err)
	}
	if got := res.Tasks["load_csv_to_bq"].Attempts; got != 2 {
		t.Fatalf("expected 2 attempts, got %v", got)
	}
}

func TestRunPartitionFailureIsContained(t *testing.T) {
	g := buildGraph(t, "USA", "India")
	calls := &callCounter{}
	s := &Scheduler{Log: testLog, Retries: 2, DagID: "health", Operators: operators(func(ctx context.Context, n pipeline.TaskNode) error {
		calls.record(n.ID)
		if n.ID == "usa_health_data" {
			return errors.New("bad sql")
		}
		return nil
	})}
	res, err := s.Run(context.Background(), g)
	if err == nil {
		t.Fatal("expected the run to fail")
	}
	var jf *JobFailure
	if !errors.As(err, &jf) || jf.TaskID != "usa_health_data" || jf.Attempts != 3 {
		t.Fatalf("expected JobFailure for usa_health_data after 3 attempts, got %v", err)
	}
	want := map[string]TaskState{
		"file_exists":       TaskStateSuccess,
		"load_csv_to_bq":    TaskStateSuccess,
		"usa_health_data":   TaskStateFailed,
		"usa_view":          TaskStateUpstreamFailed,
		"india_health_data": TaskStateSuccess,
		"india_view":        TaskStateSuccess,
		"success_task":      TaskStateUpstreamFailed,
	}
	for id, state := range want {
		if got := res.Tasks[id].State; got != state {
			t.Fatalf("task %v: expected %v, got %v", id, state, got)
		}
	}
	if calls.get("usa_view") != 0 || calls.get("success_task") != 0 {
		t.Fatal("tasks downstream of the failure should not run")
	}
	if res.Status != RunStatusFailed {
		t.Fatalf("expected failed run, got %v", res.Status)
	}
}

func TestRunSensorTimeoutStopsEverything(t *testing.T) {
	g := buildGraph(t, "USA", "India")
	calls := &callCounter{}
	s := &Scheduler{Log: testLog, Operators: operators(func(ctx context.Context, n pipeline.TaskNode) error {
		calls.record(n.ID)
		if n.Kind == pipeline.KindExistenceCheck {
			return components.ErrUpstreamNotReady
		}
		return nil
	})}
	res, err := s.Run(context.Background(), g)
	if !errors.Is(err, components.ErrUpstreamNotReady) {
		t.Fatalf("expected ErrUpstreamNotReady, got %v", err)
	}
	for _, n := range g.Nodes[1:] {
		if res.Tasks[n.ID].State != TaskStateUpstreamFailed || calls.get(n.ID) != 0 {
			t.Fatalf("task %v should not have run: %+v", n.ID, res.Tasks[n.ID])
		}
	}
}

func TestRunOneSuccessTriggerRule(t *testing.T) {
	g := &pipeline.Graph{
		Nodes: []pipeline.TaskNode{
			{ID: "start", Kind: pipeline.KindMarker},
			{ID: "a", Kind: pipeline.KindBulkLoad},
			{ID: "b", Kind: pipeline.KindMarker},
			{ID: "join", Kind: pipeline.KindMarker, Params: map[string]string{pipeline.ParamTriggerRule: "one_success"}},
		},
		Edges: []pipeline.Edge{
			{Upstream: "start", Downstream: "a"},
			{Upstream: "start", Downstream: "b"},
			{Upstream: "a", Downstream: "join"},
			{Upstream: "b", Downstream: "join"},
		},
	}
	s := &Scheduler{Log: testLog, Operators: operators(func(ctx context.Context, n pipeline.TaskNode) error {
		if n.ID == "a" {
			return errors.New("boom")
		}
		return nil
	})}
	res, err := s.Run(context.Background(), g)
	if err != nil {
		t.Fatalf("expected join to succeed with one upstream success, got %v", err)
	}
	if res.Tasks["join"].State != TaskStateSuccess || res.Tasks["a"].State != TaskStateFailed {
		t.Fatalf("unexpected states: %+v", res.Tasks)
	}
}

func TestRunCancelled(t *testing.T) {
	g := buildGraph(t, "USA")
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{Log: testLog, Operators: operators(func(c context.Context, n pipeline.TaskNode) error {
		if n.Kind == pipeline.KindExistenceCheck {
			cancel()
			<-c.Done()
			return c.Err()
		}
		return nil
	})}
	res, err := s.Run(ctx, g)
	if err == nil || res.Status != RunStatusShutdown {
		t.Fatalf("expected shutdown, got status %v and err %v", res.Status, err)
	}
}

func TestRunMissingOperator(t *testing.T) {
	g := buildGraph(t, "USA")
	s := &Scheduler{Log: testLog, Operators: components.Registry{}}
	res, err := s.Run(context.Background(), g)
	if err == nil || res.Tasks["file_exists"].State != TaskStateFailed {
		t.Fatalf("expected failure for missing operators, got %v", err)
	}
}
