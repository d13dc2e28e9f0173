package stats

import (
	"testing"
	"time"

	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/scheduler"
)

func TestRunStatsManager(t *testing.T) {
	log := logger.NewLogger("healthpipe", "error", true)
	runs := scheduler.NewSafeMapRunInfo()
	start := time.Now().Add(-3 * time.Second)
	runs.Store("r1", scheduler.RunInfo{Result: scheduler.RunResult{
		RunID:  "r1",
		Status: scheduler.RunStatusRunning,
		Tasks: map[string]scheduler.TaskRun{
			"file_exists":    {State: scheduler.TaskStateSuccess, Attempts: 1, StartTime: start, EndTime: start.Add(2 * time.Second)},
			"load_csv_to_bq": {State: scheduler.TaskStateRunning, Attempts: 2, StartTime: start},
		},
	}})
	m := NewRunStats(log, runs, []string{"file_exists", "load_csv_to_bq", "success_task"}, SetStatsDumpFrequency(0))

	// Test 1 - stats follow the supplied order and pick up run state.
	got := m.GetStats()
	if len(got) != 3 {
		t.Fatalf("test 1: expected 3 stats; got %v", len(got))
	}
	if got[0].TaskID != "file_exists" || got[0].StatusText != "success" || got[0].ElapsedTimeSec != 2 {
		t.Fatalf("test 1: unexpected first stats %+v", got[0])
	}
	if got[1].StatusText != "running" || got[1].Attempts != 2 || got[1].ElapsedTimeSec < 3 || got[1].RunID != "r1" {
		t.Fatalf("test 1: unexpected second stats %+v", got[1])
	}
	if got[2].TaskID != "success_task" || got[2].StatusText != "pending" {
		t.Fatalf("test 1: expected the marker to be pending; got %+v", got[2])
	}

	// Test 2 - dumping is disabled with a zero frequency so stop is a no-op.
	m.StartDumping()
	m.StopDumping()

	// Test 3 - start and stop an enabled dumper.
	m = NewRunStats(log, runs, nil, SetStatsDumpFrequency(1))
	m.StartDumping()
	m.StartDumping() // already running
	m.StopDumping()
	if len(m.GetStats()) != 2 {
		t.Fatal("test 3: expected unregistered tasks to be added")
	}
}
