package actions

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/scheduler"
)

func serve(t *testing.T, h http.Handler, url string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	body := map[string]interface{}{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("%v: response is not JSON: %v", url, err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("%v: expected JSON content type; got %q", url, ct)
	}
	return rec.Code, body
}

func TestWebHandlers(t *testing.T) {
	log := logger.NewLogger("healthpipe", "error", false)
	runs := scheduler.NewSafeMapRunInfo()
	cancelled := false
	runs.Store("run-a", scheduler.RunInfo{
		Result: scheduler.RunResult{RunID: "run-a", DagID: "health_data_pipeline", Status: scheduler.RunStatusRunning,
			Tasks: map[string]scheduler.TaskRun{"file_exists": {State: scheduler.TaskStateRunning, Attempts: 1}}},
		Cancel: func() { cancelled = true },
	})
	runs.Store("run-b", scheduler.RunInfo{
		Result: scheduler.RunResult{RunID: "run-b", DagID: "health_data_pipeline", Status: scheduler.RunStatusSuccess},
	})
	chanStop := make(chan string, 1)
	r := newRouter(log, runs, chanStop)

	// Health.
	code, body := serve(t, r, "/health")
	if code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: unexpected response %v %v", code, body)
	}
	// List is sorted by run id.
	code, body = serve(t, r, "/runs")
	list, _ := body["runs"].([]interface{})
	if code != http.StatusOK || len(list) != 2 {
		t.Fatalf("runs: unexpected response %v %v", code, body)
	}
	first := list[0].(map[string]interface{})
	if first["runId"] != "run-a" || first["runStatus"] != "running" {
		t.Fatalf("runs: unexpected first item %v", first)
	}
	// Status of a known run.
	code, body = serve(t, r, "/runs/run-a/status")
	run, _ := body["run"].(map[string]interface{})
	if code != http.StatusOK || run == nil {
		t.Fatalf("status: unexpected response %v %v", code, body)
	}
	tasks := run["tasks"].(map[string]interface{})
	if tasks["file_exists"].(map[string]interface{})["state"] != "running" {
		t.Fatalf("status: unexpected tasks %v", tasks)
	}
	// Status of a missing run.
	code, body = serve(t, r, "/runs/nope/status")
	if code != http.StatusNotFound || body["status"] != "error" {
		t.Fatalf("missing status: unexpected response %v %v", code, body)
	}
	// Stopping a finished run is refused.
	code, _ = serve(t, r, "/runs/run-b/stop")
	if code != http.StatusBadRequest {
		t.Fatalf("stop finished: expected 400; got %v", code)
	}
	// Stopping a running run cancels it.
	code, body = serve(t, r, "/runs/run-a/stop")
	if code != http.StatusOK || !cancelled || body["runId"] != "run-a" {
		t.Fatalf("stop: unexpected response %v %v cancelled=%v", code, body, cancelled)
	}
	// Stop the server twice without blocking.
	serve(t, r, "/stop")
	serve(t, r, "/stop")
	select {
	case <-chanStop:
	case <-time.After(time.Second):
		t.Fatal("expected a stop signal")
	}
}

func TestPrintRunResultTable(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &scheduler.RunResult{
		RunID:     "abc",
		DagID:     "health_data_pipeline",
		Status:    scheduler.RunStatusFailed,
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
		Tasks: map[string]scheduler.TaskRun{
			"file_exists":    {State: scheduler.TaskStateSuccess, Attempts: 1, StartTime: start, EndTime: start.Add(time.Second)},
			"load_csv_to_bq": {State: scheduler.TaskStateFailed, Attempts: 2, Error: "boom"},
		},
	}
	buf := &bytes.Buffer{}
	if err := printRunResult(buf, r, []string{"file_exists", "load_csv_to_bq", "missing"}, OutputFormatTable); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected title, header and 2 rows; got:\n%v", buf.String())
	}
	if lines[0] != "Run abc of health_data_pipeline: failed (2s)" {
		t.Fatalf("unexpected title %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "file_exists") || !strings.Contains(lines[2], "1s") {
		t.Fatalf("unexpected row %q", lines[2])
	}
	if !strings.Contains(lines[3], "failed") || !strings.HasSuffix(lines[3], "boom") {
		t.Fatalf("unexpected row %q", lines[3])
	}
}
