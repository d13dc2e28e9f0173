package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cevaris/ordered_map"
	c "github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/scheduler"
)

var DefaultStatsDumpFrequencySeconds = 5 // may be overridden by use of options in constructor below

type StatsFetcher interface {
	GetStats() []Stats
}

// RunLoader is implemented by scheduler.SafeMapRunInfo.
type RunLoader interface {
	Keys() []string
	Load(key string) (scheduler.RunInfo, bool)
}

// Stats is a point in time view of one task in a run.
type Stats struct {
	RunID          string `json:"runId"`
	TaskID         string `json:"taskId"`
	StatusText     string `json:"statusText"`
	StatusEmoji    string `json:"statusEmoji"`
	Attempts       int    `json:"attempts"`
	ElapsedTimeSec int    `json:"elapsedTimeSec"`
}

// String will format the stats for general logging.
func (s Stats) String() string {
	return fmt.Sprintf("Stats for %v %v %v attempts=%v elapsedTimeSec=%v",
		s.TaskID, s.StatusText, s.StatusEmoji, s.Attempts, s.ElapsedTimeSec)
}

// RunStatsManager periodically logs the state of every task in the runs it watches.
// Tasks are reported in the order supplied to the constructor.
type RunStatsManager struct {
	ticker              *time.Ticker
	tickerDone          chan struct{}
	tickerIsRunningFlag int32
	tickerFrequency     int
	mu                  sync.Mutex
	log                 logger.Logger
	runs                RunLoader
	mapTaskStats        *ordered_map.OrderedMap // task id to latest Stats
}

// SetStatsDumpFrequency returns a function that can be supplied as an option to constructor NewRunStats().
func SetStatsDumpFrequency(seconds int) func(t *RunStatsManager) {
	return func(t *RunStatsManager) {
		t.tickerFrequency = seconds
	}
}

// NewRunStats creates a RunStatsManager for the tasks in order.
// Optionally supply func SetStatsDumpFrequency() to override the default stats dump frequency.
func NewRunStats(log logger.Logger, runs RunLoader, order []string, options ...func(t *RunStatsManager)) *RunStatsManager {
	t := &RunStatsManager{log: log, runs: runs, tickerFrequency: DefaultStatsDumpFrequencySeconds}
	for _, option := range options {
		option(t)
	}
	t.tickerDone = make(chan struct{})
	t.mapTaskStats = ordered_map.NewOrderedMap()
	for _, id := range order {
		t.mapTaskStats.Set(id, Stats{TaskID: id, StatusText: scheduler.TaskStatePending.String()})
	}
	return t
}

func (t *RunStatsManager) StartDumping() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if atomic.LoadInt32(&t.tickerIsRunningFlag) == 1 {
		t.log.Debug("stats dumper ticker already running")
		return
	}
	if t.tickerFrequency <= 0 {
		t.log.Debug("stats dumper disabled")
		return
	}
	t.ticker = time.NewTicker(time.Second * time.Duration(t.tickerFrequency))
	atomic.StoreInt32(&t.tickerIsRunningFlag, 1)
	go func() {
		t.log.Debug("stats dumper ticker started")
		for {
			select {
			case <-t.tickerDone:
				t.log.Debug("stats dumper ticker stopped")
				return
			case <-t.ticker.C:
				t.mu.Lock()
				t.refresh()
				t.logStats()
				t.mu.Unlock()
			}
		}
	}()
}

// StopDumping will stop the ticker and dump the final stats,
// only if the ticker was already running via a call to StartDumping().
func (t *RunStatsManager) StopDumping() {
	if atomic.LoadInt32(&t.tickerIsRunningFlag) == 0 {
		return
	}
	t.tickerDone <- struct{}{} // cause the goroutine to exit (we can't close ticker.C)
	t.mu.Lock()
	defer t.mu.Unlock()
	atomic.StoreInt32(&t.tickerIsRunningFlag, 0)
	t.ticker.Stop()
	t.refresh()
	t.logStats()
}

// GetStats implements interface StatsFetcher{}.
func (t *RunStatsManager) GetStats() []Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.refresh()
	statsList := make([]Stats, 0, t.mapTaskStats.Len())
	iter := t.mapTaskStats.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		statsList = append(statsList, kv.Value.(Stats))
	}
	return statsList
}

// refresh copies the latest task states from the watched runs.
// Tasks that were not registered up front are added to the end.
func (t *RunStatsManager) refresh() {
	for _, id := range t.runs.Keys() {
		ri, ok := t.runs.Load(id)
		if !ok {
			continue
		}
		for taskID, tr := range ri.Result.Tasks {
			t.mapTaskStats.Set(taskID, renderStats(id, taskID, tr))
		}
	}
}

func (t *RunStatsManager) logStats() {
	iter := t.mapTaskStats.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		t.log.Warn(kv.Value.(Stats).String())
	}
}

func renderStats(runID string, taskID string, tr scheduler.TaskRun) Stats {
	var emoji string
	switch tr.State {
	case scheduler.TaskStateRunning:
		emoji = "\U0000231B" // hour glass
	case scheduler.TaskStateSuccess:
		emoji = "\U00002705" // green tick
	case scheduler.TaskStateFailed, scheduler.TaskStateUpstreamFailed:
		emoji = c.EmojiBang
	}
	elapsed := 0
	if !tr.StartTime.IsZero() {
		end := tr.EndTime
		if end.IsZero() {
			end = time.Now()
		}
		elapsed = int(end.Sub(tr.StartTime).Seconds())
	}
	return Stats{
		RunID:          runID,
		TaskID:         taskID,
		StatusText:     tr.State.String(),
		StatusEmoji:    emoji,
		Attempts:       tr.Attempts,
		ElapsedTimeSec: elapsed,
	}
}
