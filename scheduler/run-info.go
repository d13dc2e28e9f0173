package scheduler

import (
	"sort"
	"sync"
)

// RunInfo holds the latest snapshot of a run plus the means to stop it.
type RunInfo struct {
	Result RunResult
	Cancel func() `json:"-"`
}

// SafeMapRunInfo wraps a map of run id to RunInfo with locking, via Load() and Store() methods.
type SafeMapRunInfo struct {
	sync.RWMutex
	Internal map[string]RunInfo
}

func NewSafeMapRunInfo() *SafeMapRunInfo {
	return &SafeMapRunInfo{Internal: make(map[string]RunInfo)}
}

func (t *SafeMapRunInfo) Load(key string) (ri RunInfo, ok bool) {
	t.RLock()
	ri, ok = t.Internal[key]
	t.RUnlock()
	if ok {
		ri.Result = ri.Result.copy()
	}
	return
}

func (t *SafeMapRunInfo) Store(key string, value RunInfo) {
	t.Lock()
	t.Internal[key] = value
	t.Unlock()
}

func (t *SafeMapRunInfo) Delete(key string) {
	t.Lock()
	delete(t.Internal, key)
	t.Unlock()
}

// Keys returns the run ids in sorted order.
func (t *SafeMapRunInfo) Keys() []string {
	t.RLock()
	keys := make([]string, 0, len(t.Internal))
	for k := range t.Internal {
		keys = append(keys, k)
	}
	t.RUnlock()
	sort.Strings(keys)
	return keys
}

// updateResult replaces the result for key, keeping any cancel func already stored.
func (t *SafeMapRunInfo) updateResult(key string, r RunResult) {
	t.Lock()
	ri := t.Internal[key]
	ri.Result = r
	t.Internal[key] = ri
	t.Unlock()
}

// CancelAll stops every run that is still going.
func (t *SafeMapRunInfo) CancelAll() {
	t.RLock()
	defer t.RUnlock()
	for _, ri := range t.Internal {
		if ri.Cancel != nil && !ri.Result.IsFinished() {
			ri.Cancel()
		}
	}
}
