package report

import (
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"
)

// DebounceInterval delays progress flushes of the index.
const DebounceInterval = 100 * time.Millisecond

// IndexWriter provides thread-safe updates to the report index.
type IndexWriter struct {
	mu    sync.Mutex
	path  string
	index *Index
	clock clock.PassiveClock
	log   *zap.SugaredLogger

	// Debouncing for progress updates
	pending map[int]*ScenarioUpdate
	timer   *time.Timer
	closed  bool
}

// NewIndexWriter creates a new IndexWriter. clk stamps the index; a nil
// clock uses the real one. A nil logger discards write errors.
func NewIndexWriter(outputDir string, index *Index, clk clock.PassiveClock, log *zap.Logger) *IndexWriter {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IndexWriter{
		path:    filepath.Join(outputDir, "report.json"),
		index:   index,
		clock:   clk,
		log:     log.Sugar(),
		pending: make(map[int]*ScenarioUpdate),
	}
}

// Start marks the run as started.
func (w *IndexWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	w.index.Status = StatusRunning
	w.index.StartTime = now

	w.flushLocked()
}

// UpdateScenario updates a scenario entry in the index.
// Terminal states flush immediately; progress updates are debounced.
func (w *IndexWriter) UpdateScenario(id int, update *ScenarioUpdate) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[id] = update

	if update.Status.IsTerminal() {
		w.flushLocked()
		return
	}

	if w.timer == nil && !w.closed {
		w.timer = time.AfterFunc(DebounceInterval, w.flush)
	}
}

// Skip marks every scenario that has not started as skipped.
func (w *IndexWriter) Skip() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.applyPendingLocked()
	for i := range w.index.Scenarios {
		s := &w.index.Scenarios[i]
		if s.Status == StatusPending {
			s.Status = StatusSkipped
			s.UpdateSeq++
		}
	}
	w.flushLocked()
}

// End marks the run as complete. failed forces a failed run status, as
// for an aborted run or cancellations that count as failures.
func (w *IndexWriter) End(failed bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.applyPendingLocked()
	now := w.clock.Now()
	w.index.EndTime = &now
	w.index.Status = w.computeRunStatus()
	if failed {
		w.index.Status = StatusFailed
	}

	w.flushLocked()
}

// Close stops the debounce timer and flushes any pending updates.
func (w *IndexWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	w.flushLocked()
}

// GetIndex returns the current index (for reading).
func (w *IndexWriter) GetIndex() *Index {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.index
}

// flush applies pending updates and writes to disk.
func (w *IndexWriter) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

// flushLocked flushes while holding the lock.
func (w *IndexWriter) flushLocked() {
	w.applyPendingLocked()

	w.index.UpdateSeq++
	w.index.LastUpdated = w.clock.Now()
	w.index.Summary = w.computeSummary()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	if err := atomicWriteJSON(w.path, w.index); err != nil {
		w.log.Warnf("write %s: %v", w.path, err)
	}
}

func (w *IndexWriter) applyPendingLocked() {
	for id, update := range w.pending {
		w.applyUpdate(id, update)
	}
	w.pending = make(map[int]*ScenarioUpdate)
}

// applyUpdate applies a ScenarioUpdate to the index.
func (w *IndexWriter) applyUpdate(id int, update *ScenarioUpdate) {
	for i := range w.index.Scenarios {
		if w.index.Scenarios[i].ID != id {
			continue
		}
		s := &w.index.Scenarios[i]
		s.Status = update.Status
		if update.StartTime != nil {
			s.StartTime = update.StartTime
		}
		if update.EndTime != nil {
			s.EndTime = update.EndTime
		}
		if update.Duration != nil {
			s.Duration = update.Duration
		}
		s.Steps = update.Steps
		if update.Category != "" {
			s.Category = update.Category
		}
		if update.Error != nil {
			s.Error = update.Error
		}
		s.UpdateSeq++
		now := w.clock.Now()
		s.LastUpdated = &now
		return
	}
}

// computeSummary calculates summary from scenario statuses.
func (w *IndexWriter) computeSummary() Summary {
	var s Summary
	for _, sc := range w.index.Scenarios {
		s.Total++
		switch sc.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
		case StatusPending:
			s.Pending++
		}
	}
	return s
}

// computeRunStatus determines overall run status from scenarios.
func (w *IndexWriter) computeRunStatus() Status {
	hasFailure := false
	allComplete := true

	for _, sc := range w.index.Scenarios {
		if sc.Status == StatusFailed {
			hasFailure = true
		}
		if !sc.Status.IsTerminal() {
			allComplete = false
		}
	}

	if !allComplete {
		return StatusRunning
	}
	if hasFailure {
		return StatusFailed
	}
	return StatusPassed
}
