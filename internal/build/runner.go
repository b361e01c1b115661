package build

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/docview/internal/metrics"
	"github.com/google/uuid"
)

// RunStatus describes the current or most recent build.
type RunStatus struct {
	ID         string        `json:"id,omitempty"`
	Running    bool          `json:"running"`
	Runs       int           `json:"runs"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
	Error      string        `json:"error,omitempty"`
	Jobs       []JobSnapshot `json:"jobs"`
	Documents  int           `json:"documents"`
}

// Runner starts builds in the background, one at a time, and remembers the
// outcome of the last one.
type Runner struct {
	opts    Options
	metrics *metrics.Collector
	log     *slog.Logger

	mu       sync.Mutex
	current  *Orchestrator
	running  bool
	runs     int
	id       string
	started  time.Time
	finished time.Time
	last     *Report
	lastErr  string
}

func NewRunner(opts Options, m *metrics.Collector, log *slog.Logger) *Runner {
	return &Runner{opts: opts, metrics: m, log: log.With("component", "build")}
}

// Start launches a build unless one is already running. The returned channel
// is closed when the build finishes.
func (r *Runner) Start(ctx context.Context) (<-chan struct{}, bool) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, false
	}
	r.started = time.Now()
	r.id = newRunID()
	log := r.log.With("run", r.id)
	orch := NewOrchestrator(r.opts, r.metrics, log)
	r.current = orch
	r.running = true
	r.runs++
	r.finished = time.Time{}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		report, err := orch.Run(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		r.running = false
		r.finished = time.Now()
		r.last = report
		r.lastErr = ""
		if err != nil {
			r.lastErr = err.Error()
			log.Error("build failed", "error", err)
		}
	}()
	return done, true
}

// Status reports progress of a running build, or the last result.
func (r *Runner) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := RunStatus{ID: r.id, Running: r.running, Runs: r.runs, Error: r.lastErr, Jobs: []JobSnapshot{}}
	if !r.started.IsZero() {
		started := r.started
		st.StartedAt = &started
	}
	if !r.finished.IsZero() {
		finished := r.finished
		st.FinishedAt = &finished
	}
	switch {
	case r.running && r.current != nil:
		st.Jobs = r.current.jobs.Snapshots()
	case r.last != nil:
		st.Jobs = r.last.Jobs
		st.Documents = len(r.last.Rows)
	}
	return st
}

// newRunID returns a time-ordered id so runs sort by start.
func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
