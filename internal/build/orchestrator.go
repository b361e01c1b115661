// Package build converts a directory of source documents into the static
// layout the document store reads: docs/<pk>/doc.json, per-document assets
// and docs/docs-db.json.
package build

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/metrics"
	"github.com/dgallion1/docview/internal/parser"
)

// Options controls a build.
type Options struct {
	SrcDir  string
	OutDir  string
	Workers int
}

// Report summarizes a finished build.
type Report struct {
	Jobs []JobSnapshot `json:"jobs"`
	Rows []ast.DocRow  `json:"rows"`
}

// Failed returns the jobs that did not complete.
func (r *Report) Failed() []JobSnapshot {
	var failed []JobSnapshot
	for _, j := range r.Jobs {
		if j.Status != StatusCompleted {
			failed = append(failed, j)
		}
	}
	return failed
}

// Orchestrator runs a build with a bounded pool of workers.
type Orchestrator struct {
	opts    Options
	jobs    *JobStore
	log     *slog.Logger
	metrics *metrics.Collector
}

func NewOrchestrator(opts Options, m *metrics.Collector, log *slog.Logger) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Orchestrator{
		opts:    opts,
		jobs:    NewJobStore(),
		log:     log,
		metrics: m,
	}
}

// Run converts every supported file under SrcDir. A file that fails is
// reported in its job and left out of the index; it does not fail the build.
// Errors are returned only for problems with the directories themselves.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	found, err := o.discover()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(o.opts.OutDir, "docs"), 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	queue := make(chan *Job, len(found))
	for _, job := range found {
		queue <- job
	}
	close(queue)

	var wg sync.WaitGroup
	for range min(o.opts.Workers, max(len(found), 1)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := NewWorker(o.opts.OutDir, o.log)
			for job := range queue {
				if ctx.Err() != nil {
					job.AddError(ctx.Err().Error())
					job.SetStatus(StatusFailed, "cancelled")
					continue
				}
				w.Process(ctx, job)
			}
		}()
	}
	wg.Wait()

	snaps := o.jobs.Snapshots()
	rows := Rows(snaps)
	if err := o.writeIndex(rows); err != nil {
		return nil, err
	}
	for _, s := range snaps {
		o.metrics.BuildJob(string(s.Status))
	}

	report := &Report{Jobs: snaps, Rows: rows}
	o.log.Info("build finished", "documents", len(rows), "failed", len(report.Failed()))
	return report, nil
}

// discover walks SrcDir for supported files. Files inside a document's asset
// directory are treated as assets, not documents.
func (o *Orchestrator) discover() ([]*Job, error) {
	var jobs []*Job
	err := filepath.WalkDir(o.opts.SrcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != o.opts.SrcDir && isAssetDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !parser.IsSupportedExtension(path) {
			return nil
		}
		rel, err := filepath.Rel(o.opts.SrcDir, path)
		if err != nil {
			return err
		}
		job := newJob(PKFor(rel), path, filepath.Base(path))
		if !o.jobs.Put(job) {
			existing := o.jobs.Get(job.PK)
			o.log.Warn("duplicate pk skipped", "pk", job.PK, "source", path, "kept", existing.Source)
			return nil
		}
		jobs = append(jobs, job)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", o.opts.SrcDir, err)
	}
	return jobs, nil
}

// isAssetDir reports whether dir sits next to a supported document of the
// same base name.
func isAssetDir(dir string) bool {
	for ext := range parser.SupportedExtensions {
		if st, err := os.Stat(dir + ext); err == nil && !st.IsDir() {
			return true
		}
	}
	return false
}

// PKFor derives a primary key from a source path relative to the content
// root: the extension is dropped and path separators and spaces become "-".
func PKFor(rel string) string {
	rel = filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
	return strings.NewReplacer("/", "-", " ", "-").Replace(rel)
}

// Rows builds the list rows of completed jobs, newest date first, then by
// title.
func Rows(snaps []JobSnapshot) []ast.DocRow {
	rows := []ast.DocRow{}
	for _, s := range snaps {
		if s.Status != StatusCompleted {
			continue
		}
		rows = append(rows, ast.DocRow{Title: s.Title, Date: s.Date, Tags: s.Tags, PK: s.PK})
	}
	slices.SortStableFunc(rows, func(a, b ast.DocRow) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	return rows
}

func (o *Orchestrator) writeIndex(rows []ast.DocRow) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(o.opts.OutDir, "docs", "docs-db.json"), data); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Job returns a job by pk.
func (o *Orchestrator) Job(pk string) *Job {
	return o.jobs.Get(pk)
}
