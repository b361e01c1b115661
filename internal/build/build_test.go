package build

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/google/uuid"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := newJob("a", "src/a.md", "a.md")
	if job.Status != StatusQueued {
		t.Fatalf("expected status %q, got %q", StatusQueued, job.Status)
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing"},
		{StatusWriting, "writing"},
		{StatusCompleted, "done"},
	}
	for _, tr := range transitions {
		before := job.UpdatedAt
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_SnapshotIsDetached(t *testing.T) {
	job := newJob("a", "src/a.md", "a.md")
	job.AddError("first")
	job.SetMeta("T", "2024-01-01", []string{"x"})

	snap := job.Snapshot()
	job.AddError("second")
	snap.Tags[0] = "changed"

	if len(snap.Errors) != 1 {
		t.Errorf("expected 1 error in snapshot, got %d", len(snap.Errors))
	}
	if job.Tags[0] != "x" {
		t.Errorf("expected job tags to be unaffected, got %v", job.Tags)
	}

	empty := newJob("b", "b.md", "b.md").Snapshot()
	if empty.Errors == nil || empty.Tags == nil {
		t.Error("expected non-nil slices in snapshot")
	}
}

func TestJobStore_RejectsDuplicatePK(t *testing.T) {
	store := NewJobStore()
	if !store.Put(newJob("a", "a.md", "a.md")) {
		t.Fatal("expected first put to succeed")
	}
	if store.Put(newJob("a", "a.txt", "a.txt")) {
		t.Error("expected duplicate pk to be rejected")
	}
	if got := store.Get("a").Source; got != "a.md" {
		t.Errorf("expected first job kept, got %q", got)
	}
	if store.Get("missing") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestPKFor(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"intro.md", "intro"},
		{"guides/setup.md", "guides-setup"},
		{"My Notes.txt", "My-Notes"},
	}
	for _, tt := range tests {
		if got := PKFor(tt.rel); got != tt.want {
			t.Errorf("PKFor(%q): expected %q, got %q", tt.rel, tt.want, got)
		}
	}
}

func TestRows_SortedByDateThenTitle(t *testing.T) {
	snaps := []JobSnapshot{
		{PK: "old", Title: "Old", Date: "2023-05-01", Status: StatusCompleted},
		{PK: "b", Title: "Beta", Date: "2024-01-01", Status: StatusCompleted},
		{PK: "a", Title: "Alpha", Date: "2024-01-01", Status: StatusCompleted},
		{PK: "broken", Title: "Broken", Date: "2025-01-01", Status: StatusFailed},
	}
	rows := Rows(snaps)
	want := []string{"a", "b", "old"}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i, pk := range want {
		if rows[i].PK != pk {
			t.Errorf("row[%d]: expected pk %q, got %q", i, pk, rows[i].PK)
		}
	}
	if rows := Rows(nil); rows == nil {
		t.Error("expected empty, non-nil rows")
	}
}

func TestOrchestrator_Run(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	writeFile(t, filepath.Join(src, "intro.md"), "---\ntitle: Intro\ndate: 2024-01-01\ntags: [x]\n---\n# Hello\n\n![cat](img/cat.png)\n")
	writeFile(t, filepath.Join(src, "intro", "img", "cat.png"), "png-bytes")
	writeFile(t, filepath.Join(src, "intro", "notes.md"), "asset, not a document")
	writeFile(t, filepath.Join(src, "guides", "setup.txt"), "Step one.\n\nStep two.")
	writeFile(t, filepath.Join(src, "broken.docx"), "not a zip archive")
	writeFile(t, filepath.Join(src, "ignored.exe"), "binary")

	o := NewOrchestrator(Options{SrcDir: src, OutDir: out, Workers: 3}, nil, testLogger())
	report, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(report.Jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(report.Jobs))
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].PK != "broken" {
		t.Fatalf("expected only broken to fail, got %+v", failed)
	}
	if len(failed[0].Errors) == 0 {
		t.Error("expected failed job to record an error")
	}

	intro := o.Job("intro").Snapshot()
	if intro.Status != StatusCompleted {
		t.Fatalf("expected intro completed, got %q (%v)", intro.Status, intro.Errors)
	}
	if intro.Assets != 2 {
		t.Errorf("expected 2 assets copied, got %d", intro.Assets)
	}
	if intro.ContentHash == "" {
		t.Error("expected a content hash")
	}

	data, err := os.ReadFile(filepath.Join(out, "docs", "intro", "doc.json"))
	if err != nil {
		t.Fatalf("read doc.json: %v", err)
	}
	var root ast.Node
	if err := json.Unmarshal(data, &root); err != nil {
		t.Fatalf("decode doc.json: %v", err)
	}
	info, err := ast.InfoOf(&root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Title != "Intro" || info.Date != "2024-01-01" {
		t.Errorf("unexpected title block %q %q", info.Title, info.Date)
	}
	if ContentHashHex(data) != intro.ContentHash {
		t.Error("expected content hash of the written doc.json")
	}

	if _, err := os.Stat(filepath.Join(out, "docs", "intro", "img", "cat.png")); err != nil {
		t.Errorf("expected asset to be copied: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(out, "docs", "docs-db.json"))
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	var rows []ast.DocRow
	if err := json.Unmarshal(index, &rows); err != nil {
		t.Fatalf("decode index: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].PK != "intro" || rows[1].PK != "guides-setup" {
		t.Errorf("expected dated document first, got %q then %q", rows[0].PK, rows[1].PK)
	}
	if rows[1].Title != "setup" {
		t.Errorf("expected filename title, got %q", rows[1].Title)
	}
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.txt"), "hello")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(Options{SrcDir: src, OutDir: t.TempDir(), Workers: 1}, nil, testLogger())
	report, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Rows) != 0 {
		t.Errorf("expected no rows after cancellation, got %d", len(report.Rows))
	}
	if report.Jobs[0].Status != StatusFailed {
		t.Errorf("expected failed job, got %q", report.Jobs[0].Status)
	}
}

func TestOrchestrator_MissingSource(t *testing.T) {
	o := NewOrchestrator(Options{SrcDir: filepath.Join(t.TempDir(), "nope"), OutDir: t.TempDir()}, nil, testLogger())
	if _, err := o.Run(context.Background()); err == nil {
		t.Error("expected error for missing source directory")
	}
}

func TestRunner_OneBuildAtATime(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(src, "a.md"), "# A\n")

	r := NewRunner(Options{SrcDir: src, OutDir: out, Workers: 2}, nil, testLogger())
	if st := r.Status(); st.Running || st.Runs != 0 || st.StartedAt != nil {
		t.Fatalf("expected idle runner, got %+v", st)
	}

	done, ok := r.Start(context.Background())
	if !ok {
		t.Fatal("expected first build to start")
	}
	<-done

	st := r.Status()
	if st.Running {
		t.Error("expected build to have finished")
	}
	if st.Runs != 1 || st.Documents != 1 {
		t.Errorf("expected 1 run with 1 document, got %d runs and %d documents", st.Runs, st.Documents)
	}
	if st.FinishedAt == nil || st.Error != "" {
		t.Errorf("expected clean finish, got %+v", st)
	}
	if _, err := os.Stat(filepath.Join(out, "docs", "a", "doc.json")); err != nil {
		t.Errorf("expected doc.json: %v", err)
	}

	again, ok := r.Start(context.Background())
	if !ok {
		t.Fatal("expected a second build to start once the first finished")
	}
	<-again
	if st := r.Status(); st.Runs != 2 {
		t.Errorf("expected 2 runs, got %d", st.Runs)
	}
}

func TestRunner_RecordsError(t *testing.T) {
	r := NewRunner(Options{SrcDir: filepath.Join(t.TempDir(), "missing"), OutDir: t.TempDir()}, nil, testLogger())
	done, ok := r.Start(context.Background())
	if !ok {
		t.Fatal("expected build to start")
	}
	<-done
	if st := r.Status(); st.Error == "" {
		t.Error("expected error for missing source directory")
	}
}

func TestNewRunID(t *testing.T) {
	seen := make(map[string]bool)
	for range 20 {
		id := newRunID()
		parsed, err := uuid.Parse(id)
		if err != nil {
			t.Fatalf("expected a uuid, got %q: %v", id, err)
		}
		if parsed.Version() != 7 {
			t.Errorf("expected version 7, got %d", parsed.Version())
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
