package build

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"
)

// JobStatus represents the state of one document conversion.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusWriting   JobStatus = "writing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job tracks the conversion of a single source file.
type Job struct {
	mu sync.Mutex

	PK       string `json:"pk"`
	Source   string `json:"source"`
	Filename string `json:"filename"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Title string   `json:"title"`
	Date  string   `json:"date"`
	Tags  []string `json:"tags"`

	ContentHash string    `json:"content_hash,omitempty"`
	Assets      int       `json:"assets"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	errors []string
}

func newJob(pk, source, filename string) *Job {
	now := time.Now()
	return &Job{
		PK:        pk,
		Source:    source,
		Filename:  filename,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetMeta records the title block fields read from the parsed document.
func (j *Job) SetMeta(title, date string, tags []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Title = title
	j.Date = date
	j.Tags = tags
	j.UpdatedAt = time.Now()
}

// SetResult records what was written.
func (j *Job) SetResult(hash string, assets int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.Assets = assets
	j.UpdatedAt = time.Now()
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	PK          string    `json:"pk"`
	Source      string    `json:"source"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Tags        []string  `json:"tags"`
	ContentHash string    `json:"content_hash,omitempty"`
	Assets      int       `json:"assets"`
	Errors      []string  `json:"errors"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	tags := append([]string{}, j.Tags...)
	return JobSnapshot{
		PK:          j.PK,
		Source:      j.Source,
		Status:      j.Status,
		Phase:       j.Phase,
		Title:       j.Title,
		Date:        j.Date,
		Tags:        tags,
		ContentHash: j.ContentHash,
		Assets:      j.Assets,
		Errors:      errs,
	}
}

// JobStore is a thread-safe registry of the jobs in one build.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

// Put registers job. It reports false if a job with the same pk exists.
func (s *JobStore) Put(job *Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.PK]; ok {
		return false
	}
	s.jobs[job.PK] = job
	return true
}

func (s *JobStore) Get(pk string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[pk]
}

// Snapshots returns every job ordered by pk.
func (s *JobStore) Snapshots() []JobSnapshot {
	s.mu.Lock()
	jobs := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	snaps := make([]JobSnapshot, len(jobs))
	for i, j := range jobs {
		snaps[i] = j.Snapshot()
	}
	sort.Slice(snaps, func(a, b int) bool { return snaps[a].PK < snaps[b].PK })
	return snaps
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
