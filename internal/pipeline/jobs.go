package pipeline

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobKind selects which worker serves a job.
type JobKind string

const (
	JobParse    JobKind = "parse"
	JobTokenize JobKind = "tokenize"
)

// JobStatus represents the state of an async job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCanceled  JobStatus = "canceled"
)

func (s JobStatus) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// Progress mirrors the worker's progress events: bytes for parse jobs,
// nodes for tokenize jobs.
type Progress struct {
	Done  int64 `json:"done"`
	Total int64 `json:"total"`
}

// Job tracks the state of a single queued request. Worker events fold
// into it under the mutex; HTTP handlers read consistent copies via
// Snapshot.
type Job struct {
	mu sync.Mutex

	ID   string  `json:"job_id"`
	Kind JobKind `json:"kind"`

	Status JobStatus `json:"status"`
	Stage  string    `json:"stage,omitempty"`

	// Parse jobs.
	Filename  string `json:"filename,omitempty"`
	Format    string `json:"format,omitempty"`
	DocID     string `json:"doc_id,omitempty"`
	NodeCount int    `json:"node_count,omitempty"`

	// Tokenize jobs.
	ModelID     string `json:"model_id,omitempty"`
	TotalTokens int    `json:"total_tokens,omitempty"`

	Progress Progress `json:"progress"`

	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	canceled bool
	cancelFn context.CancelFunc
}

func newJob(kind JobKind) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetRunning marks the job picked up by a worker.
func (j *Job) SetRunning(stage string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusRunning
	j.Stage = stage
	j.UpdatedAt = time.Now()
}

// SetStage records the worker's current phase.
func (j *Job) SetStage(stage string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = stage
	j.UpdatedAt = time.Now()
}

// SetProgress folds a progress event.
func (j *Job) SetProgress(done, total int64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Done = done
	j.Progress.Total = total
	j.UpdatedAt = time.Now()
}

// SetParseResult completes a parse job.
func (j *Job) SetParseResult(docID string, nodeCount int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.DocID = docID
	j.NodeCount = nodeCount
	j.Status = StatusCompleted
	j.Stage = "done"
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// SetTokenizeResult completes a tokenize job.
func (j *Job) SetTokenizeResult(totalTokens int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.TotalTokens = totalTokens
	j.Status = StatusCompleted
	j.Stage = "done"
	j.UpdatedAt = time.Now()
}

// Fail marks the job failed with a message.
func (j *Job) Fail(msg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusFailed
	j.Error = msg
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// SetCanceled marks the job canceled.
func (j *Job) SetCanceled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = StatusCanceled
	j.fileData = nil
	j.UpdatedAt = time.Now()
}

// RequestCancel asks a queued or running job to stop. Cancellation is
// advisory: a running worker notices at its next batch boundary. Returns
// false when the job already finished.
func (j *Job) RequestCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.terminal() {
		return false
	}
	j.canceled = true
	if j.cancelFn != nil {
		j.cancelFn()
	}
	if j.Status == StatusQueued {
		j.Status = StatusCanceled
		j.fileData = nil
	}
	j.UpdatedAt = time.Now()
	return true
}

// CancelRequested reports whether RequestCancel was called.
func (j *Job) CancelRequested() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.canceled
}

// bindCancel attaches the worker's cancel func at dequeue time. Returns
// false when the job was canceled while still queued, in which case the
// worker must skip it.
func (j *Job) bindCancel(fn context.CancelFunc) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.canceled {
		return false
	}
	j.cancelFn = fn
	return true
}

// SetFileData sets the raw upload bytes for a parse job.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw upload bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Kind        JobKind   `json:"kind"`
	Status      JobStatus `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Format      string    `json:"format,omitempty"`
	DocID       string    `json:"doc_id,omitempty"`
	NodeCount   int       `json:"node_count,omitempty"`
	ModelID     string    `json:"model_id,omitempty"`
	TotalTokens int       `json:"total_tokens,omitempty"`
	Progress    Progress  `json:"progress"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobSnapshot{
		ID:          j.ID,
		Kind:        j.Kind,
		Status:      j.Status,
		Stage:       j.Stage,
		Filename:    j.Filename,
		Format:      j.Format,
		DocID:       j.DocID,
		NodeCount:   j.NodeCount,
		ModelID:     j.ModelID,
		TotalTokens: j.TotalTokens,
		Progress:    j.Progress,
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// ContentHashHex computes SHA-256 of content and returns a hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
