package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting_text"
	StatusAnalyzing  JobStatus = "analyzing"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single deal-document analysis.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	DealID string `json:"deal_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Chunked  bool      `json:"chunked"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	report   *RunReport
	chunked  *ChunkedRunReport
	errors   []string
}

// Progress tracks per-agent completion.
type Progress struct {
	TotalAgents    int      `json:"total_agents"`
	AgentsComplete int      `json:"agents_complete"`
	AgentsFailed   int      `json:"agents_failed"`
	Errors         []string `json:"errors"`
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
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
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
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetReport records the finished run report and its agent tallies.
func (j *Job) SetReport(report *RunReport) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report = report
	j.Progress.TotalAgents = len(report.Results)
	j.Progress.AgentsComplete = 0
	j.Progress.AgentsFailed = 0
	for _, res := range report.Results {
		if res.Err == "" {
			j.Progress.AgentsComplete++
		} else {
			j.Progress.AgentsFailed++
		}
	}
	j.UpdatedAt = time.Now()
}

// SetChunkedReport records the finished fan-out report.
func (j *Job) SetChunkedReport(report *ChunkedRunReport) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.chunked = report
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string            `json:"job_id"`
	DealID   string            `json:"deal_id"`
	Status   JobStatus         `json:"status"`
	Phase    string            `json:"phase"`
	Filename string            `json:"filename"`
	Chunked  bool              `json:"chunked"`
	Progress Progress          `json:"progress"`
	Report   *RunReport        `json:"report,omitempty"`
	Chunks   *ChunkedRunReport `json:"chunked_report,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:       j.ID,
		DealID:   j.DealID,
		Status:   j.Status,
		Phase:    j.Phase,
		Filename: j.Filename,
		Chunked:  j.Chunked,
		Progress: Progress{
			TotalAgents:    j.Progress.TotalAgents,
			AgentsComplete: j.Progress.AgentsComplete,
			AgentsFailed:   j.Progress.AgentsFailed,
			Errors:         errs,
		},
		Report: j.report,
		Chunks: j.chunked,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
