package batch

import (
	"time"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/resilience"
)

// Status is the lifecycle state of a batch job.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// PauseReason explains why a job is paused.
type PauseReason string

const (
	PauseManual      PauseReason = "manual"
	PauseCircuitOpen PauseReason = "circuit_open"
)

// Options configure one batch job.
type Options struct {
	Selector    model.PopulationSelector `json:"selector"`
	BatchSize   int                      `json:"batch_size"`
	Concurrency int                      `json:"concurrency"`
	MaxRetries  int                      `json:"max_retries"`
	BaseDelay   time.Duration            `json:"base_delay"`
	MaxDelay    time.Duration            `json:"max_delay"`

	OnProgress      func(Progress)                                  `json:"-"`
	OnBatchComplete func(BatchResult)                               `json:"-"`
	OnError         func(err error, clientID int64, willRetry bool) `json:"-"`
}

// DefaultOptions returns batches of 50, 5 concurrent clients and 3 retries.
func DefaultOptions() Options {
	return Options{
		BatchSize:   50,
		Concurrency: 5,
		MaxRetries:  3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = def.Concurrency
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = def.BaseDelay
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = def.MaxDelay
	}
	return o
}

// Progress is emitted after every batch.
type Progress struct {
	JobID              string        `json:"job_id"`
	Total              int           `json:"total"`
	Processed          int           `json:"processed"`
	Succeeded          int           `json:"succeeded"`
	Failed             int           `json:"failed"`
	Percent            float64       `json:"percent"`
	Elapsed            time.Duration `json:"elapsed"`
	EstimatedRemaining time.Duration `json:"estimated_remaining"`
	SuccessRate        float64       `json:"success_rate"`
	// Throughput is clients per minute since the job (or its last resume) started.
	Throughput float64 `json:"throughput"`
}

// BatchResult summarizes one finished batch.
type BatchResult struct {
	JobID        string        `json:"job_id"`
	Batch        int           `json:"batch"`
	TotalBatches int           `json:"total_batches"`
	Size         int           `json:"size"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Retries      int           `json:"retries"`
	FailedIDs    []int64       `json:"failed_ids,omitempty"`
	Duration     time.Duration `json:"duration"`
	// Throughput is clients per minute within this batch.
	Throughput float64 `json:"throughput"`
}

// JobSnapshot is a consistent copy of a job's state.
type JobSnapshot struct {
	ID                  string                     `json:"id,omitempty"`
	Status              Status                     `json:"status"`
	PauseReason         PauseReason                `json:"pause_reason,omitempty"`
	Selector            model.PopulationSelector   `json:"selector"`
	Total               int                        `json:"total"`
	Processed           int                        `json:"processed"`
	Succeeded           int                        `json:"succeeded"`
	Failed              int                        `json:"failed"`
	Retries             int                        `json:"retries"`
	CurrentBatch        int                        `json:"current_batch"`
	TotalBatches        int                        `json:"total_batches"`
	StartedAt           *time.Time                 `json:"started_at,omitempty"`
	LastCheckpoint      *time.Time                 `json:"last_checkpoint,omitempty"`
	FinishedAt          *time.Time                 `json:"finished_at,omitempty"`
	Resumes             int                        `json:"resumes"`
	BreakerOpen         bool                       `json:"breaker_open"`
	ConsecutiveFailures int                        `json:"consecutive_failures"`
	Error               string                     `json:"error,omitempty"`
	Failures            []resilience.FailureRecord `json:"failures,omitempty"`
}

// job is the mutable state of the scheduler's current job. Guarded by
// Scheduler.mu.
type job struct {
	id          string
	opts        Options
	status      Status
	pauseReason PauseReason
	err         string

	pauseRequested  bool
	cancelRequested bool

	total        int
	processed    int
	succeeded    int
	failed       int
	retries      int
	currentBatch int
	totalBatches int
	failures     []resilience.FailureRecord

	startedAt      time.Time
	segmentStart   time.Time
	lastCheckpoint *time.Time
	finishedAt     *time.Time
	resumes        int

	done chan struct{}
}

func (j *job) snapshot() JobSnapshot {
	started := j.startedAt
	return JobSnapshot{
		ID:             j.id,
		Status:         j.status,
		PauseReason:    j.pauseReason,
		Selector:       j.opts.Selector,
		Total:          j.total,
		Processed:      j.processed,
		Succeeded:      j.succeeded,
		Failed:         j.failed,
		Retries:        j.retries,
		CurrentBatch:   j.currentBatch,
		TotalBatches:   j.totalBatches,
		StartedAt:      &started,
		LastCheckpoint: copyTime(j.lastCheckpoint),
		FinishedAt:     copyTime(j.finishedAt),
		Resumes:        j.resumes,
		Error:          j.err,
		Failures:       append([]resilience.FailureRecord(nil), j.failures...),
	}
}

// progress derives throughput and ETA from the counters of the current segment.
func (j *job) progress(now time.Time) Progress {
	p := Progress{
		JobID:     j.id,
		Total:     j.total,
		Processed: j.processed,
		Succeeded: j.succeeded,
		Failed:    j.failed,
		Elapsed:   now.Sub(j.segmentStart),
	}
	if j.total > 0 {
		p.Percent = float64(j.processed) / float64(j.total) * 100
	}
	if j.processed > 0 {
		p.SuccessRate = float64(j.succeeded) / float64(j.processed) * 100
		perClient := p.Elapsed / time.Duration(j.processed)
		p.EstimatedRemaining = perClient * time.Duration(j.total-j.processed)
		if minutes := p.Elapsed.Minutes(); minutes > 0 {
			p.Throughput = float64(j.processed) / minutes
		}
	}
	return p
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
