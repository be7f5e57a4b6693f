// Package batch enriches the pending clients of a project in checkpointed
// batches with bounded concurrency, retries and a shared circuit breaker.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-intel/internal/enrich"
	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/resilience"
)

var (
	// ErrJobRunning is returned by Start while another job is running.
	ErrJobRunning = eris.New("batch: a job is already running")
	// ErrNoJob is returned when there is no job to act on.
	ErrNoJob = eris.New("batch: no job")
	// ErrNotRunning is returned by Pause when the job is not running.
	ErrNotRunning = eris.New("batch: job is not running")
	// ErrNotPaused is returned by Resume when the job is not paused.
	ErrNotPaused = eris.New("batch: job is not paused")
)

// PendingLister lists the clients still waiting for enrichment, in
// ascending id order.
type PendingLister interface {
	ListPendingClientIDs(ctx context.Context, sel model.PopulationSelector) ([]int64, error)
}

// Scheduler runs at most one batch job at a time.
type Scheduler struct {
	lister   PendingLister
	enricher enrich.Enricher
	breaker  *resilience.CircuitBreaker
	now      func() time.Time

	mu  sync.Mutex
	job *job
}

// NewScheduler creates a scheduler. The breaker is shared by every job the
// scheduler runs.
func NewScheduler(lister PendingLister, enricher enrich.Enricher, breaker *resilience.CircuitBreaker) *Scheduler {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	}
	return &Scheduler{
		lister:   lister,
		enricher: enricher,
		breaker:  breaker,
		now:      time.Now,
	}
}

// Start loads the pending population and processes it in the background.
// The job stops at the next batch boundary once ctx is done, so ctx should
// live as long as the job, not as long as the caller's request.
func (s *Scheduler) Start(ctx context.Context, opts Options) (JobSnapshot, error) {
	opts = opts.withDefaults()

	s.mu.Lock()
	if s.job != nil && s.job.status == StatusRunning {
		s.mu.Unlock()
		return JobSnapshot{}, ErrJobRunning
	}
	// Reserve the slot while ids load so concurrent starts are rejected.
	now := s.now()
	j := &job{
		id:           uuid.NewString(),
		opts:         opts,
		status:       StatusRunning,
		startedAt:    now,
		segmentStart: now,
		done:         make(chan struct{}),
	}
	prev := s.job
	s.job = j
	s.mu.Unlock()

	ids, err := s.lister.ListPendingClientIDs(ctx, opts.Selector)
	if err != nil {
		s.mu.Lock()
		s.job = prev
		s.mu.Unlock()
		return JobSnapshot{}, eris.Wrap(err, "batch: list pending clients")
	}

	zap.L().Info("batch: job started",
		zap.String("job_id", j.id),
		zap.Int64("project_id", opts.Selector.ProjectID),
		zap.Int("total", len(ids)),
		zap.Int("batch_size", opts.BatchSize),
		zap.Int("concurrency", opts.Concurrency),
	)
	return s.launch(ctx, j, ids), nil
}

// Run is Start followed by Wait.
func (s *Scheduler) Run(ctx context.Context, opts Options) (JobSnapshot, error) {
	if _, err := s.Start(ctx, opts); err != nil {
		return JobSnapshot{}, err
	}
	return s.Wait(), nil
}

// Wait blocks until the current job stops running and returns its state.
func (s *Scheduler) Wait() JobSnapshot {
	s.mu.Lock()
	var done chan struct{}
	if s.job != nil {
		done = s.job.done
	}
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	return s.Status()
}

// Pause asks the running job to stop at the next batch boundary.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return ErrNoJob
	}
	if s.job.status != StatusRunning {
		return ErrNotRunning
	}
	s.job.pauseRequested = true
	return nil
}

// Cancel stops the job at the next batch boundary. A paused job is
// cancelled immediately.
func (s *Scheduler) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.job == nil {
		return ErrNoJob
	}
	switch s.job.status {
	case StatusRunning:
		s.job.cancelRequested = true
	case StatusPaused:
		s.finishLocked(s.job, StatusCancelled)
	default:
		return eris.Errorf("batch: cannot cancel a %s job", s.job.status)
	}
	return nil
}

// Resume restarts a paused job. The pending population is listed again, so
// clients enriched before the pause are not repeated. The job keeps its id
// and start time; counters restart for the new segment.
func (s *Scheduler) Resume(ctx context.Context) (JobSnapshot, error) {
	s.mu.Lock()
	j := s.job
	if j == nil {
		s.mu.Unlock()
		return JobSnapshot{}, ErrNoJob
	}
	if j.status != StatusPaused {
		s.mu.Unlock()
		return JobSnapshot{}, ErrNotPaused
	}
	if s.breaker.IsOpen() {
		s.mu.Unlock()
		return JobSnapshot{}, eris.Wrap(resilience.ErrCircuitOpen, "batch: resume")
	}
	j.status = StatusRunning
	j.pauseReason = ""
	j.pauseRequested = false
	j.done = make(chan struct{})
	sel := j.opts.Selector
	s.mu.Unlock()

	ids, err := s.lister.ListPendingClientIDs(ctx, sel)
	if err != nil {
		s.mu.Lock()
		j.err = "could not list pending clients"
		s.finishLocked(j, StatusFailed)
		close(j.done)
		s.mu.Unlock()
		return JobSnapshot{}, eris.Wrap(err, "batch: resume list pending clients")
	}

	s.mu.Lock()
	j.resumes++
	j.segmentStart = s.now()
	j.processed, j.succeeded, j.failed, j.retries = 0, 0, 0, 0
	j.currentBatch = 0
	j.failures = nil
	resumes := j.resumes
	s.mu.Unlock()

	zap.L().Info("batch: job resumed",
		zap.String("job_id", j.id),
		zap.Int("remaining", len(ids)),
		zap.Int("resumes", resumes),
	)
	return s.launch(ctx, j, ids), nil
}

// Status returns a snapshot of the current job, or an idle snapshot when no
// job has been started.
func (s *Scheduler) Status() JobSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	failures, state := s.breaker.Counters()
	if s.job == nil {
		return JobSnapshot{Status: StatusIdle, BreakerOpen: state == resilience.CircuitOpen, ConsecutiveFailures: failures}
	}
	snap := s.job.snapshot()
	snap.BreakerOpen = state == resilience.CircuitOpen
	snap.ConsecutiveFailures = failures
	return snap
}

// ResetBreaker closes the circuit breaker and clears its failure count.
func (s *Scheduler) ResetBreaker() {
	s.breaker.Reset()
	zap.L().Info("batch: circuit breaker reset")
}

// Breaker returns the breaker shared by all jobs.
func (s *Scheduler) Breaker() *resilience.CircuitBreaker {
	return s.breaker
}

func (s *Scheduler) launch(ctx context.Context, j *job, ids []int64) JobSnapshot {
	batches := split(ids, j.opts.BatchSize)

	s.mu.Lock()
	j.total = len(ids)
	j.totalBatches = len(batches)
	snap := j.snapshot()
	s.mu.Unlock()

	go s.execute(ctx, j, batches)
	return snap
}

func (s *Scheduler) execute(ctx context.Context, j *job, batches [][]int64) {
	defer close(j.done)

	opts := j.opts
	log := zap.L().With(zap.String("job_id", j.id))
	guard := resilience.NewGuard(s.breaker, resilience.GuardConfig{
		MaxRetries: opts.MaxRetries,
		BaseDelay:  opts.BaseDelay,
		MaxDelay:   opts.MaxDelay,
		OnError:    opts.OnError,
	})

	for i, ids := range batches {
		if s.stopAtBoundary(ctx, j) {
			return
		}

		s.mu.Lock()
		j.currentBatch = i + 1
		s.mu.Unlock()

		res := s.runBatch(ctx, guard, j, ids)
		res.Batch = i + 1
		res.TotalBatches = len(batches)

		s.mu.Lock()
		j.processed += res.Size
		j.succeeded += res.Succeeded
		j.failed += res.Failed
		j.retries += res.Retries
		checkpoint := s.now()
		j.lastCheckpoint = &checkpoint
		progress := j.progress(checkpoint)
		s.mu.Unlock()

		log.Info("batch: batch complete",
			zap.Int("batch", res.Batch),
			zap.Int("total_batches", res.TotalBatches),
			zap.Int("succeeded", res.Succeeded),
			zap.Int("failed", res.Failed),
			zap.Int("retries", res.Retries),
			zap.Float64("clients_per_min", res.Throughput),
		)
		if opts.OnBatchComplete != nil {
			opts.OnBatchComplete(res)
		}
		if opts.OnProgress != nil {
			opts.OnProgress(progress)
		}

		if s.breaker.IsOpen() && i < len(batches)-1 {
			s.mu.Lock()
			j.status = StatusPaused
			j.pauseReason = PauseCircuitOpen
			s.mu.Unlock()
			log.Warn("batch: circuit breaker open, job paused", zap.Int("batch", res.Batch))
			return
		}
	}

	s.mu.Lock()
	s.finishLocked(j, StatusCompleted)
	snap := j.snapshot()
	s.mu.Unlock()
	log.Info("batch: job completed",
		zap.Int("processed", snap.Processed),
		zap.Int("succeeded", snap.Succeeded),
		zap.Int("failed", snap.Failed),
	)
}

// stopAtBoundary applies pending pause or cancel requests. It reports
// whether the job must stop.
func (s *Scheduler) stopAtBoundary(ctx context.Context, j *job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case j.cancelRequested || ctx.Err() != nil:
		s.finishLocked(j, StatusCancelled)
		zap.L().Info("batch: job cancelled", zap.String("job_id", j.id), zap.Int("processed", j.processed))
		return true
	case j.pauseRequested:
		j.status = StatusPaused
		j.pauseReason = PauseManual
		j.pauseRequested = false
		zap.L().Info("batch: job paused", zap.String("job_id", j.id), zap.Int("processed", j.processed))
		return true
	}
	return false
}

// runBatch processes ids in chunks of Concurrency. Every member of a chunk
// settles before the next chunk starts; one member failing never stops the
// others.
func (s *Scheduler) runBatch(ctx context.Context, guard *resilience.Guard, j *job, ids []int64) BatchResult {
	start := s.now()
	res := BatchResult{JobID: j.id, Size: len(ids)}
	projectID := j.opts.Selector.ProjectID

	var mu sync.Mutex
	var failures []resilience.FailureRecord
	for lo := 0; lo < len(ids); lo += j.opts.Concurrency {
		chunk := ids[lo:min(lo+j.opts.Concurrency, len(ids))]

		var g errgroup.Group
		for _, id := range chunk {
			g.Go(func() error {
				out := guard.Run(ctx, id, func(ctx context.Context) error {
					r := s.enricher.Enrich(ctx, id, projectID)
					if r.Success {
						return nil
					}
					if r.Err != nil {
						return r.Err
					}
					return eris.New(r.Error)
				})

				mu.Lock()
				defer mu.Unlock()
				res.Retries += out.Retries
				if out.Success {
					res.Succeeded++
					return nil
				}
				res.Failed++
				res.FailedIDs = append(res.FailedIDs, id)
				failures = append(failures, resilience.NewFailureRecord(out, enrich.UserMessage, s.now()))
				return nil
			})
		}
		_ = g.Wait()
	}

	res.Duration = s.now().Sub(start)
	if minutes := res.Duration.Minutes(); minutes > 0 {
		res.Throughput = float64(res.Size) / minutes
	}

	s.mu.Lock()
	j.failures = append(j.failures, failures...)
	s.mu.Unlock()
	return res
}

func (s *Scheduler) finishLocked(j *job, status Status) {
	j.status = status
	j.pauseReason = ""
	at := s.now()
	j.finishedAt = &at
}

// split cuts ids into consecutive batches of at most size elements.
func split(ids []int64, size int) [][]int64 {
	var out [][]int64
	for lo := 0; lo < len(ids); lo += size {
		out = append(out, ids[lo:min(lo+size, len(ids))])
	}
	return out
}
