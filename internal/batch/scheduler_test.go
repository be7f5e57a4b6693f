package batch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/resilience"
)

type fakeEnricher struct {
	mu          sync.Mutex
	calls       []int64
	inFlight    int
	maxInFlight int
	enriched    map[int64]bool
	gate        chan struct{}
	succeed     func(id int64) bool
}

func newFakeEnricher() *fakeEnricher {
	return &fakeEnricher{enriched: make(map[int64]bool)}
}

func (f *fakeEnricher) Enrich(_ context.Context, clientID, projectID int64) *model.EnrichmentResult {
	f.mu.Lock()
	f.calls = append(f.calls, clientID)
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	gate, succeed := f.gate, f.succeed
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	ok := succeed == nil || succeed(clientID)

	f.mu.Lock()
	f.inFlight--
	if ok {
		f.enriched[clientID] = true
	}
	f.mu.Unlock()

	if ok {
		return &model.EnrichmentResult{ClientID: clientID, ProjectID: projectID, Success: true}
	}
	return &model.EnrichmentResult{
		ClientID:  clientID,
		ProjectID: projectID,
		Err:       errors.New("upstream said: invalid x-api-key"),
		Error:     "enrichment failed",
	}
}

func (f *fakeEnricher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEnricher) setSucceed(fn func(int64) bool) {
	f.mu.Lock()
	f.succeed = fn
	f.mu.Unlock()
}

// fakeLister returns the ids the enricher has not enriched yet.
type fakeLister struct {
	ids      []int64
	enricher *fakeEnricher
	err      error
}

func (l *fakeLister) ListPendingClientIDs(_ context.Context, _ model.PopulationSelector) ([]int64, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.enricher.mu.Lock()
	defer l.enricher.mu.Unlock()
	var out []int64
	for _, id := range l.ids {
		if !l.enricher.enriched[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func waitForCalls(t *testing.T, enr *fakeEnricher, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return enr.callCount() == n }, 2*time.Second, time.Millisecond)
}

func ids(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func fastOptions() Options {
	opts := DefaultOptions()
	opts.Selector = model.PopulationSelector{ProjectID: 1}
	opts.BaseDelay = time.Millisecond
	opts.MaxDelay = 2 * time.Millisecond
	return opts
}

func newTestScheduler(n int) (*Scheduler, *fakeEnricher) {
	enr := newFakeEnricher()
	lister := &fakeLister{ids: ids(n), enricher: enr}
	return NewScheduler(lister, enr, nil), enr
}

func TestScheduler_120ClientsMakeThreeBatches(t *testing.T) {
	sched, enr := newTestScheduler(120)

	var mu sync.Mutex
	var batches []BatchResult
	var progress []Progress
	opts := fastOptions()
	opts.OnBatchComplete = func(r BatchResult) {
		mu.Lock()
		batches = append(batches, r)
		mu.Unlock()
	}
	opts.OnProgress = func(p Progress) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	}

	snap, err := sched.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 120, snap.Total)
	assert.Equal(t, 120, snap.Processed)
	assert.Equal(t, snap.Processed, snap.Succeeded+snap.Failed)
	assert.Equal(t, 3, snap.TotalBatches)
	assert.NotNil(t, snap.FinishedAt)
	assert.NotNil(t, snap.LastCheckpoint)

	require.Len(t, batches, 3)
	assert.Equal(t, []int{50, 50, 20}, []int{batches[0].Size, batches[1].Size, batches[2].Size})
	assert.Equal(t, []int{1, 2, 3}, []int{batches[0].Batch, batches[1].Batch, batches[2].Batch})

	require.Len(t, progress, 3)
	assert.InDelta(t, 100.0, progress[2].Percent, 0.001)
	assert.InDelta(t, 100.0, progress[2].SuccessRate, 0.001)
	assert.Zero(t, progress[2].EstimatedRemaining)

	assert.Equal(t, 120, enr.callCount())
	assert.LessOrEqual(t, enr.maxInFlight, 5)
}

func TestScheduler_BatchesRunInOrder(t *testing.T) {
	sched, enr := newTestScheduler(9)
	opts := fastOptions()
	opts.BatchSize = 3
	opts.Concurrency = 1

	_, err := sched.Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, ids(9), enr.calls)
	assert.Equal(t, 1, enr.maxInFlight)
}

func TestScheduler_FailuresAreRecordedWithSafeMessages(t *testing.T) {
	sched, enr := newTestScheduler(10)
	enr.succeed = func(id int64) bool { return id%5 != 0 }

	var mu sync.Mutex
	var errorsSeen int
	opts := fastOptions()
	opts.MaxRetries = 1
	opts.OnError = func(error, int64, bool) {
		mu.Lock()
		errorsSeen++
		mu.Unlock()
	}

	snap, err := sched.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Equal(t, 8, snap.Succeeded)
	assert.Equal(t, 2, snap.Failed)
	assert.Equal(t, 2, snap.Retries)
	assert.Equal(t, 4, errorsSeen)

	require.Len(t, snap.Failures, 2)
	failed := []int64{snap.Failures[0].ClientID, snap.Failures[1].ClientID}
	assert.ElementsMatch(t, []int64{5, 10}, failed)
	for _, f := range snap.Failures {
		assert.Equal(t, "enrichment failed", f.Message)
		assert.NotContains(t, f.Message, "api-key")
		assert.Equal(t, resilience.ErrorTypePermanent, f.ErrorType)
		assert.Equal(t, 2, f.Attempts)
	}
}

func TestScheduler_RejectsSecondStart(t *testing.T) {
	sched, enr := newTestScheduler(3)
	enr.gate = make(chan struct{})

	_, err := sched.Start(context.Background(), fastOptions())
	require.NoError(t, err)

	_, err = sched.Start(context.Background(), fastOptions())
	assert.True(t, errors.Is(err, ErrJobRunning))

	close(enr.gate)
	snap := sched.Wait()
	assert.Equal(t, StatusCompleted, snap.Status)
}

func TestScheduler_PauseAndResume(t *testing.T) {
	sched, enr := newTestScheduler(12)
	enr.gate = make(chan struct{})

	opts := fastOptions()
	opts.BatchSize = 5
	first, err := sched.Start(context.Background(), opts)
	require.NoError(t, err)
	waitForCalls(t, enr, 5)
	require.NoError(t, sched.Pause())
	close(enr.gate)

	paused := sched.Wait()
	assert.Equal(t, StatusPaused, paused.Status)
	assert.Equal(t, PauseManual, paused.PauseReason)
	assert.Equal(t, 5, paused.Processed)
	assert.Equal(t, 1, paused.CurrentBatch)
	assert.Nil(t, paused.FinishedAt)

	resumed, err := sched.Resume(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID, resumed.ID)
	assert.Equal(t, 7, resumed.Total)

	done := sched.Wait()
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, first.ID, done.ID)
	assert.Equal(t, first.StartedAt, done.StartedAt)
	assert.Equal(t, 1, done.Resumes)
	assert.Equal(t, 7, done.Processed)
	assert.Equal(t, 12, enr.callCount(), "no client enriched twice")
}

func TestScheduler_WaitDuringResume(t *testing.T) {
	sched, enr := newTestScheduler(8)
	enr.gate = make(chan struct{})

	opts := fastOptions()
	opts.BatchSize = 4
	_, err := sched.Start(context.Background(), opts)
	require.NoError(t, err)
	waitForCalls(t, enr, 4)
	require.NoError(t, sched.Pause())
	close(enr.gate)
	require.Equal(t, StatusPaused, sched.Wait().Status)

	waited := make(chan JobSnapshot, 4)
	var wg sync.WaitGroup
	for range cap(waited) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			waited <- sched.Wait()
		}()
	}
	_, err = sched.Resume(context.Background())
	require.NoError(t, err)
	wg.Wait()
	close(waited)

	for snap := range waited {
		assert.Contains(t, []Status{StatusPaused, StatusRunning, StatusCompleted}, snap.Status)
	}
	assert.Equal(t, StatusCompleted, sched.Wait().Status)
	assert.Equal(t, 8, enr.callCount())
}

func TestScheduler_ResumeRequiresPausedJob(t *testing.T) {
	sched, _ := newTestScheduler(2)
	_, err := sched.Resume(context.Background())
	assert.True(t, errors.Is(err, ErrNoJob))

	_, err = sched.Run(context.Background(), fastOptions())
	require.NoError(t, err)
	_, err = sched.Resume(context.Background())
	assert.True(t, errors.Is(err, ErrNotPaused))
	assert.True(t, errors.Is(sched.Pause(), ErrNotRunning))
}

func TestScheduler_BreakerOpensAndPausesJob(t *testing.T) {
	enr := newFakeEnricher()
	enr.succeed = func(int64) bool { return false }
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 10,
		Cooldown:         time.Hour,
	})
	sched := NewScheduler(&fakeLister{ids: ids(22), enricher: enr}, enr, breaker)

	opts := fastOptions()
	opts.BatchSize = 11
	opts.Concurrency = 1
	opts.MaxRetries = 0

	snap, err := sched.Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, StatusPaused, snap.Status)
	assert.Equal(t, PauseCircuitOpen, snap.PauseReason)
	assert.True(t, snap.BreakerOpen)
	assert.Equal(t, 10, snap.ConsecutiveFailures)
	assert.Equal(t, 11, snap.Processed)
	assert.Equal(t, 11, snap.Failed)
	assert.Equal(t, 10, enr.callCount(), "11th client rejected without calling the enricher")
	require.Len(t, snap.Failures, 11)
	assert.Equal(t, resilience.ErrorTypeCircuitOpen, snap.Failures[10].ErrorType)
	assert.Equal(t, 0, snap.Failures[10].Attempts)

	_, err = sched.Resume(context.Background())
	assert.True(t, errors.Is(err, resilience.ErrCircuitOpen))

	sched.ResetBreaker()
	enr.setSucceed(func(int64) bool { return true })
	_, err = sched.Resume(context.Background())
	require.NoError(t, err)

	done := sched.Wait()
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, 22, done.Processed)
	assert.Equal(t, 22, done.Succeeded)
	assert.False(t, done.BreakerOpen)
	assert.Zero(t, done.ConsecutiveFailures)
}

func TestScheduler_CancelPausedJob(t *testing.T) {
	sched, enr := newTestScheduler(10)
	enr.gate = make(chan struct{})
	opts := fastOptions()
	opts.BatchSize = 5

	_, err := sched.Start(context.Background(), opts)
	require.NoError(t, err)
	waitForCalls(t, enr, 5)
	require.NoError(t, sched.Pause())
	close(enr.gate)
	sched.Wait()

	require.NoError(t, sched.Cancel())
	snap := sched.Status()
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.NotNil(t, snap.FinishedAt)
	assert.Error(t, sched.Cancel())
}

func TestScheduler_CancelRunningJobStopsAtBoundary(t *testing.T) {
	sched, enr := newTestScheduler(10)
	enr.gate = make(chan struct{})
	opts := fastOptions()
	opts.BatchSize = 5

	_, err := sched.Start(context.Background(), opts)
	require.NoError(t, err)
	waitForCalls(t, enr, 5)
	require.NoError(t, sched.Cancel())
	close(enr.gate)

	snap := sched.Wait()
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Equal(t, 5, snap.Processed, "in-flight batch finishes")
}

func TestScheduler_ParentContextCancels(t *testing.T) {
	sched, enr := newTestScheduler(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := sched.Run(ctx, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, snap.Status)
	assert.Zero(t, enr.callCount())
}

func TestScheduler_StartListError(t *testing.T) {
	enr := newFakeEnricher()
	sched := NewScheduler(&fakeLister{err: errors.New("db down"), enricher: enr}, enr, nil)

	_, err := sched.Start(context.Background(), fastOptions())
	require.Error(t, err)
	assert.Equal(t, StatusIdle, sched.Status().Status)
}

func TestScheduler_EmptyPopulationCompletes(t *testing.T) {
	sched, _ := newTestScheduler(0)
	snap, err := sched.Run(context.Background(), fastOptions())
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, snap.Status)
	assert.Zero(t, snap.TotalBatches)
}

func TestScheduler_StatusIdle(t *testing.T) {
	sched, _ := newTestScheduler(1)
	snap := sched.Status()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.ID)
	assert.Zero(t, snap.ConsecutiveFailures)
}

func TestSplit(t *testing.T) {
	got := split(ids(7), 3)
	assert.Equal(t, [][]int64{{1, 2, 3}, {4, 5, 6}, {7}}, got)
	assert.Empty(t, split(nil, 3))
}

func TestJobProgress(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	j := &job{id: "j", total: 100, processed: 25, succeeded: 20, failed: 5, segmentStart: start}

	p := j.progress(start.Add(5 * time.Minute))
	assert.InDelta(t, 25.0, p.Percent, 0.001)
	assert.InDelta(t, 80.0, p.SuccessRate, 0.001)
	assert.Equal(t, 15*time.Minute, p.EstimatedRemaining)
	assert.InDelta(t, 5.0, p.Throughput, 0.001)
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{MaxRetries: -2}.withDefaults()
	assert.Equal(t, 50, o.BatchSize)
	assert.Equal(t, 5, o.Concurrency)
	assert.Equal(t, 0, o.MaxRetries)
	assert.Equal(t, time.Second, o.BaseDelay)
	assert.Equal(t, 30*time.Second, o.MaxDelay)
}
