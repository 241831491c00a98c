// Package sweep runs simulation requests asynchronously: a bounded queue in
// front of a dedicated worker goroutine, job records with progress snapshots,
// and cooperative per-job cancellation checked between wavelength samples.
package sweep

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"opticore/internal/telemetry"
	"opticore/internal/tmm"
	"opticore/pkg/domain"
)

// Status is the lifecycle stage of a sweep job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// DefaultQueueCapacity bounds pending sweeps. Enqueueing beyond it fails
// immediately; the worker never supersedes or silently drops a request.
const DefaultQueueCapacity = 8

// Job tracks one sweep request. Result is set only on success; a cancelled
// job discards every partial sample.
type Job struct {
	ID          string                   `json:"id"`
	Status      Status                   `json:"status"`
	Progress    float64                  `json:"progress"`
	Error       string                   `json:"error,omitempty"`
	Request     domain.SimulationRequest `json:"request"`
	Result      *domain.SimulationResult `json:"result,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	CompletedAt *time.Time               `json:"completed_at,omitempty"`
}

// Input is an enqueue request: a resolved stack plus the grid parameters.
type Input struct {
	Stack   tmm.Stack
	Request domain.SimulationRequest
}

// ErrQueueFull reports a saturated sweep queue.
var ErrQueueFull = fmt.Errorf("sweep queue full")

type task struct {
	id    string
	input Input
}

// Worker executes sweeps one at a time on its own goroutine.
type Worker struct {
	logger  telemetry.Logger
	metrics telemetry.MetricsRecorder

	queue chan task
	mu    sync.RWMutex
	jobs  map[string]*Job
	stops map[string]context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger replaces the no-op logger.
func WithLogger(l telemetry.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithMetrics replaces the no-op metrics recorder.
func WithMetrics(m telemetry.MetricsRecorder) Option {
	return func(w *Worker) {
		if m != nil {
			w.metrics = m
		}
	}
}

// WithQueueCapacity overrides the pending-sweep bound.
func WithQueueCapacity(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan task, n)
		}
	}
}

// NewWorker constructs a stopped worker; call Start before enqueueing.
func NewWorker(opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		logger:  telemetry.NopLogger{},
		metrics: telemetry.NopMetrics{},
		queue:   make(chan task, DefaultQueueCapacity),
		jobs:    make(map[string]*Job),
		stops:   make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing queued sweeps.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the worker and waits for the in-flight sweep to finish or the
// provided context to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case t := <-w.queue:
			w.run(t)
		}
	}
}

// Enqueue validates the request and schedules it. The queued snapshot is
// returned immediately; progress is polled via GetJob.
func (w *Worker) Enqueue(input Input) (Job, error) {
	if err := input.Request.Validate(); err != nil {
		return Job{}, err
	}
	id := newID()
	now := time.Now().UTC()
	job := &Job{
		ID:        id,
		Status:    StatusQueued,
		Request:   input.Request,
		CreatedAt: now,
		UpdatedAt: now,
	}

	w.mu.Lock()
	w.jobs[id] = job
	snapshot := *job
	w.mu.Unlock()

	select {
	case w.queue <- task{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return Job{}, ErrQueueFull
	}
	w.logger.Debug("sweep queued", "job", id, "steps", input.Request.Steps)
	return snapshot, nil
}

// GetJob returns a snapshot of the job record.
func (w *Worker) GetJob(id string) (Job, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	job, ok := w.jobs[id]
	if !ok {
		return Job{}, false
	}
	return cloneJob(job), true
}

// ListJobs returns snapshots of every job, newest first.
func (w *Worker) ListJobs() []Job {
	w.mu.RLock()
	out := make([]Job, 0, len(w.jobs))
	for _, job := range w.jobs {
		out = append(out, cloneJob(job))
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Cancel requests cooperative cancellation; it is effective between
// wavelength samples. Cancelling a finished job is a no-op.
func (w *Worker) Cancel(id string) error {
	w.mu.Lock()
	job, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return domain.NotFoundError{Kind: "sweep", Name: id}
	}
	stop := w.stops[id]
	if job.Status == StatusQueued {
		// Never started: settle it here, the run loop skips settled jobs.
		w.finishLocked(job, StatusCancelled, "cancelled before start")
	}
	w.mu.Unlock()
	if stop != nil {
		stop()
	}
	return nil
}

func (w *Worker) run(t task) {
	jobCtx, cancel := context.WithCancel(w.ctx)
	defer cancel()

	w.mu.Lock()
	job, ok := w.jobs[t.id]
	if !ok || job.Status != StatusQueued {
		w.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	job.UpdatedAt = time.Now().UTC()
	// Registered under the lock so Cancel either settles the queued job or
	// finds this stop function, never neither.
	w.stops[t.id] = cancel
	w.mu.Unlock()

	started := time.Now()
	result, err := w.sweep(jobCtx, t.id, t.input)
	elapsed := time.Since(started)

	status := StatusFailed
	w.mu.Lock()
	if job, ok := w.jobs[t.id]; ok {
		switch {
		case err == nil:
			job.Result = &result
			job.Progress = 1
			w.finishLocked(job, StatusSucceeded, "")
		case jobCtx.Err() != nil:
			w.finishLocked(job, StatusCancelled, "cancelled")
		default:
			w.finishLocked(job, StatusFailed, err.Error())
		}
		status = job.Status
	}
	w.mu.Unlock()

	w.metrics.ObserveSweep(string(status), elapsed, t.input.Request.Steps)
	w.logger.Info("sweep finished", "job", t.id, "status", string(status), "duration", elapsed.String())
}

// sweep walks the grid, checking cancellation between samples and updating
// progress at roughly one percent granularity so reporting never contends
// with the matrix work.
func (w *Worker) sweep(ctx context.Context, id string, input Input) (domain.SimulationResult, error) {
	req := input.Request
	grid := tmm.Grid(req.StartNm, req.EndNm, req.Steps)
	result := domain.SimulationResult{
		Request: req,
		Samples: make([]domain.SpectrumSample, 0, len(grid)),
	}
	stride := len(grid) / 100
	if stride < 1 {
		stride = 1
	}
	for i, wl := range grid {
		select {
		case <-ctx.Done():
			return domain.SimulationResult{}, ctx.Err()
		default:
		}
		sample, warnings, err := tmm.At(input.Stack, req.AngleDeg, req.Polarization, wl)
		result.Warnings = append(result.Warnings, warnings...)
		if err != nil {
			return domain.SimulationResult{}, err
		}
		result.Samples = append(result.Samples, domain.SpectrumSample{
			WavelengthNm:  sample.WavelengthNm,
			Reflectance:   sample.Reflectance,
			Transmittance: sample.Transmittance,
			PhaseRad:      sample.PhaseRad,
		})
		if i%stride == 0 {
			w.setProgress(id, float64(i+1)/float64(len(grid)))
		}
	}
	result.ComputedAt = time.Now().UTC()
	return result, nil
}

func (w *Worker) setProgress(id string, fraction float64) {
	w.mu.Lock()
	if job, ok := w.jobs[id]; ok && job.Status == StatusRunning {
		job.Progress = fraction
		job.UpdatedAt = time.Now().UTC()
	}
	w.mu.Unlock()
}

// finishLocked settles a job; callers hold w.mu.
func (w *Worker) finishLocked(job *Job, status Status, message string) {
	now := time.Now().UTC()
	job.Status = status
	job.Error = message
	job.UpdatedAt = now
	job.CompletedAt = &now
	delete(w.stops, job.ID)
}

func cloneJob(job *Job) Job {
	out := *job
	if job.Result != nil {
		r := *job.Result
		r.Samples = append([]domain.SpectrumSample(nil), job.Result.Samples...)
		r.Warnings = append([]domain.Warning(nil), job.Result.Warnings...)
		out.Result = &r
	}
	return out
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
