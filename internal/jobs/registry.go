package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"gitreel/internal/logging"
	"gitreel/internal/services"
)

// DefaultMaxConcurrent is the pipeline ceiling when none is configured.
const DefaultMaxConcurrent = 1

const recordTimeout = 10 * time.Second

// Recorder persists terminal jobs.
type Recorder interface {
	RecordJob(ctx context.Context, job Job) error
}

// Observer is told about every status change. Calls happen outside the
// registry lock, in transition order per job.
type Observer interface {
	JobTransitioned(previous Status, job Job)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(previous Status, job Job)

func (f ObserverFunc) JobTransitioned(previous Status, job Job) { f(previous, job) }

// Option configures a Registry.
type Option func(*Registry)

// WithRecorder persists terminal jobs through rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// WithObserver registers an observer.
func WithObserver(obs Observer) Option {
	return func(r *Registry) {
		if obs != nil {
			r.observers = append(r.observers, obs)
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

type entry struct {
	job             Job
	cancel          func()
	cancelRequested bool
	done            chan struct{}
}

// Registry tracks every job of the process.
type Registry struct {
	mu        sync.Mutex
	jobs      map[string]*entry
	order     []string
	slots     *semaphore.Weighted
	capacity  int
	active    int
	recorder  Recorder
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time
	notifyMu  sync.Mutex
}

// NewRegistry returns a registry that runs at most maxConcurrent pipelines.
func NewRegistry(maxConcurrent int, opts ...Option) *Registry {
	if maxConcurrent < 1 {
		maxConcurrent = DefaultMaxConcurrent
	}
	r := &Registry{
		jobs:     make(map[string]*entry),
		slots:    semaphore.NewWeighted(int64(maxConcurrent)),
		capacity: maxConcurrent,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "jobs")
	return r
}

// Capacity returns the concurrency ceiling.
func (r *Registry) Capacity() int { return r.capacity }

// Create registers a queued job and returns its snapshot.
func (r *Registry) Create(spec Spec) Job {
	id := spec.ID
	if id == "" {
		id = uuid.NewString()
	}
	job := Job{
		ID:            id,
		ProfileID:     spec.ProfileID,
		ProjectName:   spec.ProjectName,
		RepositoryIDs: append([]string(nil), spec.RepositoryIDs...),
		Interactive:   spec.Interactive,
		Status:        StatusQueued,
		CreatedAt:     r.now().UTC(),
		Warnings:      append([]string(nil), spec.Warnings...),
	}
	r.mu.Lock()
	r.jobs[job.ID] = &entry{job: job, done: make(chan struct{}), cancel: spec.Cancel}
	r.order = append(r.order, job.ID)
	snapshot := job.clone()
	r.mu.Unlock()
	r.logger.Debug("job registered", logging.String(logging.FieldJobID, job.ID))
	return snapshot
}

// Get returns a copy of the job.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok {
		return Job{}, false
	}
	return e.job.clone(), true
}

// Status returns the job or an error matching services.ErrNotFound.
func (r *Registry) Status(id string) (Job, error) {
	job, ok := r.Get(id)
	if !ok {
		return Job{}, services.Wrap(services.ErrNotFound, "jobs", "status", fmt.Sprintf("job %s", id), nil)
	}
	return job, nil
}

// List returns all jobs in creation order.
func (r *Registry) List() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Job, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.jobs[id].job.clone())
	}
	return out
}

// Active returns the number of pipelines holding a slot.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// CancelRequested reports whether Cancel was called for a live job.
func (r *Registry) CancelRequested(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	return ok && e.cancelRequested
}

// Cancel signals a live job to stop. It returns false for unknown or
// terminal jobs. A job without an attached pipeline is cancelled at once;
// otherwise the pipeline reports EventCancelled after its processes exit.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok || e.job.Status.Terminal() {
		r.mu.Unlock()
		return false
	}
	e.cancelRequested = true
	cancel := e.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		return true
	}
	if _, err := r.Apply(id, EventCancelled, Update{Err: services.ErrCancelled, Message: "cancelled by user"}); err != nil {
		return !errors.Is(err, ErrInvalidTransition)
	}
	return true
}

// Apply moves a job through the state machine.
func (r *Registry) Apply(id string, ev Event, upd Update) (Job, error) {
	r.mu.Lock()
	e, ok := r.jobs[id]
	if !ok {
		r.mu.Unlock()
		return Job{}, services.Wrap(services.ErrNotFound, "jobs", "apply", fmt.Sprintf("job %s", id), nil)
	}
	previous := e.job.Status
	next, err := Transition(previous, ev)
	if err != nil {
		r.mu.Unlock()
		return e.job.clone(), err
	}
	now := r.now().UTC()
	e.job.Status = next
	switch {
	case next == StatusRunning:
		e.job.StartedAt = &now
	case next == StatusCompleted:
		e.job.ProgressPercent = 100
		if !e.job.Interactive {
			e.job.OutputPath = upd.OutputPath
		}
	case next == StatusFailed || next == StatusCancelled:
		e.job.OutputPath = ""
		e.job.ErrorKind = services.Kind(upd.Err)
		if next == StatusCancelled {
			e.job.ErrorKind = services.KindCancelled
		}
		e.job.ErrorMessage = upd.Message
		if e.job.ErrorMessage == "" && upd.Err != nil {
			e.job.ErrorMessage = upd.Err.Error()
		}
	}
	if next.Terminal() {
		e.job.FinishedAt = &now
		e.cancel = nil
		close(e.done)
	}
	snapshot := e.job.clone()
	r.mu.Unlock()

	r.notify(previous, snapshot)
	return snapshot, nil
}

func (r *Registry) notify(previous Status, job Job) {
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	for _, obs := range r.observers {
		obs.JobTransitioned(previous, job)
	}
	if !job.Status.Terminal() || r.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := r.recorder.RecordJob(ctx, job); err != nil {
		logging.WarnWithContext(r.logger, "failed to record job",
			"job_record_failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "render history will miss this job"),
		)
	}
}

// SetProgress raises a live job's progress. Lower readings and updates to
// terminal jobs are ignored. It reports whether the value changed.
func (r *Registry) SetProgress(id string, percent float64) bool {
	percent = min(max(percent, 0), 100)
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[id]
	if !ok || e.job.Status.Terminal() || percent <= e.job.ProgressPercent {
		return false
	}
	e.job.ProgressPercent = percent
	return true
}

// Acquire blocks until a pipeline slot is free or ctx ends. The returned
// release function is safe to call more than once.
func (r *Registry) Acquire(ctx context.Context) (func(), error) {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.active++
	r.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.active--
			r.mu.Unlock()
			r.slots.Release(1)
		})
	}, nil
}

// Wait blocks until the job is terminal or ctx ends.
func (r *Registry) Wait(ctx context.Context, id string) (Job, error) {
	r.mu.Lock()
	e, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return Job{}, services.Wrap(services.ErrNotFound, "jobs", "wait", fmt.Sprintf("job %s", id), nil)
	}
	select {
	case <-e.done:
		job, _ := r.Get(id)
		return job, nil
	case <-ctx.Done():
		job, _ := r.Get(id)
		return job, ctx.Err()
	}
}
