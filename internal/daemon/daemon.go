package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"gitreel/internal/config"
	"gitreel/internal/deps"
	"gitreel/internal/gitlog"
	"gitreel/internal/identity"
	"gitreel/internal/jobs"
	"gitreel/internal/logging"
	"gitreel/internal/metrics"
	"gitreel/internal/notifications"
	"gitreel/internal/render"
	"gitreel/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Daemon owns the render services and enforces single-instance execution.
type Daemon struct {
	cfg          *config.Config
	logger       *slog.Logger
	store        *store.Store
	registry     *jobs.Registry
	orchestrator *render.Orchestrator
	metrics      *metrics.Metrics
	notifier     *notifications.Observer
	api          *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	Capacity     int
	Active       int
	Queued       int
	Dependencies []deps.Status
}

// Option customizes daemon wiring.
type Option func(*options)

type options struct {
	renderOpts []render.Option
	history    render.HistorySource
	notifier   notifications.Service
}

// WithRenderOptions forwards options to the render orchestrator.
func WithRenderOptions(opts ...render.Option) Option {
	return func(o *options) { o.renderOpts = append(o.renderOpts, opts...) }
}

// WithHistorySource replaces the git extractor.
func WithHistorySource(h render.HistorySource) Option {
	return func(o *options) { o.history = h }
}

// WithNotifier replaces the ntfy notification service.
func WithNotifier(svc notifications.Service) Option {
	return func(o *options) { o.notifier = svc }
}

// New constructs a daemon with initialized dependencies. The daemon takes
// ownership of st and closes it in Close.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.history == nil {
		history, err := NewExtractor(cfg, logger)
		if err != nil {
			return nil, err
		}
		o.history = history
	}
	if o.notifier == nil {
		o.notifier = notifications.NewService(cfg)
	}

	m := metrics.New()
	notifier := notifications.NewObserver(o.notifier, cfg, logger)
	registry := jobs.NewRegistry(cfg.Render.MaxConcurrent,
		jobs.WithRecorder(st),
		jobs.WithObserver(m),
		jobs.WithObserver(notifier),
		jobs.WithLogger(logger),
	)

	renderOpts := []render.Option{
		render.WithLogger(logger),
		render.WithExtractionHook(func(repo gitlog.Repository, n int) {
			m.RecordsExtracted(repo.Name, n)
		}),
	}
	renderOpts = append(renderOpts, o.renderOpts...)
	orchestrator := render.New(render.ConfigFrom(cfg), registry, o.history, renderOpts...)

	d := &Daemon{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "daemon"),
		store:        st,
		registry:     registry,
		orchestrator: orchestrator,
		metrics:      m,
		notifier:     notifier,
		lockPath:     cfg.LockPath(),
		lock:         flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// NewExtractor builds the git extractor described by cfg, including the
// identity resolver when it is enabled.
func NewExtractor(cfg *config.Config, logger *slog.Logger) (*gitlog.Extractor, error) {
	extractorOpts := []gitlog.Option{
		gitlog.WithLogger(logger),
		gitlog.WithLocker(gitlog.NewPathLocker(filepath.Join(cfg.Paths.DataDir, "locks"))),
	}
	if cfg.Identity.Enabled {
		client, err := identity.New(cfg.Identity.GitHubToken, cfg.Identity.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("identity client: %w", err)
		}
		extractorOpts = append(extractorOpts, gitlog.WithResolver(client, cfg.IdentityTimeout()))
	}
	return gitlog.New(cfg.Tools.Git, extractorOpts...), nil
}

// Start acquires the daemon lock and starts serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gitreel daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api: %w", err)
	}

	if missing := deps.Missing(deps.CheckSystem(d.cfg)); len(missing) > 0 {
		logging.WarnWithContext(d.logger, "render dependencies missing",
			"dependency_missing",
			logging.String("missing", strings.Join(missing, ", ")),
			logging.String(logging.FieldErrorHint, "run `gitreel deps` for details"),
		)
	}

	d.running.Store(true)
	d.logger.Info("gitreel daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.address()),
	)
	return nil
}

// Stop stops serving, cancels live renders, and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.shutdownRenders()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("gitreel daemon stopped")
}

func (d *Daemon) shutdownRenders() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.orchestrator.Shutdown(ctx); err != nil {
		d.logger.Warn("renders did not stop in time", logging.Error(err))
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.shutdownRenders()
	d.notifier.Close()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Address returns the API listen address once started.
func (d *Daemon) Address() string {
	return d.api.address()
}

// Store exposes the persistence layer.
func (d *Daemon) Store() *store.Store { return d.store }

// Registry exposes the live job registry.
func (d *Daemon) Registry() *jobs.Registry { return d.registry }

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		Capacity:     d.registry.Capacity(),
		Active:       d.registry.Active(),
		Dependencies: deps.CheckSystem(d.cfg),
	}
	for _, job := range d.registry.List() {
		if job.Status == jobs.StatusQueued {
			status.Queued++
		}
	}
	return status
}
