package render

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"gitreel/internal/commitlog"
	"gitreel/internal/config"
	"gitreel/internal/encodeargs"
	"gitreel/internal/gitlog"
	"gitreel/internal/gourceargs"
	"gitreel/internal/jobs"
	"gitreel/internal/logging"
	"gitreel/internal/profile"
	"gitreel/internal/services"
)

// DefaultRendererGrace is how long the renderer may outlive the encoder.
const DefaultRendererGrace = 5 * time.Second

// Config holds the orchestrator's paths and tool names.
type Config struct {
	GourceBinary    string
	FFmpegBinary    string
	OutputDir       string
	TempDir         string
	AudioDir        string
	AvatarDir       string
	DiagnosticLimit int
	KeepLogs        bool
}

// ConfigFrom maps application configuration onto Config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		GourceBinary:    cfg.Tools.Gource,
		FFmpegBinary:    cfg.Tools.FFmpeg,
		OutputDir:       cfg.Paths.OutputDir,
		TempDir:         cfg.Paths.TempDir,
		AudioDir:        cfg.Paths.AudioDir,
		DiagnosticLimit: cfg.Render.DiagnosticLimitBytes,
		KeepLogs:        cfg.Render.KeepLogs,
	}
}

// HistorySource yields one repository's change records.
type HistorySource interface {
	Records(ctx context.Context, repo gitlog.Repository) iter.Seq2[commitlog.Record, error]
}

// Request asks for one render.
type Request struct {
	Profile      profile.Profile
	ProjectName  string
	Repositories []gitlog.Repository
	Interactive  bool
	PostProcess  encodeargs.PostProcess
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLauncher replaces the process launcher.
func WithLauncher(l Launcher) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.launcher = l
		}
	}
}

// WithLookPath replaces exec.LookPath for the tool pre-flight check.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.lookPath = fn
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRendererGrace sets how long the renderer may keep running after the
// encoder has exited before it is terminated.
func WithRendererGrace(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.rendererGrace = d
		}
	}
}

// WithExtractionHook is called with each repository's record count.
func WithExtractionHook(fn func(repo gitlog.Repository, records int)) Option {
	return func(o *Orchestrator) { o.onExtracted = fn }
}

// Orchestrator turns render requests into supervised pipelines.
type Orchestrator struct {
	cfg         Config
	registry    *jobs.Registry
	history     HistorySource
	launcher    Launcher
	lookPath    func(string) (string, error)
	logger      *slog.Logger
	now         func() time.Time
	onExtracted func(gitlog.Repository, int)

	// rendererGrace bounds the wait for the renderer after the encoder exits.
	rendererGrace time.Duration

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs an Orchestrator.
func New(cfg Config, registry *jobs.Registry, history HistorySource, opts ...Option) *Orchestrator {
	if cfg.GourceBinary == "" {
		cfg.GourceBinary = "gource"
	}
	if cfg.FFmpegBinary == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.DiagnosticLimit <= 0 {
		cfg.DiagnosticLimit = DefaultDiagnosticLimit
	}
	o := &Orchestrator{
		cfg:      cfg,
		registry: registry,
		history:  history,
		launcher: ExecLauncher{},
		lookPath: exec.LookPath,
		logger:   logging.NewNop(),
		now:      time.Now,

		rendererGrace: DefaultRendererGrace,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "render")
	o.baseCtx, o.stop = context.WithCancel(context.Background())
	return o
}

// Registry exposes the job registry.
func (o *Orchestrator) Registry() *jobs.Registry { return o.registry }

// Cancel signals a live job to stop.
func (o *Orchestrator) Cancel(id string) bool { return o.registry.Cancel(id) }

// Shutdown cancels every live pipeline and waits for them to unwind.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.stop()
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type plan struct {
	jobID        string
	interactive  bool
	logPath      string
	rendererArgs []string
	encoderArgs  []string
	outputPath   string
	playback     float64
}

// Submit prepares a render and returns the queued job. Tool, extraction,
// and compile failures are returned without registering a job. An empty
// fused log registers the job as failed and returns it with the error.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (jobs.Job, error) {
	if err := o.checkTools(req.Interactive); err != nil {
		return jobs.Job{}, err
	}
	project := strings.TrimSpace(req.ProjectName)
	if project == "" && len(req.Repositories) > 0 {
		project = req.Repositories[0].Name
	}
	id := uuid.NewString()
	ctx = services.WithJobID(ctx, id)
	logger := logging.WithContext(ctx, o.logger)

	spec := jobs.Spec{
		ID:            id,
		ProfileID:     req.Profile.ID,
		ProjectName:   project,
		RepositoryIDs: repositoryIDs(req.Repositories),
		Interactive:   req.Interactive,
	}

	sources, err := o.extract(ctx, req.Repositories)
	if err != nil {
		return jobs.Job{}, err
	}
	p := plan{
		jobID:       id,
		interactive: req.Interactive,
		logPath:     filepath.Join(o.cfg.TempDir, id+".log"),
	}
	stats, err := commitlog.WriteFile(p.logPath, commitlog.Fuse(sources))
	if err != nil {
		return jobs.Job{}, services.Wrap(services.ErrConfiguration, "render", "materialize log", p.logPath, err)
	}
	if stats.Count == 0 {
		o.removeLog(p.logPath)
		cause := services.Wrap(services.ErrConfiguration, "render", "submit", "fused commit log is empty", nil)
		o.registry.Create(spec)
		job, _ := o.registry.Apply(id, jobs.EventFailed, jobs.Update{Err: cause})
		logging.WarnWithContext(logger, "render rejected",
			"render_empty_log",
			logging.String(logging.FieldErrorHint, "check the repositories have commits in the selected range"),
		)
		return job, cause
	}

	compiled, err := gourceargs.Compile(req.Profile.Settings, gourceargs.Context{
		LogPath:        p.logPath,
		ProjectName:    project,
		FirstTimestamp: stats.First,
		LastTimestamp:  stats.Last,
		HasSpan:        true,
		Now:            o.now(),
		AvatarDir:      o.cfg.AvatarDir,
		Interactive:    req.Interactive,
	})
	if err != nil {
		o.removeLog(p.logPath)
		return jobs.Job{}, services.Wrap(services.ErrConfiguration, "render", "compile", "profile "+req.Profile.ID, err)
	}
	for _, w := range compiled.Warnings {
		logger.Warn("profile setting adjusted", logging.String("warning", w))
	}
	p.rendererArgs = compiled.Args
	p.playback = compiled.PlaybackSeconds

	if !req.Interactive {
		p.outputPath = OutputPath(o.cfg.OutputDir, project, id, o.now())
		p.encoderArgs, err = encodeargs.Build(encodeargs.Options{
			FrameRate:  compiled.FrameRate,
			OutputPath: p.outputPath,
			Duration:   compiled.PlaybackSeconds,
			AudioDir:   o.cfg.AudioDir,
			Post:       req.PostProcess,
		})
		if err != nil {
			o.removeLog(p.logPath)
			return jobs.Job{}, err
		}
		if err := os.MkdirAll(filepath.Dir(p.outputPath), 0o755); err != nil {
			o.removeLog(p.logPath)
			return jobs.Job{}, services.Wrap(services.ErrConfiguration, "render", "prepare output", p.outputPath, err)
		}
		p.rendererArgs = append(p.rendererArgs, "--output-ppm-stream", "-")
	}

	runCtx, cancel := context.WithCancel(o.baseCtx)
	runCtx = services.WithJobID(runCtx, id)
	spec.Warnings = compiled.Warnings
	spec.Cancel = cancel
	job := o.registry.Create(spec)
	o.wg.Add(1)
	go o.run(runCtx, cancel, p)

	logger.Info("job submitted",
		logging.String(logging.FieldProfile, req.Profile.ID),
		logging.Int("repositories", len(req.Repositories)),
		logging.Int("records", stats.Count),
		logging.Int64("span_seconds", stats.Span()),
		logging.Bool("interactive", req.Interactive),
	)
	return job, nil
}

func (o *Orchestrator) checkTools(interactive bool) error {
	tools := []string{o.cfg.GourceBinary}
	if !interactive {
		tools = append(tools, o.cfg.FFmpegBinary)
	}
	for _, tool := range tools {
		if _, err := o.lookPath(tool); err != nil {
			return services.Wrap(services.ErrToolUnavailable, "render", "preflight", fmt.Sprintf("%s not found", tool), err)
		}
	}
	return nil
}

func (o *Orchestrator) extract(ctx context.Context, repos []gitlog.Repository) ([]commitlog.Source, error) {
	results := make([][]commitlog.Record, len(repos))
	g, gctx := errgroup.WithContext(ctx)
	for i, repo := range repos {
		g.Go(func() error {
			recs, err := commitlog.Collect(o.history.Records(gctx, repo))
			if err != nil {
				return err
			}
			results[i] = recs
			if o.onExtracted != nil {
				o.onExtracted(repo, len(recs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sources := make([]commitlog.Source, len(repos))
	for i, repo := range repos {
		name := repo.Name
		if name == "" {
			name = filepath.Base(repo.Path)
		}
		sources[i] = commitlog.Source{Prefix: commitlog.Prefix(name), Records: commitlog.Slice(results[i])}
	}
	return sources, nil
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, p plan) {
	defer o.wg.Done()
	defer cancel()
	defer o.removeLog(p.logPath)
	logger := logging.WithContext(ctx, o.logger)

	ev, upd := o.execute(ctx, p)
	if ev != jobs.EventSucceeded && p.outputPath != "" {
		if err := os.Remove(p.outputPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove partial output", logging.String("path", p.outputPath), logging.Error(err))
		}
	}
	job, err := o.registry.Apply(p.jobID, ev, upd)
	if err != nil {
		logger.Error("job transition failed", logging.Error(err))
		return
	}
	attrs := []logging.Attr{
		logging.String("status", string(job.Status)),
		logging.Duration("elapsed", job.Duration()),
	}
	if job.OutputPath != "" {
		attrs = append(attrs, logging.String("output", job.OutputPath))
	}
	if job.ErrorKind != "" {
		attrs = append(attrs, logging.String("error_kind", job.ErrorKind))
	}
	logger.Info("job finished", logging.Args(attrs...)...)
}

// execute holds a concurrency slot for the lifetime of the pipeline and
// returns the terminal event. The slot is released before the caller
// applies that event.
func (o *Orchestrator) execute(ctx context.Context, p plan) (jobs.Event, jobs.Update) {
	release, err := o.registry.Acquire(ctx)
	if err != nil {
		return cancelled()
	}
	defer release()
	if ctx.Err() != nil {
		return cancelled()
	}
	progress := newProgressTracker(o, p.jobID)
	if p.interactive {
		return o.runInteractive(ctx, p, progress)
	}
	return o.runPipeline(ctx, p, progress)
}

func (o *Orchestrator) runInteractive(ctx context.Context, p plan, progress *progressTracker) (jobs.Event, jobs.Update) {
	diag := newTailBuffer(o.cfg.DiagnosticLimit)
	stderr := &lineWriter{tail: diag, onLine: progress.rendererLine}
	renderer, err := o.launcher.Start(ctx, Command{Name: o.cfg.GourceBinary, Args: p.rendererArgs, Stderr: stderr})
	if err != nil {
		return spawnFailed(o.cfg.GourceBinary, err)
	}
	o.started(ctx, p.jobID, jobs.EventRendererStarted, o.cfg.GourceBinary)

	done := make(chan error, 1)
	go func() { done <- renderer.Wait() }()
	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		_ = renderer.Terminate()
		waitErr = <-done
	}
	_ = stderr.Close()
	if waitErr != nil {
		if ctx.Err() != nil {
			return cancelled()
		}
		return processFailed(o.cfg.GourceBinary, waitErr, diag)
	}
	return jobs.EventSucceeded, jobs.Update{}
}

func (o *Orchestrator) runPipeline(ctx context.Context, p plan, progress *progressTracker) (jobs.Event, jobs.Update) {
	frames, sink, err := os.Pipe()
	if err != nil {
		return jobs.EventFailed, jobs.Update{Err: services.Wrap(services.ErrProcessRuntime, "render", "pipe", "create frame pipe", err)}
	}
	renderDiag := newTailBuffer(o.cfg.DiagnosticLimit)
	encodeDiag := newTailBuffer(o.cfg.DiagnosticLimit)
	renderStderr := &lineWriter{tail: renderDiag, onLine: progress.rendererLine}
	encodeStderr := &lineWriter{tail: encodeDiag, onLine: func(line string) { progress.encoderLine(line, p.playback) }}

	renderer, err := o.launcher.Start(ctx, Command{
		Name:   o.cfg.GourceBinary,
		Args:   p.rendererArgs,
		Stdout: sink,
		Stderr: renderStderr,
	})
	if err != nil {
		closeFile(frames)
		return spawnFailed(o.cfg.GourceBinary, err)
	}
	o.started(ctx, p.jobID, jobs.EventRendererStarted, o.cfg.GourceBinary)

	encoder, err := o.launcher.Start(ctx, Command{
		Name:   o.cfg.FFmpegBinary,
		Args:   p.encoderArgs,
		Stdin:  frames,
		Stderr: encodeStderr,
	})
	if err != nil {
		_ = renderer.Terminate()
		_ = renderer.Wait()
		return spawnFailed(o.cfg.FFmpegBinary, err)
	}
	o.started(ctx, p.jobID, jobs.EventEncoderStarted, o.cfg.FFmpegBinary)

	renderDone := make(chan error, 1)
	encodeDone := make(chan error, 1)
	go func() { renderDone <- renderer.Wait() }()
	go func() { encodeDone <- encoder.Wait() }()

	var (
		renderErr, encodeErr       error
		renderExited, encodeExited bool

		// rendererStopped is set only when the renderer is signalled here,
		// so its exit status says nothing about the render itself.
		rendererStopped bool
		grace           *time.Timer
		graceC          <-chan time.Time
	)
	stopping := ctx.Done()
	for !renderExited || !encodeExited {
		select {
		case renderErr = <-renderDone:
			renderExited = true
			if renderErr != nil && !encodeExited && !brokenPipe(renderErr) {
				_ = encoder.Terminate()
			}
		case encodeErr = <-encodeDone:
			encodeExited = true
			if !renderExited {
				grace = time.NewTimer(o.rendererGrace)
				graceC = grace.C
			}
		case <-graceC:
			graceC = nil
			if !renderExited {
				rendererStopped = true
				_ = renderer.Terminate()
			}
		case <-stopping:
			stopping = nil
			if !encodeExited {
				_ = encoder.Terminate()
			}
			if !renderExited {
				rendererStopped = true
				_ = renderer.Terminate()
			}
		}
	}
	if grace != nil {
		grace.Stop()
	}
	_ = renderStderr.Close()
	_ = encodeStderr.Close()

	if ctx.Err() != nil && (renderErr != nil || encodeErr != nil) {
		return cancelled()
	}
	// A renderer that failed on its own outranks the encoder, which usually
	// fails only because its input stream ended early.
	if renderErr != nil && !rendererStopped && !brokenPipe(renderErr) {
		return processFailed(o.cfg.GourceBinary, renderErr, renderDiag)
	}
	if encodeErr != nil {
		return processFailed(o.cfg.FFmpegBinary, encodeErr, encodeDiag)
	}
	if _, err := os.Stat(p.outputPath); err != nil {
		return jobs.EventFailed, jobs.Update{Err: services.Wrap(services.ErrProcessRuntime, "render", "encode", "encoder produced no output file", err)}
	}
	return jobs.EventSucceeded, jobs.Update{OutputPath: p.outputPath}
}

func (o *Orchestrator) started(ctx context.Context, id string, ev jobs.Event, tool string) {
	logger := logging.WithContext(ctx, o.logger)
	if _, err := o.registry.Apply(id, ev, jobs.Update{}); err != nil {
		logger.Warn("job transition rejected", logging.String("event", string(ev)), logging.Error(err))
		return
	}
	switch ev {
	case jobs.EventRendererStarted:
		logger.Info("renderer started", logging.String("tool", tool))
	case jobs.EventEncoderStarted:
		logger.Info("encoder started", logging.String("tool", tool))
	}
}

func (o *Orchestrator) removeLog(path string) {
	if o.cfg.KeepLogs || path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.logger.Warn("failed to remove commit log", logging.String("path", path), logging.Error(err))
	}
}

func cancelled() (jobs.Event, jobs.Update) {
	return jobs.EventCancelled, jobs.Update{Err: services.ErrCancelled, Message: "cancelled by user"}
}

func spawnFailed(tool string, err error) (jobs.Event, jobs.Update) {
	return jobs.EventFailed, jobs.Update{
		Err: services.Wrap(services.ErrToolUnavailable, "render", "start", tool, err),
	}
}

func processFailed(tool string, err error, diag *tailBuffer) (jobs.Event, jobs.Update) {
	perr := &services.ProcessError{Tool: filepath.Base(tool), ExitCode: exitCode(err), Diagnostics: diag.String()}
	return jobs.EventFailed, jobs.Update{Err: perr}
}

func repositoryIDs(repos []gitlog.Repository) []string {
	ids := make([]string, 0, len(repos))
	for _, r := range repos {
		id := r.ID
		if id == "" {
			id = r.Name
		}
		ids = append(ids, id)
	}
	return ids
}

// progressTracker serializes progress readings from both diagnostic streams.
type progressTracker struct {
	mu       sync.Mutex
	o        *Orchestrator
	id       string
	sampler  *logging.ProgressSampler
	registry *jobs.Registry
}

func newProgressTracker(o *Orchestrator, id string) *progressTracker {
	return &progressTracker{o: o, id: id, sampler: logging.NewProgressSampler(10), registry: o.registry}
}

func (t *progressTracker) rendererLine(line string) {
	if pct, ok := ParseRendererProgress(line); ok {
		t.set(min(pct, encoderProgressCap))
	}
}

func (t *progressTracker) encoderLine(line string, expected float64) {
	elapsed, ok := ParseEncoderTime(line)
	if !ok {
		return
	}
	if pct, ok := EncoderPercent(elapsed, expected); ok {
		t.set(pct)
	}
}

func (t *progressTracker) set(pct float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.registry.SetProgress(t.id, pct) {
		return
	}
	if t.sampler.ShouldLog(pct, "") {
		t.o.logger.Info("render progress",
			logging.String(logging.FieldJobID, t.id),
			logging.Float64("progress", pct),
		)
	}
}
