package gitlog

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gitreel/internal/commitlog"
	"gitreel/internal/logging"
	"gitreel/internal/services"
)

const (
	commitMarker           = "\x1e"
	defaultResolverTimeout = 5 * time.Second
)

// UsernameResolver maps an author email to an external username. An empty
// result means no mapping exists.
type UsernameResolver interface {
	ResolveUsername(ctx context.Context, email string) (string, error)
}

// Repository identifies a local checkout to extract from.
type Repository struct {
	ID     string
	Name   string
	Path   string
	Branch string
}

// Option configures the extractor.
type Option func(*Extractor)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(e *Extractor) {
		if exec != nil {
			e.exec = exec
		}
	}
}

// WithResolver enables author identity resolution bounded by timeout per lookup.
func WithResolver(resolver UsernameResolver, timeout time.Duration) Option {
	return func(e *Extractor) {
		e.resolver = resolver
		if timeout > 0 {
			e.resolverTimeout = timeout
		}
	}
}

// WithLocker shares a path locker between extractors and other writers of
// the same checkouts.
func WithLocker(locker *PathLocker) Option {
	return func(e *Extractor) {
		if locker != nil {
			e.locks = locker
		}
	}
}

// WithLogger sets the extractor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logging.NewComponentLogger(logger, "gitlog")
	}
}

// Extractor produces commit change records from git history.
type Extractor struct {
	binary          string
	exec            Executor
	resolver        UsernameResolver
	resolverTimeout time.Duration
	locks           *PathLocker
	logger          *slog.Logger

	mu    sync.Mutex
	names map[string]string
}

// New constructs an extractor invoking the given git binary.
func New(binary string, opts ...Option) *Extractor {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "git"
	}
	e := &Extractor{
		binary:          binary,
		exec:            commandExecutor{},
		resolverTimeout: defaultResolverTimeout,
		locks:           NewPathLocker(""),
		logger:          logging.NewNop(),
		names:           make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate reports whether path is a usable git working tree.
func (e *Extractor) Validate(ctx context.Context, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrRepositoryNotFound, "gitlog", "validate", path, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrRepositoryNotFound, "gitlog", "validate", path+" is not a directory", nil)
	}
	var out []string
	err = e.exec.Run(ctx, e.binary, []string{"-C", path, "rev-parse", "--is-inside-work-tree"}, func(line string) {
		out = append(out, strings.TrimSpace(line))
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrRepositoryNotFound, "gitlog", "validate", path, err)
	}
	if len(out) == 0 || out[0] != "true" {
		return services.Wrap(services.ErrRepositoryNotFound, "gitlog", "validate", path+" is not a working tree", nil)
	}
	return nil
}

// Records returns the change records of repo, oldest commit first. The
// sequence is lazy and restartable: every range runs git afresh. Stopping
// the range early terminates the git process.
func (e *Extractor) Records(ctx context.Context, repo Repository) iter.Seq2[commitlog.Record, error] {
	return func(yield func(commitlog.Record, error) bool) {
		ctx := services.WithRepoID(ctx, repo.ID)
		logger := logging.WithContext(ctx, e.logger)

		unlock, err := e.locks.Lock(ctx, repo.Path)
		if err != nil {
			yield(commitlog.Record{}, err)
			return
		}
		defer unlock()

		if err := e.Validate(ctx, repo.Path); err != nil {
			yield(commitlog.Record{}, err)
			return
		}
		if branch := strings.TrimSpace(repo.Branch); branch != "" {
			if err := e.checkout(ctx, repo.Path, branch); err != nil {
				yield(commitlog.Record{}, err)
				return
			}
		}

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var (
			stopped  bool
			parseErr error
			current  commitHeader
			count    int
		)
		err = e.exec.Run(runCtx, e.binary, logArgs(repo.Path), func(line string) {
			if stopped || parseErr != nil {
				return
			}
			if strings.HasPrefix(line, commitMarker) {
				current, parseErr = parseHeader(strings.TrimPrefix(line, commitMarker))
				if parseErr == nil {
					current.username = e.resolve(ctx, current.email)
				}
				return
			}
			rec, ok := parseChange(line, current)
			if !ok {
				return
			}
			count++
			if !yield(rec, nil) {
				stopped = true
				cancel()
			}
		})
		if stopped {
			return
		}
		if parseErr != nil {
			yield(commitlog.Record{}, &services.ExtractionError{Path: repo.Path, Err: parseErr})
			return
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield(commitlog.Record{}, services.Wrap(services.ErrCancelled, "gitlog", "log", repo.Path, ctxErr))
				return
			}
			yield(commitlog.Record{}, extractionError(repo.Path, err))
			return
		}
		logger.Debug("history extracted", logging.String("path", repo.Path), logging.Int("records", count))
	}
}

func (e *Extractor) checkout(ctx context.Context, path, branch string) error {
	err := e.exec.Run(ctx, e.binary, []string{"-C", path, "checkout", "--quiet", branch}, nil)
	if err != nil {
		return extractionError(path, fmt.Errorf("checkout %s: %w", branch, err))
	}
	return nil
}

func (e *Extractor) resolve(ctx context.Context, email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if e.resolver == nil || email == "" {
		return ""
	}
	e.mu.Lock()
	name, ok := e.names[email]
	e.mu.Unlock()
	if ok {
		return name
	}

	lookupCtx, cancel := context.WithTimeout(ctx, e.resolverTimeout)
	defer cancel()
	name, err := e.resolver.ResolveUsername(lookupCtx, email)
	if err != nil {
		e.logger.Debug("username lookup failed", logging.String("email", email), logging.Error(err))
		name = ""
	}
	name = strings.TrimSpace(name)

	e.mu.Lock()
	e.names[email] = name
	e.mu.Unlock()
	return name
}

func logArgs(path string) []string {
	return []string{
		"-c", "core.quotepath=off",
		"-C", path,
		"log",
		"--reverse",
		"--date-order",
		"--no-renames",
		"--name-status",
		"--pretty=format:" + commitMarker + "%at|%an|%ae",
	}
}

type commitHeader struct {
	timestamp int64
	author    string
	email     string
	username  string
}

func parseHeader(line string) (commitHeader, error) {
	first := strings.IndexByte(line, '|')
	last := strings.LastIndexByte(line, '|')
	if first < 0 || last <= first {
		return commitHeader{}, fmt.Errorf("malformed commit header %q", line)
	}
	ts, err := strconv.ParseInt(line[:first], 10, 64)
	if err != nil {
		return commitHeader{}, fmt.Errorf("commit header %q: timestamp: %w", line, err)
	}
	return commitHeader{
		timestamp: ts,
		author:    line[first+1 : last],
		email:     line[last+1:],
	}, nil
}

func parseChange(line string, header commitHeader) (commitlog.Record, bool) {
	if header.author == "" && header.timestamp == 0 {
		return commitlog.Record{}, false
	}
	status, path, ok := strings.Cut(line, "\t")
	if !ok {
		return commitlog.Record{}, false
	}
	change, ok := commitlog.ParseChangeType(status)
	if !ok || strings.TrimSpace(path) == "" {
		return commitlog.Record{}, false
	}
	return commitlog.Record{
		Timestamp:        header.timestamp,
		Author:           header.author,
		AuthorEmail:      header.email,
		ResolvedUsername: header.username,
		Change:           change,
		Path:             path,
	}, true
}

func extractionError(path string, err error) error {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return &services.ExtractionError{Path: path, Stderr: cmdErr.Stderr, Err: err}
	}
	return &services.ExtractionError{Path: path, Err: err}
}
