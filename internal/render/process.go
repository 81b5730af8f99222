package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Command describes one external process.
type Command struct {
	Name string
	Args []string
	// Stdin and Stdout are pipe ends owned by the launcher from Start onwards.
	// The launcher closes them once the parent no longer needs its copies.
	Stdin  *os.File
	Stdout *os.File
	Stderr io.Writer
}

// Process is a started external process.
type Process interface {
	// Wait blocks until the process exits and its output is drained.
	Wait() error
	// Terminate asks the process to stop.
	Terminate() error
}

// Launcher starts processes.
type Launcher interface {
	Start(ctx context.Context, cmd Command) (Process, error)
}

// ExitCoder is implemented by errors that carry a process exit status.
type ExitCoder interface {
	ExitCode() int
}

// ExecLauncher starts real processes, each in its own process group so
// termination reaches any children as well.
type ExecLauncher struct{}

// Start launches cmd. Cancellation is delivered through Terminate rather
// than ctx so the caller controls signal order.
func (ExecLauncher) Start(_ context.Context, cmd Command) (Process, error) {
	c := exec.Command(cmd.Name, cmd.Args...) //nolint:gosec
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	}
	err := c.Start()
	closeFile(cmd.Stdin)
	closeFile(cmd.Stdout)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Name, err)
	}
	return &execProcess{cmd: c}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-p.cmd.Process.Pid, unix.SIGTERM)
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func closeFile(f *os.File) {
	if f != nil {
		_ = f.Close()
	}
}

func exitCode(err error) int {
	var coded ExitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return -1
}

// brokenPipe reports whether a process was killed by SIGPIPE, which happens
// when the reader of its stdout went away first.
func brokenPipe(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	return ok && status.Signaled() && status.Signal() == syscall.SIGPIPE
}
