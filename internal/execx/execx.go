// Package execx runs the external tools alfa-scout drives (iw, ip, tshark)
// and classifies how they fail. Child processes are always reaped: foreground
// runs go through exec.CommandContext, background handles keep a waiter
// goroutine alive until the process exits.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"syscall"
	"time"

	"alfa-scout/internal/logger"
)

var (
	// ErrToolNotFound means the external binary is not on PATH
	ErrToolNotFound = errors.New("required tool not found on PATH")
	// ErrPermissionDenied means the tool ran but the kernel refused the operation
	ErrPermissionDenied = errors.New("permission denied (try running as root)")
)

var permissionRe = regexp.MustCompile(`(?i)permission denied|operation not permitted|must be run as root|superuser privileges`)

// Result captures the outcome of one command invocation
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// TimedOut is set when the run was cut short by its own timeout. This is
	// a status, not an error: bounded captures end this way on purpose.
	TimedOut bool
}

// Ok reports whether the command ran to completion with a zero exit
func (r Result) Ok() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// CmdError describes a command that ran and failed
type CmdError struct {
	Cmd    string
	Result Result
	reason error
}

func (e *CmdError) Error() string {
	stderr := strings.TrimSpace(e.Result.Stderr)
	if stderr == "" {
		stderr = "<no stderr>"
	}
	if e.reason != nil {
		return fmt.Sprintf("%s: %v: %s", e.Cmd, e.reason, stderr)
	}
	return fmt.Sprintf("%s: exit status %d: %s", e.Cmd, e.Result.ExitCode, stderr)
}

func (e *CmdError) Unwrap() error { return e.reason }

// Failure wraps a failed Result into an error, classifying privilege
// problems so callers can produce an actionable message.
func Failure(cmdline string, res Result) error {
	var reason error
	if permissionRe.MatchString(res.Stderr) || permissionRe.MatchString(res.Stdout) {
		reason = ErrPermissionDenied
	}
	return &CmdError{Cmd: cmdline, Result: res, reason: reason}
}

// Cmdline renders a program and its arguments for diagnostics
func Cmdline(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// Handle supervises a long-lived background process
type Handle interface {
	// Done is closed once the process has exited and been reaped
	Done() <-chan struct{}
	// Result is valid only after Done is closed
	Result() Result
	// Terminate asks the process to shut down gracefully (SIGTERM)
	Terminate() error
	// Kill forcibly ends the process (SIGKILL)
	Kill() error
}

// Runner abstracts command execution so the state machines above it can be
// tested without real tools on PATH.
type Runner interface {
	// Run executes a program to completion, capturing output. A timeout of
	// zero means no deadline beyond ctx. Timeouts surface as
	// Result.TimedOut, not as an error; a canceled ctx surfaces as the
	// context's error with the child already killed.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error)
	// Start launches a program in the background
	Start(name string, args ...string) (Handle, error)
}

// System is the Runner backed by os/exec
type System struct {
	log *logger.Logger
}

func NewSystem() *System {
	return &System{log: logger.Get()}
}

func (s *System) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	if _, err := exec.LookPath(name); err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}

	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.log.Debug("running: %s", Cmdline(name, args...))
	err := cmd.Run()

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.TimedOut = true
		s.log.Debug("timed out after %v: %s", timeout, Cmdline(name, args...))
		return res, nil
	}
	if ctx.Err() != nil {
		// CommandContext already killed and reaped the child.
		return res, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// Ran and failed; the caller decides what a nonzero exit means.
			return res, nil
		}
		return res, fmt.Errorf("%s: %w", Cmdline(name, args...), err)
	}
	return res, nil
}

func (s *System) Start(name string, args ...string) (Handle, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%s: %w", name, ErrToolNotFound)
	}

	h := &proc{done: make(chan struct{})}
	h.cmd = exec.Command(name, args...)
	h.cmd.Stdout = &h.stdout
	h.cmd.Stderr = &h.stderr

	s.log.Debug("starting in background: %s", Cmdline(name, args...))
	if err := h.cmd.Start(); err != nil {
		return nil, fmt.Errorf("%s: %w", Cmdline(name, args...), err)
	}

	go func() {
		err := h.cmd.Wait()
		h.res = Result{
			Stdout: h.stdout.String(),
			Stderr: h.stderr.String(),
		}
		if h.cmd.ProcessState != nil {
			h.res.ExitCode = h.cmd.ProcessState.ExitCode()
		} else if err != nil {
			h.res.ExitCode = -1
		}
		close(h.done)
	}()

	return h, nil
}

type proc struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
	done   chan struct{}
	res    Result
}

func (p *proc) Done() <-chan struct{} { return p.done }

func (p *proc) Result() Result {
	select {
	case <-p.done:
		return p.res
	default:
		return Result{}
	}
}

func (p *proc) Terminate() error {
	return p.signal(syscall.SIGTERM)
}

func (p *proc) Kill() error {
	return p.signal(syscall.SIGKILL)
}

func (p *proc) signal(sig syscall.Signal) error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
