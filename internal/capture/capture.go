// Package capture runs time-bounded packet capture sessions by supervising a
// tshark subprocess against a wall-clock deadline and external cancellation.
// Whichever of subprocess exit, deadline, or cancellation happens first drives
// the session to its terminal state; on every path the subprocess is reaped
// before Capture returns.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"alfa-scout/internal/execx"
	"alfa-scout/internal/iface"
	"alfa-scout/internal/logger"
)

// Status is a capture session lifecycle state
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

var (
	// ErrChannelSetFailed means the pre-capture channel tune failed; the
	// capture itself was never started.
	ErrChannelSetFailed = errors.New("channel set failed")
	// ErrCaptureFailed means the capture subprocess exited with an error
	// before its deadline.
	ErrCaptureFailed = errors.New("capture failed")
)

var bssidRe = regexp.MustCompile(`^(?i)([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// Request describes one capture session to run
type Request struct {
	Iface      string
	Duration   time.Duration
	Channel    int    // 0 means leave the channel alone
	BSSID      string // empty means no address filter
	OutputPath string
}

// Session is the record of one capture run. It is owned by the controller
// while running; callers get it back once it has reached a terminal state.
type Session struct {
	ID         string
	Iface      string
	Duration   time.Duration
	Channel    int
	BSSID      string
	OutputPath string
	Status     Status
	StartedAt  time.Time
	EndedAt    time.Time
	// Stderr holds the subprocess stderr when the session failed
	Stderr string
	// ForcedKill is set when the subprocess ignored graceful termination
	// and had to be killed
	ForcedKill bool
	// FileErr reports the output-container check after Completed/Cancelled;
	// nil means the file at OutputPath is a well-formed capture file.
	FileErr error
}

// Deliverable reports whether the output file is usable by the caller
func (s *Session) Deliverable() bool {
	return (s.Status == StatusCompleted || s.Status == StatusCancelled) && s.FileErr == nil
}

// Controller supervises capture sessions
type Controller struct {
	run    execx.Runner
	ifaces *iface.Manager
	grace  time.Duration
	log    *logger.Logger

	checkFile func(string) error
	now       func() time.Time
}

func NewController(run execx.Runner, ifaces *iface.Manager, grace time.Duration) *Controller {
	return &Controller{
		run:       run,
		ifaces:    ifaces,
		grace:     grace,
		log:       logger.Get(),
		checkFile: CheckFile,
		now:       time.Now,
	}
}

// Capture runs one session to a terminal state. Deadline expiry and caller
// cancellation are success paths (Completed and Cancelled); only tool
// failures return an error alongside the session.
func (c *Controller) Capture(ctx context.Context, req Request) (*Session, error) {
	sess := &Session{
		ID:         uuid.NewString(),
		Iface:      req.Iface,
		Duration:   req.Duration,
		Channel:    req.Channel,
		BSSID:      req.BSSID,
		OutputPath: req.OutputPath,
		Status:     StatusPending,
	}

	if req.Duration <= 0 {
		sess.Status = StatusFailed
		return sess, fmt.Errorf("capture duration must be positive, got %v", req.Duration)
	}
	if req.BSSID != "" && !bssidRe.MatchString(req.BSSID) {
		sess.Status = StatusFailed
		return sess, fmt.Errorf("invalid BSSID filter %q", req.BSSID)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0755); err != nil {
		sess.Status = StatusFailed
		return sess, fmt.Errorf("failed to create output directory: %w", err)
	}

	if req.Channel > 0 {
		if err := c.ifaces.SetChannel(ctx, req.Iface, req.Channel); err != nil {
			// Fail fast: a capture on the wrong channel is worse than none.
			sess.Status = StatusFailed
			return sess, fmt.Errorf("%w: %w", ErrChannelSetFailed, err)
		}
	}

	args := captureArgs(req)
	h, err := c.run.Start("tshark", args...)
	if err != nil {
		sess.Status = StatusFailed
		return sess, err
	}

	sess.Status = StatusRunning
	sess.StartedAt = c.now()
	c.log.Info("capture %s running on %s for %v -> %s", sess.ID, req.Iface, req.Duration, req.OutputPath)

	deadline := time.NewTimer(req.Duration)
	defer deadline.Stop()

	var retErr error
	select {
	case <-h.Done():
		res := h.Result()
		if res.ExitCode == 0 {
			sess.Status = StatusCompleted
		} else {
			sess.Status = StatusFailed
			sess.Stderr = res.Stderr
			retErr = fmt.Errorf("%w: %w", ErrCaptureFailed,
				execx.Failure(execx.Cmdline("tshark", args...), res))
		}
	case <-deadline.C:
		// The deadline ran out as expected; stop the tool and call it done.
		sess.ForcedKill = c.stop(h)
		sess.Status = StatusCompleted
	case <-ctx.Done():
		sess.ForcedKill = c.stop(h)
		sess.Status = StatusCancelled
		c.log.Info("capture %s cancelled by caller", sess.ID)
	}
	sess.EndedAt = c.now()

	if sess.Status == StatusCompleted || sess.Status == StatusCancelled {
		sess.FileErr = c.checkFile(req.OutputPath)
		if sess.FileErr != nil {
			c.log.Warn("capture %s output check failed: %v", sess.ID, sess.FileErr)
		}
	}
	return sess, retErr
}

// stop terminates the subprocess, escalating to SIGKILL after the grace
// period. Returns true when the kill escalation was needed. The process is
// always reaped before stop returns.
func (c *Controller) stop(h execx.Handle) bool {
	if err := h.Terminate(); err != nil {
		c.log.Warn("graceful termination failed: %v", err)
	}
	select {
	case <-h.Done():
		return false
	case <-time.After(c.grace):
	}
	c.log.Warn("capture process ignored SIGTERM for %v, killing", c.grace)
	if err := h.Kill(); err != nil {
		c.log.Error("kill failed: %v", err)
	}
	<-h.Done()
	return true
}

// captureArgs builds the tshark invocation: monitor mode, bounded duration,
// and the BSSID passed through as a native capture filter.
func captureArgs(req Request) []string {
	args := []string{
		"-I",
		"-i", req.Iface,
		"-w", req.OutputPath,
		"-a", fmt.Sprintf("duration:%d", int(req.Duration.Seconds())),
	}
	if req.BSSID != "" {
		args = append(args, "-f", "wlan host "+req.BSSID)
	}
	return args
}
