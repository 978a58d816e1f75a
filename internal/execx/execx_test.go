package execx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesOutputAndExitCode(t *testing.T) {
	s := NewSystem()

	res, err := s.Run(context.Background(), 0, "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.True(t, res.Ok())
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRun_NonzeroExitIsNotAnError(t *testing.T) {
	s := NewSystem()

	res, err := s.Run(context.Background(), 0, "sh", "-c", "echo broken >&2; exit 3")
	require.NoError(t, err)
	assert.False(t, res.Ok())
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "broken\n", res.Stderr)
}

func TestRun_ToolNotFound(t *testing.T) {
	s := NewSystem()

	_, err := s.Run(context.Background(), 0, "definitely-not-a-real-tool-xyz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestRun_TimeoutIsStatusNotError(t *testing.T) {
	s := NewSystem()

	start := time.Now()
	res, err := s.Run(context.Background(), 100*time.Millisecond, "sleep", "10")
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_CanceledContext(t *testing.T) {
	s := NewSystem()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := s.Run(ctx, 0, "sleep", "10")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStart_TerminateReapsProcess(t *testing.T) {
	s := NewSystem()

	h, err := s.Start("sleep", "10")
	require.NoError(t, err)

	require.NoError(t, h.Terminate())
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after Terminate")
	}
	assert.Equal(t, -1, h.Result().ExitCode)
}

func TestStart_NaturalExit(t *testing.T) {
	s := NewSystem()

	h, err := s.Start("sh", "-c", "echo hi; exit 0")
	require.NoError(t, err)
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
	res := h.Result()
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hi\n", res.Stdout)

	// Signaling an already-reaped process is a no-op.
	assert.NoError(t, h.Kill())
}

func TestStart_ToolNotFound(t *testing.T) {
	s := NewSystem()

	_, err := s.Start("definitely-not-a-real-tool-xyz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrToolNotFound))
}

func TestFailure_ClassifiesPermissionDenied(t *testing.T) {
	tests := []struct {
		name       string
		stderr     string
		wantDenied bool
	}{
		{"iw phrasing", "command failed: Operation not permitted (-1)", true},
		{"ip phrasing", "RTNETLINK answers: Operation not permitted", true},
		{"tshark phrasing", "tshark: ... Permission denied", true},
		{"unrelated failure", "command failed: No such device (-19)", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Failure("iw dev wlan0 scan", Result{ExitCode: 1, Stderr: tt.stderr})
			require.Error(t, err)
			assert.Equal(t, tt.wantDenied, errors.Is(err, ErrPermissionDenied))

			var cmdErr *CmdError
			require.True(t, errors.As(err, &cmdErr))
			assert.Equal(t, "iw dev wlan0 scan", cmdErr.Cmd)
			assert.Contains(t, cmdErr.Error(), tt.stderr)
		})
	}
}

func TestCmdline(t *testing.T) {
	assert.Equal(t, "iw dev wlan0 scan", Cmdline("iw", "dev", "wlan0", "scan"))
	assert.Equal(t, "iw", Cmdline("iw"))
}
