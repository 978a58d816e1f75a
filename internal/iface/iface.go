// Package iface sequences wireless interface mode transitions and queries,
// driving `iw` and `ip` through the command executor. The adapter's real mode
// lives in the kernel, so every decision starts from a fresh status query and
// nothing is cached between calls.
package iface

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"alfa-scout/config"
	"alfa-scout/internal/execx"
	"alfa-scout/internal/logger"
)

// Mode is a wireless interface operating mode
type Mode string

const (
	ModeManaged Mode = "managed"
	ModeMonitor Mode = "monitor"
	ModeUnknown Mode = "unknown"
)

// Info describes one wireless interface at query time
type Info struct {
	Name    string
	Phy     string
	Addr    string
	Mode    Mode
	Channel int
	TxPower string
	Up      bool
}

// ErrInterfaceNotFound means the named interface does not exist
var ErrInterfaceNotFound = errors.New("interface not found")

// TransitionError reports a failed mode transition with the failing step and
// whether the best-effort rollback restored the interface.
type TransitionError struct {
	Iface    string
	Target   Mode
	Step     string
	Cause    error
	Restored bool
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s transition on %s failed at step %s: %v", e.Target, e.Iface, e.Step, e.Cause)
	if e.Restored {
		msg += " (interface restored to previous mode)"
	} else {
		msg += " (rollback incomplete: check interface state manually)"
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.Cause }

// Manager runs interface queries and mode transitions
type Manager struct {
	run execx.Runner
	log *logger.Logger
}

func NewManager(run execx.Runner) *Manager {
	return &Manager{run: run, log: logger.Get()}
}

// List returns all wireless interfaces reported by `iw dev`
func (m *Manager) List(ctx context.Context) ([]Info, error) {
	res, err := m.run.Run(ctx, 0, "iw", "dev")
	if err != nil {
		return nil, err
	}
	if !res.Ok() {
		return nil, execx.Failure(execx.Cmdline("iw", "dev"), res)
	}
	return parseDev(res.Stdout), nil
}

// Status reads the current state of one interface. The result is never
// cached: the adapter can change mode underneath us at any time.
func (m *Manager) Status(ctx context.Context, name string) (Info, error) {
	if err := config.ValidateInterfaceName(name); err != nil {
		return Info{}, err
	}

	res, err := m.run.Run(ctx, 0, "iw", "dev", name, "info")
	if err != nil {
		return Info{}, err
	}
	if !res.Ok() {
		if noSuchDevice(res) {
			return Info{}, fmt.Errorf("%s: %w", name, ErrInterfaceNotFound)
		}
		return Info{}, execx.Failure(execx.Cmdline("iw", "dev", name, "info"), res)
	}

	info, ok := parseInfo(res.Stdout)
	if !ok {
		return Info{}, fmt.Errorf("%s: unrecognized `iw dev %s info` output", name, name)
	}

	if linkRes, err := m.run.Run(ctx, 0, "ip", "link", "show", name); err == nil && linkRes.Ok() {
		info.Up = parseLinkUp(linkRes.Stdout)
	} else {
		m.log.Warn("could not read link state for %s", name)
	}
	return info, nil
}

// EnableMonitor switches the interface into monitor mode. Returns false with
// a nil error when the interface is already in monitor mode, in which case no
// down/up cycling happens at all.
func (m *Manager) EnableMonitor(ctx context.Context, name string) (bool, error) {
	return m.setMode(ctx, name, ModeMonitor)
}

// DisableMonitor switches the interface back to managed mode
func (m *Manager) DisableMonitor(ctx context.Context, name string) (bool, error) {
	return m.setMode(ctx, name, ModeManaged)
}

// SetChannel tunes the interface to the given channel
func (m *Manager) SetChannel(ctx context.Context, name string, channel int) error {
	if err := config.ValidateInterfaceName(name); err != nil {
		return err
	}
	args := []string{"dev", name, "set", "channel", strconv.Itoa(channel)}
	res, err := m.run.Run(ctx, 0, "iw", args...)
	if err != nil {
		return err
	}
	if !res.Ok() {
		return execx.Failure(execx.Cmdline("iw", args...), res)
	}
	return nil
}

type step struct {
	id   string
	name string
	args []string
}

func (m *Manager) setMode(ctx context.Context, name string, target Mode) (bool, error) {
	info, err := m.Status(ctx, name)
	if err != nil {
		return false, err
	}
	if info.Mode == target {
		m.log.Info("%s already in %s mode, nothing to do", name, target)
		return false, nil
	}

	steps := []step{
		{"link-down", "ip", []string{"link", "set", name, "down"}},
		{"set-type", "iw", []string{"dev", name, "set", "type", string(target)}},
		{"link-up", "ip", []string{"link", "set", name, "up"}},
	}

	for i, st := range steps {
		m.log.Info("transition %s -> %s: %s", name, target, st.id)
		res, err := m.run.Run(ctx, 0, st.name, st.args...)
		if err == nil && !res.Ok() {
			err = execx.Failure(execx.Cmdline(st.name, st.args...), res)
		}
		if err != nil {
			restored := true
			if i > 0 {
				// The interface is down and possibly retyped: put it back the
				// way we found it rather than leaving it administratively dead.
				restored = m.rollback(ctx, name, info.Mode)
			}
			return false, &TransitionError{
				Iface:    name,
				Target:   target,
				Step:     st.id,
				Cause:    err,
				Restored: restored,
			}
		}
	}
	return true, nil
}

// rollback restores the prior mode and brings the link back up, best effort
func (m *Manager) rollback(ctx context.Context, name string, prior Mode) bool {
	ok := true
	if prior == ModeManaged || prior == ModeMonitor {
		res, err := m.run.Run(ctx, 0, "iw", "dev", name, "set", "type", string(prior))
		if err != nil || !res.Ok() {
			ok = false
		}
	}
	res, err := m.run.Run(ctx, 0, "ip", "link", "set", name, "up")
	if err != nil || !res.Ok() {
		ok = false
	}
	if ok {
		m.log.Warn("restored %s to %s mode after failed transition", name, prior)
	} else {
		m.log.Error("rollback of %s to %s mode incomplete", name, prior)
	}
	return ok
}

func noSuchDevice(res execx.Result) bool {
	return strings.Contains(res.Stderr, "No such device") ||
		strings.Contains(res.Stderr, "does not exist")
}
