// Package survey runs a Wi-Fi scan on an interface and persists the visible
// networks as a structured JSON snapshot.
package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"alfa-scout/internal/execx"
	"alfa-scout/internal/iface"
	"alfa-scout/internal/logger"
	"alfa-scout/internal/metadata"
)

// ErrScanTimeout means the scan command did not finish inside its deadline.
// Unlike a capture deadline this is a hard failure: the scan produced nothing.
var ErrScanTimeout = errors.New("scan timed out")

// Network is one access point seen during a survey
type Network struct {
	BSSID     string    `json:"bssid"`
	SSID      string    `json:"ssid"`
	FreqMHz   int       `json:"freq_mhz"`
	Channel   int       `json:"channel,omitempty"`
	SignalDBm int       `json:"signal_dbm"`
	Security  []string  `json:"security"`
	LastSeen  time.Time `json:"last_seen"`
}

// Result is one survey snapshot: the networks plus metadata about how and
// where they were collected. Networks are unique by BSSID and stored already
// ordered by the display rule (signal descending, BSSID ascending on ties).
type Result struct {
	Iface         string        `json:"iface"`
	CapturedAt    time.Time     `json:"captured_at"`
	DurationMS    int64         `json:"duration_ms"`
	Host          metadata.Host `json:"host"`
	SkippedBlocks int           `json:"skipped_blocks"`
	Networks      []Network     `json:"networks"`
}

// Engine triggers scans and turns their raw output into survey results
type Engine struct {
	run     execx.Runner
	ifaces  *iface.Manager
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time
}

func NewEngine(run execx.Runner, ifaces *iface.Manager, timeout time.Duration) *Engine {
	return &Engine{
		run:     run,
		ifaces:  ifaces,
		timeout: timeout,
		log:     logger.Get(),
		now:     time.Now,
	}
}

// Survey scans on the named interface and, when outPath is non-empty, writes
// the result there as JSON. A survey that sees zero networks is a success.
func (e *Engine) Survey(ctx context.Context, name, outPath string) (*Result, error) {
	if _, err := e.ifaces.Status(ctx, name); err != nil {
		return nil, err
	}

	start := e.now()
	e.log.Info("scanning on %s (timeout %v)", name, e.timeout)
	res, err := e.run.Run(ctx, e.timeout, "iw", "dev", name, "scan")
	if err != nil {
		return nil, err
	}
	if res.TimedOut {
		return nil, fmt.Errorf("iw scan on %s gave up after %v: %w", name, e.timeout, ErrScanTimeout)
	}
	if !res.Ok() {
		return nil, execx.Failure(execx.Cmdline("iw", "dev", name, "scan"), res)
	}

	nets, skipped := parseScan(res.Stdout, e.now())
	if skipped > 0 {
		e.log.Warn("survey on %s skipped %d malformed scan block(s)", name, skipped)
	}
	SortNetworks(nets)
	if nets == nil {
		nets = []Network{}
	}

	result := &Result{
		Iface:         name,
		CapturedAt:    start.UTC(),
		DurationMS:    e.now().Sub(start).Milliseconds(),
		Host:          metadata.Collect(),
		SkippedBlocks: skipped,
		Networks:      nets,
	}

	if outPath != "" {
		if err := result.Write(outPath); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Write persists the survey as indented JSON, creating parent directories
func (r *Result) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode survey: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write survey: %w", err)
	}
	return nil
}

// Load reads a previously persisted survey
func Load(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read survey file: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse survey file %s: %w", path, err)
	}
	return &r, nil
}
