// Package report renders persisted surveys as human-readable Markdown.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"alfa-scout/internal/survey"
)

// Render produces a Markdown summary of a survey. It is a pure function:
// the same survey and topN always yield byte-identical output, with networks
// ordered signal-descending and ties broken by BSSID.
func Render(res *survey.Result, topN int) string {
	nets := make([]survey.Network, len(res.Networks))
	copy(nets, res.Networks)
	survey.SortNetworks(nets)
	if topN > 0 && topN < len(nets) {
		nets = nets[:topN]
	}

	var b strings.Builder
	b.WriteString("# Alfa Scout survey report\n\n")
	fmt.Fprintf(&b, "- captured_at: %s\n", res.CapturedAt.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Fprintf(&b, "- iface: %s\n", res.Iface)
	fmt.Fprintf(&b, "- networks: %d", len(res.Networks))
	if res.SkippedBlocks > 0 {
		fmt.Fprintf(&b, " (%d malformed scan block(s) skipped)", res.SkippedBlocks)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Top %d networks by signal\n\n", len(nets))
	b.WriteString("| SSID | BSSID | Channel | Freq (MHz) | Signal (dBm) | Security |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for _, n := range nets {
		fmt.Fprintf(&b, "| %s | %s | %s | %d | %d | %s |\n",
			displaySSID(n.SSID), n.BSSID, displayChannel(n.Channel),
			n.FreqMHz, n.SignalDBm, strings.Join(n.Security, "/"))
	}
	return b.String()
}

// Write renders the survey and writes the Markdown to path, creating parent
// directories as needed.
func Write(res *survey.Result, topN int, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Render(res, topN)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func displaySSID(ssid string) string {
	if ssid == "" {
		return "(hidden)"
	}
	// Pipes would break the table.
	return strings.ReplaceAll(ssid, "|", "\\|")
}

func displayChannel(ch int) string {
	if ch == 0 {
		return "?"
	}
	return strconv.Itoa(ch)
}
