package survey

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

var bssidRe = regexp.MustCompile(`^(?i)([0-9a-f]{2}:){5}[0-9a-f]{2}$`)

// parseScan turns raw `iw dev <iface> scan` output into network records.
// The output is block structured: each block starts at a "BSS " line. A
// malformed block is skipped and counted, never aborting the whole survey.
// Repeated BSSIDs keep the entry with the strongest (or equally strong but
// more recent) signal.
func parseScan(out string, seen time.Time) ([]Network, int) {
	var blocks [][]string
	var cur []string
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "BSS ") {
			if cur != nil {
				blocks = append(blocks, cur)
			}
			cur = []string{line}
			continue
		}
		if cur != nil && line != "" {
			cur = append(cur, line)
		}
	}
	if cur != nil {
		blocks = append(blocks, cur)
	}

	byBSSID := make(map[string]Network)
	var order []string
	skipped := 0
	for _, block := range blocks {
		net, err := parseBlock(block, seen)
		if err != nil {
			skipped++
			continue
		}
		prev, dup := byBSSID[net.BSSID]
		if dup && net.SignalDBm < prev.SignalDBm {
			continue
		}
		if !dup {
			order = append(order, net.BSSID)
		}
		byBSSID[net.BSSID] = net
	}

	nets := make([]Network, 0, len(byBSSID))
	for _, bssid := range order {
		nets = append(nets, byBSSID[bssid])
	}
	return nets, skipped
}

// parseBlock reads one BSS block. Hidden networks (no SSID line, or an empty
// one) are kept with an empty SSID; a block whose identity or signal cannot
// be established is malformed.
func parseBlock(lines []string, seen time.Time) (Network, error) {
	header := strings.Fields(lines[0])
	if len(header) < 2 {
		return Network{}, fmt.Errorf("truncated BSS header")
	}
	bssid := header[1]
	if i := strings.Index(bssid, "("); i >= 0 {
		bssid = bssid[:i]
	}
	bssid = strings.ToLower(bssid)
	if !bssidRe.MatchString(bssid) {
		return Network{}, fmt.Errorf("bad BSSID %q", header[1])
	}

	net := Network{BSSID: bssid, LastSeen: seen}
	haveSignal := false
	haveFreq := false
	var flags []string
	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, "freq:"):
			v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(line, "freq:")), 64)
			if err != nil {
				return Network{}, fmt.Errorf("bad freq in %s: %w", bssid, err)
			}
			net.FreqMHz = int(v)
			haveFreq = true
		case strings.HasPrefix(line, "signal:"):
			field := strings.Fields(strings.TrimPrefix(line, "signal:"))
			if len(field) == 0 {
				return Network{}, fmt.Errorf("empty signal in %s", bssid)
			}
			v, err := strconv.ParseFloat(field[0], 64)
			if err != nil {
				return Network{}, fmt.Errorf("bad signal in %s: %w", bssid, err)
			}
			net.SignalDBm = int(math.Round(v))
			haveSignal = true
		case strings.HasPrefix(line, "SSID:"):
			net.SSID = strings.TrimSpace(strings.TrimPrefix(line, "SSID:"))
		case strings.HasPrefix(line, "DS Parameter set: channel "):
			if ch, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "DS Parameter set: channel "))); err == nil {
				net.Channel = ch
			}
		case strings.HasPrefix(line, "RSN:"):
			flags = appendFlag(flags, "RSN")
		case strings.HasPrefix(line, "WPA:"):
			flags = appendFlag(flags, "WPA")
		case strings.HasPrefix(line, "WEP:"):
			flags = appendFlag(flags, "WEP")
		}
	}
	if !haveSignal || !haveFreq {
		return Network{}, fmt.Errorf("block %s missing signal or frequency", bssid)
	}
	if len(flags) == 0 {
		flags = []string{"OPEN"}
	}
	sort.Strings(flags)
	net.Security = flags
	return net, nil
}

func appendFlag(flags []string, flag string) []string {
	for _, f := range flags {
		if f == flag {
			return flags
		}
	}
	return append(flags, flag)
}

// SortNetworks orders records for display and persistence: signal descending,
// ties broken by BSSID ascending. The order is deterministic for any input.
func SortNetworks(nets []Network) {
	sort.Slice(nets, func(i, j int) bool {
		if nets[i].SignalDBm != nets[j].SignalDBm {
			return nets[i].SignalDBm > nets[j].SignalDBm
		}
		return nets[i].BSSID < nets[j].BSSID
	})
}
