package iface

import (
	"strconv"
	"strings"
)

// parseDev turns `iw dev` output into interface records. Interfaces are
// grouped under phy# headers; fields we do not recognize are ignored.
func parseDev(out string) []Info {
	var infos []Info
	var cur *Info
	phy := ""
	flush := func() {
		if cur != nil {
			infos = append(infos, *cur)
			cur = nil
		}
	}
	for _, raw := range strings.Split(out, "\n") {
		if strings.HasPrefix(raw, "phy#") {
			flush()
			phy = strings.TrimSpace(raw)
			continue
		}
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "Interface ") {
			flush()
			cur = &Info{Name: strings.Fields(line)[1], Phy: phy, Mode: ModeUnknown}
			continue
		}
		if cur == nil {
			continue
		}
		applyField(cur, line)
	}
	flush()
	return infos
}

// parseInfo turns `iw dev <iface> info` output into a single record
func parseInfo(out string) (Info, bool) {
	info := Info{Mode: ModeUnknown}
	for _, raw := range strings.Split(out, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "Interface ") {
			info.Name = strings.Fields(line)[1]
			continue
		}
		if strings.HasPrefix(line, "wiphy ") {
			info.Phy = "phy#" + strings.TrimSpace(strings.TrimPrefix(line, "wiphy "))
			continue
		}
		applyField(&info, line)
	}
	return info, info.Name != ""
}

func applyField(info *Info, line string) {
	switch {
	case strings.HasPrefix(line, "addr "):
		info.Addr = strings.TrimSpace(strings.TrimPrefix(line, "addr "))
	case strings.HasPrefix(line, "type "):
		info.Mode = parseMode(strings.TrimSpace(strings.TrimPrefix(line, "type ")))
	case strings.HasPrefix(line, "channel "):
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			if ch, err := strconv.Atoi(fields[1]); err == nil {
				info.Channel = ch
			}
		}
	case strings.HasPrefix(line, "txpower "):
		info.TxPower = strings.TrimSpace(strings.TrimPrefix(line, "txpower "))
	}
}

func parseMode(s string) Mode {
	switch s {
	case "managed":
		return ModeManaged
	case "monitor":
		return ModeMonitor
	default:
		return ModeUnknown
	}
}

// parseLinkUp reads the administrative UP flag from `ip link show` output,
// e.g. "3: wlan0: <BROADCAST,MULTICAST,UP,LOWER_UP> mtu 1500 ...".
func parseLinkUp(out string) bool {
	open := strings.Index(out, "<")
	end := strings.Index(out, ">")
	if open < 0 || end < open {
		return false
	}
	for _, flag := range strings.Split(out[open+1:end], ",") {
		if flag == "UP" {
			return true
		}
	}
	return false
}
