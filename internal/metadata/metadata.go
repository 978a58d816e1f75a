// Package metadata describes the host a survey or capture was taken on,
// for embedding in survey output and support bundles.
package metadata

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"

	"alfa-scout/internal/version"
)

// Host identifies where a survey was taken
type Host struct {
	Hostname     string `json:"hostname"`
	OS           string `json:"os"`
	ScoutVersion string `json:"scout_version"`
}

// Collect gathers host metadata. Fields that cannot be determined are left
// with a generic value rather than failing the caller.
func Collect() Host {
	h := Host{
		OS:           osDescription(),
		ScoutVersion: version.Version,
	}
	if hn, err := os.Hostname(); err == nil {
		h.Hostname = hn
	}
	return h
}

// Describe renders host and runtime details as text for support bundles
func Describe() string {
	var b strings.Builder
	h := Collect()
	fmt.Fprintf(&b, "Hostname: %s\n", h.Hostname)
	fmt.Fprintf(&b, "OS: %s\n", h.OS)
	fmt.Fprintf(&b, "Arch: %s\n", runtime.GOARCH)
	fmt.Fprintf(&b, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(&b, "alfa-scout version: %s\n", h.ScoutVersion)
	return b.String()
}

func osDescription() string {
	if runtime.GOOS != "linux" {
		return runtime.GOOS
	}
	file, err := os.Open("/etc/os-release")
	if err != nil {
		return "Linux"
	}
	defer file.Close()

	var name, ver string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "NAME=") {
			name = strings.Trim(strings.TrimPrefix(line, "NAME="), "\"")
		} else if strings.HasPrefix(line, "VERSION=") {
			ver = strings.Trim(strings.TrimPrefix(line, "VERSION="), "\"")
		}
	}
	switch {
	case name != "" && ver != "":
		return name + " " + ver
	case name != "":
		return name
	default:
		return "Linux"
	}
}
