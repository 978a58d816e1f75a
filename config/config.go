package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"alfa-scout/internal/logger"
)

// SearchPaths are tried in order when no explicit config path is given
var SearchPaths = []string{
	"/etc/alfa-scout/alfa-scout.json",
	"alfa-scout.json",
}

// Config represents the application configuration
type Config struct {
	// Logging configuration
	Logging struct {
		// Level is the minimum log level to output (debug, info, warn, error)
		Level string `json:"level"`
		// File is the path to the log file. If empty, logs go to stderr
		File string `json:"file"`
		// MaxSizeMB is the maximum size of the log file before rotation
		MaxSizeMB int `json:"max_size_mb"`
		// RetentionDays is how long rotated logs are kept
		RetentionDays int `json:"retention_days"`
	} `json:"logging"`

	// Scan configuration
	Scan struct {
		// TimeoutSeconds bounds `iw scan`, which can stall on unresponsive
		// hardware. A timeout here is a hard failure, not a result.
		TimeoutSeconds int `json:"timeout_seconds"`
	} `json:"scan"`

	// Capture configuration
	Capture struct {
		// DefaultSeconds is the capture duration when --seconds is not given
		DefaultSeconds int `json:"default_seconds"`
		// GraceSeconds is how long a capture process gets to exit after a
		// graceful termination request before it is killed
		GraceSeconds int `json:"grace_seconds"`
	} `json:"capture"`

	// Report configuration
	Report struct {
		// TopN is how many networks the report table shows. 0 shows all.
		TopN int `json:"top_n"`
	} `json:"report"`

	// ReportsDir is the default directory for survey, capture, and report files
	ReportsDir string `json:"reports_dir"`
}

// Load reads configuration from a JSON file. With an empty path the standard
// locations are tried and built-in defaults are used when none exists; an
// explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	var cfg Config
	if path == "" {
		for _, candidate := range SearchPaths {
			if data, err := os.ReadFile(candidate); err == nil {
				if err := json.Unmarshal(data, &cfg); err != nil {
					return nil, fmt.Errorf("failed to parse config file %s: %w", candidate, err)
				}
				break
			}
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ValidateAndSetDefaults()
	return &cfg, nil
}

// ValidateAndSetDefaults fills in defaults for unset fields
func (c *Config) ValidateAndSetDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 20
	}
	if c.Logging.RetentionDays == 0 {
		c.Logging.RetentionDays = 7
	}
	if c.Scan.TimeoutSeconds == 0 {
		c.Scan.TimeoutSeconds = 45
	}
	if c.Capture.DefaultSeconds == 0 {
		c.Capture.DefaultSeconds = 45
	}
	if c.Capture.GraceSeconds == 0 {
		c.Capture.GraceSeconds = 5
	}
	if c.Report.TopN == 0 {
		c.Report.TopN = 10
	}
	if c.ReportsDir == "" {
		c.ReportsDir = "reports"
	}
}

// InitializeLogging sets up the default logger based on config
func (c *Config) InitializeLogging() error {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return logger.Initialize(logger.Config{
		Level:         level,
		File:          c.Logging.File,
		MaxSizeMB:     c.Logging.MaxSizeMB,
		RetentionDays: c.Logging.RetentionDays,
	})
}

// ifNameMax is the kernel's IFNAMSIZ-1: interface names are at most 15 bytes
const ifNameMax = 15

// ValidateInterfaceName rejects anything that is not a plausible Linux
// interface name. Every name that reaches an external command line goes
// through this first.
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}
	if len(name) > ifNameMax {
		return fmt.Errorf("interface name too long: %d characters (max %d)", len(name), ifNameMax)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return fmt.Errorf("interface name contains invalid characters: %q", name)
		}
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("interface name contains invalid characters: %q", name)
	}
	return nil
}
