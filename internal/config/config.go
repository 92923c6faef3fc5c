// Package config loads the process configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	mlog "mosn.io/pkg/log"
)

// Config holds the settings of one ballast process. Environment values are
// defaults, command line flags take precedence.
type Config struct {
	// Port the HTTP server listens on, on all interfaces
	Port int
	// LogLevel is one of trace, debug, info, warn, error
	LogLevel string
	// DefaultMB is the allocation target used when a request gives none
	DefaultMB int
	// MemoryOnly serves the memory routes only
	MemoryOnly bool
	// ReportURL receives lifecycle events when set
	ReportURL string
	// CollectInterval is the period of the monitor loop
	CollectInterval time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:            8080,
		LogLevel:        "info",
		DefaultMB:       2048,
		CollectInterval: 5 * time.Second,
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv loads the configuration from the process environment.
func FromEnv(logger mlog.ErrorLogger) Config {
	return Load(logger, os.LookupEnv)
}

// Load overrides the defaults with every variable lookup finds. Unparsable
// values are logged and ignored.
func Load(logger mlog.ErrorLogger, lookup LookupFunc) Config {
	cfg := Default()

	if v, ok := lookupTrimmed(lookup, "PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			cfg.Port = port
			logger.Infof("[config] loaded PORT from environment: %d", port)
		} else {
			logger.Errorf("[config] failed to parse PORT environment variable: %q", v)
		}
	}

	if v, ok := lookupTrimmed(lookup, "LOG_LEVEL"); ok {
		cfg.LogLevel = v
		logger.Infof("[config] loaded LOG_LEVEL from environment: %s", v)
	}

	if v, ok := lookupTrimmed(lookup, "DEFAULT_ALLOCATION_MB"); ok {
		if mb, err := strconv.Atoi(v); err == nil {
			cfg.DefaultMB = mb
			logger.Infof("[config] loaded DEFAULT_ALLOCATION_MB from environment: %d", mb)
		} else {
			logger.Errorf("[config] failed to parse DEFAULT_ALLOCATION_MB environment variable: %v", err)
		}
	}

	if v, ok := lookupTrimmed(lookup, "MEMORY_ONLY"); ok {
		if memOnly, err := strconv.ParseBool(v); err == nil {
			cfg.MemoryOnly = memOnly
			logger.Infof("[config] loaded MEMORY_ONLY from environment: %t", memOnly)
		} else {
			logger.Errorf("[config] failed to parse MEMORY_ONLY environment variable: %v", err)
		}
	}

	if v, ok := lookupTrimmed(lookup, "REPORT_URL"); ok {
		cfg.ReportURL = v
		logger.Infof("[config] loaded REPORT_URL from environment: %s", v)
	}

	if v, ok := lookupTrimmed(lookup, "COLLECT_INTERVAL"); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CollectInterval = d
			logger.Infof("[config] loaded COLLECT_INTERVAL from environment: %s", d)
		} else {
			logger.Errorf("[config] failed to parse COLLECT_INTERVAL environment variable: %q", v)
		}
	}

	return cfg
}

func lookupTrimmed(lookup LookupFunc, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
