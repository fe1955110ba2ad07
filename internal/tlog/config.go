package tlog

import (
	"os"
	"strconv"
	"time"
)

// Config holds tunables for the background compactor and recovery pass.
// All fields have usable zero-value-free defaults via DefaultConfig.
type Config struct {
	// CompactInterval is the time between compaction runs. A compaction
	// rewrites the live log to a single dump() snapshot once it grows past
	// CompactThresholdBytes.
	CompactInterval time.Duration

	// CompactThresholdBytes is the log file size, in bytes, above which the
	// next compaction tick will rewrite it.
	CompactThresholdBytes int64

	// RetryInitialBackoff is the first backoff duration after a failed
	// compaction attempt.
	RetryInitialBackoff time.Duration

	// RetryMaxBackoff caps the exponential backoff between compaction
	// retries.
	RetryMaxBackoff time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CompactInterval:       time.Hour,
		CompactThresholdBytes: 16 * 1024 * 1024,
		RetryInitialBackoff:   time.Second,
		RetryMaxBackoff:       time.Minute,
	}
}

// LoadConfigFromEnv overlays environment variables onto DefaultConfig:
//
//	TLOG_COMPACT_INTERVAL        - Go duration string (default: 1h)
//	TLOG_COMPACT_THRESHOLD_BYTES - integer byte count (default: 16777216)
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("TLOG_COMPACT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CompactInterval = d
		}
	}
	if v := os.Getenv("TLOG_COMPACT_THRESHOLD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.CompactThresholdBytes = n
		}
	}
	return cfg
}
