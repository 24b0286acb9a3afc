package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultCycleInterval controls how frequently the engine advances one simulation cycle.
	DefaultCycleInterval = 200 * time.Millisecond
	// DefaultEventRetention bounds how many broadcast events are kept for observer replay.
	DefaultEventRetention = 512
	// DefaultCommandRate limits how many commands a single player may issue per second.
	DefaultCommandRate = 10.0
	// DefaultCommandBurst sets the token bucket depth for the per-player command limiter.
	DefaultCommandBurst = 20
	// DefaultJournalDir is where event journals and state snapshots are written.
	DefaultJournalDir = "journals"
	// DefaultSnapshotInterval controls how frequently full state snapshots enter the journal.
	DefaultSnapshotInterval = 30 * time.Second

	// DefaultLogLevel controls verbosity for engine logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "astriarch.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// Config captures all runtime tunables for the simulation engine.
type Config struct {
	CycleInterval    time.Duration
	EventRetention   int
	CommandRate      float64
	CommandBurst     int
	JournalDir       string
	SnapshotInterval time.Duration
	RandomSeed       int64
	Logging          LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the engine configuration from environment variables, applying sane defaults
// and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		CycleInterval:    DefaultCycleInterval,
		EventRetention:   DefaultEventRetention,
		CommandRate:      DefaultCommandRate,
		CommandBurst:     DefaultCommandBurst,
		JournalDir:       getString("ASTRIARCH_JOURNAL_DIR", DefaultJournalDir),
		SnapshotInterval: DefaultSnapshotInterval,
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("ASTRIARCH_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("ASTRIARCH_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_CYCLE_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_CYCLE_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.CycleInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_EVENT_RETENTION")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_EVENT_RETENTION must be a positive integer, got %q", raw))
		} else {
			cfg.EventRetention = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_CMD_RATE")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_CMD_RATE must be a positive number, got %q", raw))
		} else {
			cfg.CommandRate = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_CMD_BURST")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_CMD_BURST must be a positive integer, got %q", raw))
		} else {
			cfg.CommandBurst = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_SNAPSHOT_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_SNAPSHOT_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.SnapshotInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_SEED")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_SEED must be an integer, got %q", raw))
		} else {
			cfg.RandomSeed = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("ASTRIARCH_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("ASTRIARCH_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
