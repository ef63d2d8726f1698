package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Orphan policies applied to child tasks when their parent is deleted.
const (
	OrphanNull     = "null"
	OrphanReparent = "reparent"
	OrphanReject   = "reject"
)

// Config keeps runtime settings shared by ganttbot and ganttctl.
type Config struct {
	TelegramToken      string
	MasterDatabaseURL  string
	ProjectsDir        string
	ReportInterval     time.Duration
	DigestTime         string
	LogLevel           string
	LogFormat          string
	MetricsAddr        string
	EnforceAcyclic     bool
	OrphanPolicy       string
	StrictPredecessors bool
	AdminTelegramIDs   []int64
}

// Load reads configuration from an optional .env file and the environment, with sane defaults.
func Load() (Config, error) {
	// A missing .env is fine; real environment variables win over it.
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken:      strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		MasterDatabaseURL:  strings.TrimSpace(os.Getenv("MASTER_DATABASE_URL")),
		ProjectsDir:        strings.TrimSpace(os.Getenv("PROJECTS_DIR")),
		ReportInterval:     parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS"))),
		DigestTime:         strings.TrimSpace(os.Getenv("DIGEST_TIME")),
		LogLevel:           strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFormat:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
		MetricsAddr:        strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		EnforceAcyclic:     parseBool(os.Getenv("ENFORCE_ACYCLIC"), true),
		OrphanPolicy:       strings.ToLower(strings.TrimSpace(os.Getenv("ORPHAN_POLICY"))),
		StrictPredecessors: parseBool(os.Getenv("STRICT_PREDECESSORS"), false),
	}

	if cfg.MasterDatabaseURL == "" {
		cfg.MasterDatabaseURL = "gantt_master.db"
	}
	if cfg.ProjectsDir == "" {
		cfg.ProjectsDir = "projects"
	}
	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 24 * time.Hour
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.OrphanPolicy == "" {
		cfg.OrphanPolicy = OrphanNull
	}

	switch cfg.OrphanPolicy {
	case OrphanNull, OrphanReparent, OrphanReject:
	default:
		return cfg, fmt.Errorf("ORPHAN_POLICY must be one of null, reparent, reject (got %q)", cfg.OrphanPolicy)
	}

	ids, err := parseIDList(os.Getenv("ADMIN_TELEGRAM_IDS"))
	if err != nil {
		return cfg, fmt.Errorf("ADMIN_TELEGRAM_IDS: %w", err)
	}
	cfg.AdminTelegramIDs = ids

	return cfg, nil
}

// RequireTelegram validates settings only the bot needs.
func (c Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	return nil
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseBool(raw string, fallback bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
