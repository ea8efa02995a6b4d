package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/timearch/engine/logger"
)

// Prefix namespaces every environment variable, e.g. TIMEARCH_DB_DRIVER.
const Prefix = "TIMEARCH"

// Config holds application configuration loaded from environment variables.
type Config struct {
	DBDriver     string        `envconfig:"DB_DRIVER" default:"sqlite"` // sqlite|postgres
	DSN          string        `envconfig:"DSN" default:"./data/timearch.db"`
	HTTPAddr     string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"` // debug|info|warn|error
	LogFile      string        `envconfig:"LOG_FILE"`                 // empty logs to stderr only
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" default:"5s"`
	CORSOrigins  []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q (use sqlite or postgres)", c.DBDriver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("config: DSN is required")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("config: QUERY_TIMEOUT must be positive, got %s", c.QueryTimeout)
	}
	return nil
}
