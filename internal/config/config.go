// Package config loads the console's environment configuration.
package config

import (
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config is the environment-driven configuration of the terminal console.
type Config struct {
	// APIBase is the admin API origin, e.g. "https://api.ctrlcompliance.co.uk".
	APIBase string `env:"CTRL_API_BASE"`

	// AppName is shown in the startup banner.
	AppName string `env:"CTRL_APP_NAME" envDefault:"CTRL Admin"`

	// DataDir holds client-side state such as the trusted-device store.
	DataDir string `env:"CTRL_DATA_DIR" envDefault:"./data"`

	// HTTPTimeout bounds each API request.
	HTTPTimeout time.Duration `env:"CTRL_HTTP_TIMEOUT" envDefault:"15s"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `env:"CTRL_LOG_LEVEL" envDefault:"info"`
}

// New parses the configuration from the environment.
func New() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Wrap(err, "[config.New] parse environment")
	}
	if cfg.APIBase == "" {
		return Config{}, errors.New("[config.New] CTRL_API_BASE is not configured")
	}
	return cfg, nil
}

// TrustStorePath is the SQLite file holding the trusted-device marker.
func (c Config) TrustStorePath() string {
	return filepath.Join(c.DataDir, "devicetrust.db")
}
