package monitoring

import (
	"fmt"
	"path/filepath"
	"strings"

	appconfig "github.com/compozy/docchat/pkg/config"
)

// Config holds configuration for monitoring service
type Config struct {
	Enabled      bool
	TextfilePath string
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:      false,
		TextfilePath: "data/metrics/docchat.prom",
	}
}

// FromAppConfig maps the monitoring section of the application config.
func FromAppConfig(cfg *appconfig.MonitoringConfig) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return &Config{Enabled: cfg.Enabled, TextfilePath: cfg.TextfilePath}
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.TextfilePath) == "" {
		return fmt.Errorf("monitoring textfile path cannot be empty")
	}
	// node_exporter's textfile collector only reads *.prom files
	if filepath.Ext(c.TextfilePath) != ".prom" {
		return fmt.Errorf("monitoring textfile path must end in .prom: got %s", c.TextfilePath)
	}
	return nil
}
