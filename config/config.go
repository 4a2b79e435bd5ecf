// Package config loads the service configuration from a YAML or JSON file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/evsession/core/decisionlog"
	"github.com/kilianp07/evsession/core/factory"
	"github.com/kilianp07/evsession/core/features"
	"github.com/kilianp07/evsession/core/metrics"
	"github.com/kilianp07/evsession/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. EVS_SERVER__ADDR sets
// server.addr.
const EnvPrefix = "EVS_"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the root configuration.
type Config struct {
	Server      ServerConfig         `json:"server"`
	Catalog     CatalogConfig        `json:"catalog"`
	Engine      EngineConfig         `json:"engine"`
	Scoring     factory.ModuleConfig `json:"scoring"`
	Metrics     metrics.Config       `json:"metrics"`
	DecisionLog decisionlog.Config   `json:"decision_log"`
	MQTT        mqtt.Config          `json:"mqtt"`
	Logging     LoggingConfig        `json:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `json:"addr"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	// APIToken protects every route but /healthz when set.
	APIToken string `json:"api_token"`
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// CatalogConfig locates the vehicle catalog file.
type CatalogConfig struct {
	Path  string `json:"path"`
	Watch bool   `json:"watch"`
}

func (c CatalogConfig) Validate() error {
	if c.Path == "" {
		return errors.New("catalog.path is required")
	}
	switch strings.ToLower(filepath.Ext(c.Path)) {
	case ".csv", ".xlsx":
		return nil
	default:
		return fmt.Errorf("catalog.path %q: expected .csv or .xlsx", c.Path)
	}
}

// EngineConfig tunes feature derivation.
type EngineConfig struct {
	ChargeEfficiency float64 `json:"charge_efficiency"`
}

func (c *EngineConfig) SetDefaults() {
	if c.ChargeEfficiency == 0 {
		c.ChargeEfficiency = features.DefaultChargeEfficiency
	}
}

func (c EngineConfig) Validate() error {
	if c.ChargeEfficiency <= 0 || c.ChargeEfficiency > 1 {
		return fmt.Errorf("engine.charge_efficiency must be in (0, 1], got %v", c.ChargeEfficiency)
	}
	return nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Engine.SetDefaults()
	c.MQTT.SetDefaults()
	c.Logging.SetDefaults()
	if c.Scoring.Type == "" {
		c.Scoring.Type = "physics"
	}
}

// Validate checks every section. The catalog is optional so that commands
// reading only the decision log can share the file.
func (c Config) Validate() error {
	var errs []error
	if c.Catalog.Path != "" {
		errs = append(errs, c.Catalog.Validate())
	}
	errs = append(errs,
		c.Engine.Validate(),
		c.DecisionLog.Validate(),
		c.MQTT.Validate(),
		c.Logging.Validate(),
	)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Load reads path (YAML or JSON) and applies EVS_ environment overrides.
// An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("%w: unsupported config format: %s", ErrInvalidConfig, ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
