package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `server:
  addr: ":9000"
  read_timeout: 2s
  api_token: "secret"
catalog:
  path: "vehicles.csv"
  watch: true
engine:
  charge_efficiency: 0.9
scoring:
  type: "http"
  conf:
    url: "http://model:8000/predict"
metrics:
  prometheus_addr: ":2112"
  sinks:
    - type: "nop"
decision_log:
  backend: "sqlite"
  path: "decisions.db"
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  qos: 1
logging:
  level: "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"server.addr", cfg.Server.Addr, ":9000"},
		{"server.read_timeout", cfg.Server.ReadTimeout, 2 * time.Second},
		{"server.write_timeout default", cfg.Server.WriteTimeout, 30 * time.Second},
		{"server.api_token", cfg.Server.APIToken, "secret"},
		{"catalog.path", cfg.Catalog.Path, "vehicles.csv"},
		{"catalog.watch", cfg.Catalog.Watch, true},
		{"engine.charge_efficiency", cfg.Engine.ChargeEfficiency, 0.9},
		{"scoring.type", cfg.Scoring.Type, "http"},
		{"scoring.conf.url", cfg.Scoring.Conf["url"], "http://model:8000/predict"},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":2112"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"decision_log.backend", cfg.DecisionLog.Backend, "sqlite"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.client_id", cfg.MQTT.ClientID, "cli"},
		{"mqtt.qos", cfg.MQTT.QoS, byte(1)},
		{"mqtt.topic_prefix default", cfg.MQTT.TopicPrefix, "evsession"},
		{"logging.level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadJSONDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{"catalog": {"path": "vehicles.xlsx"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 0.92, cfg.Engine.ChargeEfficiency)
	assert.Equal(t, "physics", cfg.Scoring.Type)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Empty(t, cfg.DecisionLog.Backend)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "server:\n  addr: \":9000\"\n")
	t.Setenv("EVS_SERVER__ADDR", ":7000")
	t.Setenv("EVS_ENGINE__CHARGE_EFFICIENCY", "0.8")
	t.Setenv("EVS_LOGGING__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 0.8, cfg.Engine.ChargeEfficiency)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadEnvOnly(t *testing.T) {
	t.Setenv("EVS_CATALOG__PATH", "fleet.csv")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "fleet.csv", cfg.Catalog.Path)
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]struct {
		name string
		data string
	}{
		"format":      {"config.toml", "x = 1"},
		"efficiency":  {"config.yaml", "engine:\n  charge_efficiency: 1.5\n"},
		"catalog ext": {"config.yaml", "catalog:\n  path: vehicles.txt\n"},
		"log backend": {"config.yaml", "decision_log:\n  backend: postgres\n  path: x\n"},
		"mqtt broker": {"config.yaml", "mqtt:\n  enabled: true\n"},
		"level":       {"config.yaml", "logging:\n  level: loud\n"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, c.name, c.data))
			require.Error(t, err)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
