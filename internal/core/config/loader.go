package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/deploykit/rollbackd/internal/orchestration/monitor"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a runnable in-memory configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "memory"
	}
	if cfg.Points.SweepInterval == 0 {
		cfg.Points.SweepInterval = time.Hour
	}
	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = 10 * time.Minute
	}
	if cfg.Redis.InstanceID == "" {
		cfg.Redis.InstanceID = "default"
	}
	if cfg.Impact.UserBase == 0 {
		cfg.Impact.UserBase = 1000
	}
	if cfg.Capability.StepTimeout == 0 {
		cfg.Capability.StepTimeout = 2 * time.Minute
	}

	def := monitor.DefaultConfig()
	m := &cfg.Monitor.Settings
	if m.Interval == 0 {
		m.Interval = def.Interval
	}
	if m.RecoveryWindow == 0 {
		m.RecoveryWindow = def.RecoveryWindow
	}
	if m.MaxAutoRecoveries == 0 {
		m.MaxAutoRecoveries = def.MaxAutoRecoveries
	}
	if m.MinPointScore == 0 {
		m.MinPointScore = def.MinPointScore
	}
	if m.Thresholds.ErrorRate == 0 {
		m.Thresholds.ErrorRate = def.Thresholds.ErrorRate
	}
	if m.Thresholds.ResponseTimeMs == 0 {
		m.Thresholds.ResponseTimeMs = def.Thresholds.ResponseTimeMs
	}
	if m.Thresholds.ConsecutiveHealthFails == 0 {
		m.Thresholds.ConsecutiveHealthFails = def.Thresholds.ConsecutiveHealthFails
	}
}
