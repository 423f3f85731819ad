package config

import (
	"time"

	redisclient "github.com/deploykit/rollbackd/internal/infra/redis"
	"github.com/deploykit/rollbackd/internal/infra/storage/postgres"
	"github.com/deploykit/rollbackd/internal/orchestration/monitor"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Impact   ImpactConfig   `yaml:"impact"`
	Points   PointsConfig   `yaml:"points"`
	Rollback RollbackConfig `yaml:"rollback"`
	Current  CurrentConfig  `yaml:"current"`

	Capability CapabilityConfig `yaml:"capability"`
}

// CapabilityConfig names the external tools the orchestrator drives.
type CapabilityConfig struct {
	CaptureCommand  string        `yaml:"capture_command"`
	ChecksumCommand string        `yaml:"checksum_command"`
	PolicyCommand   string        `yaml:"policy_command"`
	MetricsURL      string        `yaml:"metrics_url"`
	StepTimeout     time.Duration `yaml:"step_timeout"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend  string          `yaml:"backend"` // memory, postgres
	Postgres postgres.Config `yaml:"postgres"`
}

// RedisConfig enables the shared attempt window and point locks for
// multi-instance deployments.
type RedisConfig struct {
	Enabled    bool               `yaml:"enabled"`
	Connection redisclient.Config `yaml:",inline"`
	InstanceID string             `yaml:"instance_id"`
	LockTTL    time.Duration      `yaml:"lock_ttl"`
}

// MonitorConfig wraps the auto-recovery monitor settings.
type MonitorConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings monitor.Config `yaml:",inline"`
}

// ImpactConfig tunes impact assessment.
type ImpactConfig struct {
	UserBase int `yaml:"user_base"`
}

// PointsConfig tunes recovery point housekeeping.
type PointsConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// RollbackConfig tunes execution bookkeeping.
type RollbackConfig struct {
	LogCap int `yaml:"log_cap"`
}

// CurrentConfig describes the live system state rollbacks are assessed
// against. In a real deployment these values come from the release
// pipeline via environment substitution.
type CurrentConfig struct {
	Version        string            `yaml:"version"`
	ConfigVersions map[string]string `yaml:"config_versions"`
	FeatureFlags   map[string]bool   `yaml:"feature_flags"`
}
