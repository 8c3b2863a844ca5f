package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Polling  PollingConfig  `toml:"polling"`
	Database DatabaseConfig `toml:"database"`
	Output   OutputConfig   `toml:"output"`
}

// BackendConfig contains connection settings for the studio backend.
type BackendConfig struct {
	URL                string `toml:"url"`
	RequestTimeoutSecs int    `toml:"request_timeout_secs"`
}

// PollingConfig contains poll cadences and the job liveness ceiling.
//
// Feature readiness polling deliberately has no ceiling; model downloads may
// legitimately run for many minutes.
type PollingConfig struct {
	JobIntervalMS      int `toml:"job_interval_ms"`
	ProgressIntervalMS int `toml:"progress_interval_ms"`
	InstallIntervalMS  int `toml:"install_interval_ms"`
	FeatureIntervalMS  int `toml:"feature_interval_ms"`
	JobTimeoutMins     int `toml:"job_timeout_mins"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// OutputConfig contains defaults for rendered listings.
type OutputConfig struct {
	Directory string `toml:"directory"`
	Format    string `toml:"format"`
}

// RequestTimeout returns the per-request timeout for backend HTTP calls.
func (b BackendConfig) RequestTimeout() time.Duration {
	if b.RequestTimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.RequestTimeoutSecs) * time.Second
}

// JobInterval returns the per-job status poll cadence.
func (p PollingConfig) JobInterval() time.Duration {
	return durationOr(p.JobIntervalMS, 800*time.Millisecond)
}

// ProgressInterval returns the shared progress poll cadence for generation.
func (p PollingConfig) ProgressInterval() time.Duration {
	return durationOr(p.ProgressIntervalMS, 800*time.Millisecond)
}

// InstallInterval returns the shared progress poll cadence for model installs.
func (p PollingConfig) InstallInterval() time.Duration {
	return durationOr(p.InstallIntervalMS, time.Second)
}

// FeatureInterval returns the feature readiness poll cadence.
func (p PollingConfig) FeatureInterval() time.Duration {
	return durationOr(p.FeatureIntervalMS, 4*time.Second)
}

// JobTimeout returns the hard ceiling after which a job is treated as failed locally.
func (p PollingConfig) JobTimeout() time.Duration {
	if p.JobTimeoutMins <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(p.JobTimeoutMins) * time.Minute
}

func durationOr(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
