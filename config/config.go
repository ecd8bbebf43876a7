// Package config loads the connection-tuning parameters a host
// application needs to stand up a Naia client or server: the §6
// knobs (tick rate, link conditioning, RTT estimates, timeouts) that
// both peers must agree on out of band before a Protocol can be
// shared between them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level connection configuration, loaded once at
// startup and handed to connection.Config/server.Config/client.Config
// construction.
type Config struct {
	Environment string          `yaml:"environment" json:"environment"`
	Tick        TickConfig      `yaml:"tick" json:"tick"`
	Link        LinkConfig      `yaml:"link" json:"link"`
	Transport   TransportConfig `yaml:"transport" json:"transport"`
	Logging     LoggingConfig   `yaml:"logging" json:"logging"`
	Metrics     MetricsConfig   `yaml:"metrics" json:"metrics"`
}

// TickConfig governs the §4.7 tick/ping machinery.
type TickConfig struct {
	TickInterval                 time.Duration `yaml:"tick_interval" json:"tick_interval"`
	PingInterval                 time.Duration `yaml:"ping_interval" json:"ping_interval"`
	RTTInitialEstimate           time.Duration `yaml:"rtt_initial_estimate" json:"rtt_initial_estimate"`
	JitterInitialEstimate        time.Duration `yaml:"jitter_initial_estimate" json:"jitter_initial_estimate"`
	RTTSmoothingFactor           float64       `yaml:"rtt_smoothing_factor" json:"rtt_smoothing_factor"`
	DisconnectionTimeoutDuration time.Duration `yaml:"disconnection_timeout" json:"disconnection_timeout"`
	HeartbeatInterval            time.Duration `yaml:"heartbeat_interval" json:"heartbeat_interval"`
	SendHandshakeInterval        time.Duration `yaml:"send_handshake_interval" json:"send_handshake_interval"`
}

// LinkConfig configures the test/demo link conditioner
// (transport.Conditioner), left disabled (Enabled: false) for a real
// deployment.
type LinkConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	LatencyMean time.Duration `yaml:"latency_mean" json:"latency_mean"`
	Jitter      time.Duration `yaml:"jitter" json:"jitter"`
	DropRate    float64       `yaml:"drop_rate" json:"drop_rate"`
}

// TransportConfig carries the reference httpsession transport's
// session-initiation endpoint path, plus an opt-in compression flag
// (compression itself is a host-transport concern; this just records
// whether the host asked for it so the demo CLI can report it).
type TransportConfig struct {
	RTCEndpointPath string `yaml:"rtc_endpoint_path" json:"rtc_endpoint_path"`
	Compression     bool   `yaml:"compression" json:"compression"`
}

// LoggingConfig configures internal/logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures internal/metrics' Prometheus registration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// LoadFromFile reads and parses cfg from path, trying YAML then JSON,
// and applies defaults for anything left zero-valued.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	setDefaults(cfg)
	return cfg, nil
}

// SaveToFile writes cfg to path, choosing JSON or YAML by extension.
func SaveToFile(cfg *Config, path string) error {
	var data []byte
	var err error
	if strings.HasSuffix(path, ".json") {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// setDefaults fills in the §6 defaults documented on connection.Config
// and tick.PingManager, so a host only needs to override what it
// actually cares about.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Tick.PingInterval == 0 {
		cfg.Tick.PingInterval = time.Second
	}
	if cfg.Tick.RTTInitialEstimate == 0 {
		cfg.Tick.RTTInitialEstimate = 100 * time.Millisecond
	}
	if cfg.Tick.JitterInitialEstimate == 0 {
		cfg.Tick.JitterInitialEstimate = 20 * time.Millisecond
	}
	if cfg.Tick.RTTSmoothingFactor == 0 {
		cfg.Tick.RTTSmoothingFactor = 0.1
	}
	if cfg.Tick.DisconnectionTimeoutDuration == 0 {
		cfg.Tick.DisconnectionTimeoutDuration = 10 * time.Second
	}
	if cfg.Tick.HeartbeatInterval == 0 {
		cfg.Tick.HeartbeatInterval = 2 * time.Second
	}
	if cfg.Tick.SendHandshakeInterval == 0 {
		cfg.Tick.SendHandshakeInterval = time.Second
	}
	if cfg.Transport.RTCEndpointPath == "" {
		cfg.Transport.RTCEndpointPath = "/naia/session"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
