package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoaderOptions configures Load.
type LoaderOptions struct {
	ConfigDir           string
	Environment         string
	SkipEnvSubstitution bool
	SkipValidation      bool
}

// DefaultLoaderOptions returns Load's defaults.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{ConfigDir: "config"}
}

// Load reads an environment-specific config file from opts.ConfigDir
// (falling back to default.yaml, then config.yaml, then bare
// defaults), applies environment variable overrides, and validates
// the result.
func Load(opts ...LoaderOptions) (*Config, error) {
	options := DefaultLoaderOptions()
	if len(opts) > 0 {
		options = opts[0]
	}

	env := options.Environment
	if env == "" {
		env = GetEnvironment()
	}

	cfg, err := loadConfigFile(filepath.Join(options.ConfigDir, fmt.Sprintf("%s.yaml", env)))
	if err != nil {
		cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "default.yaml"))
		if err != nil {
			cfg, err = loadConfigFile(filepath.Join(options.ConfigDir, "config.yaml"))
			if err != nil {
				cfg = &Config{}
				setDefaults(cfg)
			}
		}
	}

	if cfg.Environment == "" {
		cfg.Environment = env
	}

	if !options.SkipEnvSubstitution {
		applyEnvironmentOverrides(cfg)
	}

	if !options.SkipValidation {
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return cfg, nil
}

func loadConfigFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return LoadFromFile(path)
}

// applyEnvironmentOverrides lets NAIA_* env vars win over file config,
// the teacher's highest-priority override layer (SAGE_LOG_LEVEL etc.)
// renamed to this module's domain.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("NAIA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("NAIA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if os.Getenv("NAIA_METRICS_ENABLED") == "true" {
		cfg.Metrics.Enabled = true
	}
	if os.Getenv("NAIA_METRICS_ENABLED") == "false" {
		cfg.Metrics.Enabled = false
	}
	if v := os.Getenv("NAIA_RTC_ENDPOINT_PATH"); v != "" {
		cfg.Transport.RTCEndpointPath = v
	}
}

// LoadForEnvironment loads configuration for a specific environment.
func LoadForEnvironment(environment string) (*Config, error) {
	return Load(LoaderOptions{ConfigDir: "config", Environment: environment})
}

// MustLoad loads configuration or panics on error.
func MustLoad(opts ...LoaderOptions) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
