package config

import "fmt"

// Validate checks cfg's required fields and value ranges, equivalent
// to the teacher's ValidateConfiguration error-level checks but
// returning a single error rather than a severity-leveled list (no
// caller in this module distinguishes warnings from errors).
func Validate(cfg *Config) error {
	if cfg.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if cfg.Tick.RTTSmoothingFactor < 0 || cfg.Tick.RTTSmoothingFactor > 1 {
		return fmt.Errorf("tick.rtt_smoothing_factor must be in [0,1], got %f", cfg.Tick.RTTSmoothingFactor)
	}
	if cfg.Tick.PingInterval <= 0 {
		return fmt.Errorf("tick.ping_interval must be positive")
	}
	if cfg.Link.Enabled && (cfg.Link.DropRate < 0 || cfg.Link.DropRate > 1) {
		return fmt.Errorf("link.drop_rate must be in [0,1], got %f", cfg.Link.DropRate)
	}
	return nil
}
