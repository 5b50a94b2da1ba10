package types

import (
	"fmt"
	"time"
)

// Config is the application configuration, loaded once at process start
// from a TOML, YAML or JSON file and passed by value into each component
// constructor. It is never mutated after Validate.
type Config struct {
	// Telemetry source (CloudWatch Logs Insights).
	LogGroupName    string `json:"log_group_name" yaml:"log_group_name" toml:"log_group_name"`
	DeviceIDField   string `json:"device_id_field" yaml:"device_id_field" toml:"device_id_field"`
	StoreNumField   string `json:"store_number_field" yaml:"store_number_field" toml:"store_number_field"`
	TelemetryFilter string `json:"telemetry_filter" yaml:"telemetry_filter" toml:"telemetry_filter"`

	// Cost source (Cost Explorer).
	CostServices []string `json:"cost_services" yaml:"cost_services" toml:"cost_services"`

	// Durable sink (S3).
	Bucket             string `json:"bucket" yaml:"bucket" toml:"bucket"`
	DataPrefix         string `json:"data_prefix" yaml:"data_prefix" toml:"data_prefix"`
	RawTelemetryPrefix string `json:"raw_telemetry_prefix" yaml:"raw_telemetry_prefix" toml:"raw_telemetry_prefix"`
	CostDataPrefix     string `json:"cost_data_prefix" yaml:"cost_data_prefix" toml:"cost_data_prefix"`

	// Collection cadence.
	IntervalMinutes  int `json:"interval_minutes" yaml:"interval_minutes" toml:"interval_minutes"`
	LookbackHours    int `json:"lookback_hours" yaml:"lookback_hours" toml:"lookback_hours"`
	MaxRetryAttempts int `json:"max_retry_attempts" yaml:"max_retry_attempts" toml:"max_retry_attempts"`

	// Correlation engine.
	AllocationMethod    string  `json:"allocation_method" yaml:"allocation_method" toml:"allocation_method"`
	AutoSelectMethod    bool    `json:"auto_select_method" yaml:"auto_select_method" toml:"auto_select_method"`
	TimeWindowMinutes   int     `json:"time_window_minutes" yaml:"time_window_minutes" toml:"time_window_minutes"`
	DecayHours          float64 `json:"decay_hours" yaml:"decay_hours" toml:"decay_hours"`
	PatternLookbackDays int     `json:"pattern_lookback_days" yaml:"pattern_lookback_days" toml:"pattern_lookback_days"`

	// Logging.
	Verbose bool `json:"verbose" yaml:"verbose" toml:"verbose"`
}

// DefaultConfig returns the configuration defaults before any file or
// flag overrides.
func DefaultConfig() Config {
	return Config{
		DeviceIDField:       "device_id",
		StoreNumField:       "store_number",
		CostServices:        []string{"Amazon Bedrock"},
		DataPrefix:          "finops-data",
		RawTelemetryPrefix:  "raw-telemetry",
		CostDataPrefix:      "cost-data",
		IntervalMinutes:     6,
		LookbackHours:       1,
		MaxRetryAttempts:    3,
		AllocationMethod:    "proportional",
		TimeWindowMinutes:   60,
		DecayHours:          2.0,
		PatternLookbackDays: 7,
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.LogGroupName == "" {
		return fmt.Errorf("%w: log_group_name", ErrMissingConfig)
	}
	if c.Bucket == "" {
		return fmt.Errorf("%w: bucket", ErrMissingConfig)
	}
	switch c.AllocationMethod {
	case "proportional", "equal", "usage-based", "token-based":
	default:
		return fmt.Errorf("invalid allocation method: %q", c.AllocationMethod)
	}
	if c.TimeWindowMinutes <= 0 {
		return fmt.Errorf("time_window_minutes must be positive, got %d", c.TimeWindowMinutes)
	}
	if c.LookbackHours <= 0 {
		return fmt.Errorf("lookback_hours must be positive, got %d", c.LookbackHours)
	}
	if c.DecayHours <= 0 {
		return fmt.Errorf("decay_hours must be positive, got %g", c.DecayHours)
	}
	return nil
}

// WindowWidth returns the correlation window width as a duration.
func (c *Config) WindowWidth() time.Duration {
	return time.Duration(c.TimeWindowMinutes) * time.Minute
}

// Lookback returns the collection lookback as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackHours) * time.Hour
}

// Interval returns the scheduler cadence as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}
