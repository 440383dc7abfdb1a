/*
Copyright 2024 The RetailPulse Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the engine configuration from a YAML file with
// RETAILPULSE_-prefixed environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Grouping dimension names recognized in grouping_dimensions.
const (
	DimensionGlobal  = "global"
	DimensionCountry = "country"
)

// Output stream names.
const (
	StreamRawSummary     = "raw_summary"
	StreamTimeKPI        = "time_kpi"
	StreamTimeCountryKPI = "time_country_kpi"
)

// KafkaConfig configures the ingestion source.
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	ConsumerGroup string   `mapstructure:"consumer_group"`
}

// RedisConfig configures the checkpoint store. An empty URL selects the
// in-memory store (no durability across restarts).
type RedisConfig struct {
	URL       string `mapstructure:"url"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SinkConfig is the per-stream output configuration.
type SinkConfig struct {
	TriggerInterval time.Duration `mapstructure:"trigger_interval"`
}

// SinksConfig configures the three output streams. Each stream's trigger
// cadence is independent.
type SinksConfig struct {
	OutputDir      string     `mapstructure:"output_dir"`
	RawSummary     SinkConfig `mapstructure:"raw_summary"`
	TimeKPI        SinkConfig `mapstructure:"time_kpi"`
	TimeCountryKPI SinkConfig `mapstructure:"time_country_kpi"`
}

// Config is the full configuration surface of the engine.
type Config struct {
	WindowLength  time.Duration `mapstructure:"window_length"`
	SlideInterval time.Duration `mapstructure:"slide_interval"`
	// AllowedLateness bounds how long a window stays open past its end. It is
	// deliberately independent of the trigger intervals.
	AllowedLateness    time.Duration `mapstructure:"allowed_lateness"`
	GroupingDimensions []string      `mapstructure:"grouping_dimensions"`

	ReadBatchSize int64         `mapstructure:"read_batch_size"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`

	Kafka KafkaConfig `mapstructure:"kafka"`
	Redis RedisConfig `mapstructure:"redis"`
	Sinks SinksConfig `mapstructure:"sinks"`

	MetricsPort int `mapstructure:"metrics_port"`
}

// setDefaults applies the reference configuration of the original job:
// 10-minute windows sliding by 1 minute, 1-minute watermark delay, 1-minute
// trigger on every output.
func setDefaults(v *viper.Viper) {
	v.SetDefault("window_length", 10*time.Minute)
	v.SetDefault("slide_interval", time.Minute)
	v.SetDefault("allowed_lateness", time.Minute)
	v.SetDefault("grouping_dimensions", []string{DimensionGlobal, DimensionCountry})
	v.SetDefault("read_batch_size", 100)
	v.SetDefault("read_timeout", time.Second)
	v.SetDefault("kafka.consumer_group", "retailpulse")
	v.SetDefault("redis.key_prefix", "retailpulse")
	v.SetDefault("sinks.output_dir", "output")
	v.SetDefault("sinks.raw_summary.trigger_interval", time.Minute)
	v.SetDefault("sinks.time_kpi.trigger_interval", time.Minute)
	v.SetDefault("sinks.time_country_kpi.trigger_interval", time.Minute)
	v.SetDefault("metrics_port", 2469)
}

// Load reads the configuration file at path (optional, empty path loads
// defaults plus env) and applies environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("RETAILPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.WindowLength <= 0 {
		return fmt.Errorf("window_length must be positive, got %v", c.WindowLength)
	}
	if c.SlideInterval <= 0 {
		return fmt.Errorf("slide_interval must be positive, got %v", c.SlideInterval)
	}
	if c.SlideInterval > c.WindowLength {
		return fmt.Errorf("slide_interval %v must not exceed window_length %v", c.SlideInterval, c.WindowLength)
	}
	if c.AllowedLateness < 0 {
		return fmt.Errorf("allowed_lateness must not be negative, got %v", c.AllowedLateness)
	}
	if c.ReadBatchSize <= 0 {
		return fmt.Errorf("read_batch_size must be positive, got %d", c.ReadBatchSize)
	}
	if len(c.GroupingDimensions) == 0 {
		return fmt.Errorf("at least one grouping dimension is required")
	}
	for _, dim := range c.GroupingDimensions {
		if dim != DimensionGlobal && dim != DimensionCountry {
			return fmt.Errorf("unknown grouping dimension %q", dim)
		}
	}
	for stream, sink := range map[string]SinkConfig{
		StreamRawSummary:     c.Sinks.RawSummary,
		StreamTimeKPI:        c.Sinks.TimeKPI,
		StreamTimeCountryKPI: c.Sinks.TimeCountryKPI,
	} {
		if sink.TriggerInterval <= 0 {
			return fmt.Errorf("sinks.%s.trigger_interval must be positive, got %v", stream, sink.TriggerInterval)
		}
	}
	return nil
}
