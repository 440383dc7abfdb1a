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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, conf.WindowLength)
	assert.Equal(t, time.Minute, conf.SlideInterval)
	assert.Equal(t, time.Minute, conf.AllowedLateness)
	assert.Equal(t, []string{DimensionGlobal, DimensionCountry}, conf.GroupingDimensions)
	assert.Equal(t, int64(100), conf.ReadBatchSize)
	assert.Equal(t, time.Minute, conf.Sinks.RawSummary.TriggerInterval)
	assert.Equal(t, time.Minute, conf.Sinks.TimeKPI.TriggerInterval)
	assert.Equal(t, time.Minute, conf.Sinks.TimeCountryKPI.TriggerInterval)
	assert.Equal(t, "retailpulse", conf.Kafka.ConsumerGroup)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
window_length: 5m
slide_interval: 30s
allowed_lateness: 2m
grouping_dimensions: ["global"]
kafka:
  brokers: ["localhost:9092"]
  topic: real-time-project
sinks:
  output_dir: /tmp/out
  time_kpi:
    trigger_interval: 20s
`), 0o644))

	conf, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, conf.WindowLength)
	assert.Equal(t, 30*time.Second, conf.SlideInterval)
	assert.Equal(t, 2*time.Minute, conf.AllowedLateness)
	assert.Equal(t, []string{"global"}, conf.GroupingDimensions)
	assert.Equal(t, []string{"localhost:9092"}, conf.Kafka.Brokers)
	assert.Equal(t, "real-time-project", conf.Kafka.Topic)
	assert.Equal(t, 20*time.Second, conf.Sinks.TimeKPI.TriggerInterval)
	// untouched keys keep their defaults
	assert.Equal(t, time.Minute, conf.Sinks.RawSummary.TriggerInterval)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		conf, err := Load("")
		require.NoError(t, err)
		return conf
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero window length", mutate: func(c *Config) { c.WindowLength = 0 }},
		{name: "zero slide", mutate: func(c *Config) { c.SlideInterval = 0 }},
		{name: "slide exceeds length", mutate: func(c *Config) { c.SlideInterval = c.WindowLength + time.Minute }},
		{name: "negative lateness", mutate: func(c *Config) { c.AllowedLateness = -time.Second }},
		{name: "zero batch size", mutate: func(c *Config) { c.ReadBatchSize = 0 }},
		{name: "no dimensions", mutate: func(c *Config) { c.GroupingDimensions = nil }},
		{name: "unknown dimension", mutate: func(c *Config) { c.GroupingDimensions = []string{"planet"} }},
		{name: "zero trigger interval", mutate: func(c *Config) { c.Sinks.TimeKPI.TriggerInterval = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := valid()
			tt.mutate(conf)
			assert.Error(t, conf.Validate())
		})
	}
}
