// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the ferryd daemon configuration.
//
// Message identifiers, pipe sizing, table locations, and cadences are all
// deployment configuration, never constants in code. A minimal config file
// works: zero values are filled from Default().
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "100ms" or "5s", or from bare integers interpreted as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs int64
	if err := value.Decode(&secs); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats the duration.
func (d Duration) String() string { return time.Duration(d).String() }

// Config is the full daemon configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Bus       BusConfig       `yaml:"bus"`
	Messages  MessagesConfig  `yaml:"messages"`
	Table     TableConfig     `yaml:"table"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BusConfig configures the command pipe.
type BusConfig struct {
	PipeName       string   `yaml:"pipe_name"`
	PipeDepth      int      `yaml:"pipe_depth"`
	ReceiveTimeout Duration `yaml:"receive_timeout"`
}

// MessagesConfig assigns the opaque message identifiers.
type MessagesConfig struct {
	CommandID      uint32 `yaml:"command_id"`
	WakeupID       uint32 `yaml:"wakeup_id"`
	HousekeepingID uint32 `yaml:"housekeeping_id"`
	TelemetryID    uint32 `yaml:"telemetry_id"`
}

// TableConfig locates the runtime configuration table.
type TableConfig struct {
	Name   string `yaml:"name"`
	Source string `yaml:"source"`

	// Watch enables staging of table updates when the source file changes
	// on disk.
	Watch bool `yaml:"watch"`
}

// SchedulerConfig configures the built-in activity scheduler.
type SchedulerConfig struct {
	// Enabled turns the internal scheduler on. Disable it when an
	// external scheduler publishes wakeup and housekeeping triggers.
	Enabled bool `yaml:"enabled"`

	HousekeepingInterval Duration `yaml:"housekeeping_interval"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables the
	// endpoint.
	Addr string `yaml:"addr"`
}

// TracingConfig configures trace export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Bus: BusConfig{
			PipeName:       "FERRY_CMD_PIPE",
			PipeDepth:      32,
			ReceiveTimeout: Duration(100 * time.Millisecond),
		},
		Messages: MessagesConfig{
			CommandID:      0x18B3,
			WakeupID:       0x18B4,
			HousekeepingID: 0x18B5,
			TelemetryID:    0x08B0,
		},
		Table: TableConfig{
			Name:   "ferry.config",
			Source: "tables/ferry_config.yaml",
			Watch:  true,
		},
		Scheduler: SchedulerConfig{
			Enabled:              true,
			HousekeepingInterval: Duration(5 * time.Second),
		},
		Tracing: TracingConfig{
			ServiceName: "ferryd",
		},
	}
}

// Load reads the configuration from path, fills defaults, and validates it.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills in zero values with defaults so minimal configs work
// without specifying every field.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}

	if c.Bus.PipeName == "" {
		c.Bus.PipeName = defaults.Bus.PipeName
	}
	if c.Bus.PipeDepth == 0 {
		c.Bus.PipeDepth = defaults.Bus.PipeDepth
	}
	if c.Bus.ReceiveTimeout == 0 {
		c.Bus.ReceiveTimeout = defaults.Bus.ReceiveTimeout
	}

	if c.Messages.CommandID == 0 {
		c.Messages.CommandID = defaults.Messages.CommandID
	}
	if c.Messages.WakeupID == 0 {
		c.Messages.WakeupID = defaults.Messages.WakeupID
	}
	if c.Messages.HousekeepingID == 0 {
		c.Messages.HousekeepingID = defaults.Messages.HousekeepingID
	}
	if c.Messages.TelemetryID == 0 {
		c.Messages.TelemetryID = defaults.Messages.TelemetryID
	}

	if c.Table.Name == "" {
		c.Table.Name = defaults.Table.Name
	}
	if c.Table.Source == "" {
		c.Table.Source = defaults.Table.Source
	}

	if c.Scheduler.HousekeepingInterval == 0 {
		c.Scheduler.HousekeepingInterval = defaults.Scheduler.HousekeepingInterval
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaults.Tracing.ServiceName
	}
}

// validate rejects configurations the dispatcher cannot route unambiguously.
func (c *Config) validate() error {
	ids := map[uint32]string{}
	for name, id := range map[string]uint32{
		"command_id":      c.Messages.CommandID,
		"wakeup_id":       c.Messages.WakeupID,
		"housekeeping_id": c.Messages.HousekeepingID,
		"telemetry_id":    c.Messages.TelemetryID,
	} {
		if other, dup := ids[id]; dup {
			return fmt.Errorf("%s and %s share identifier 0x%04x", other, name, id)
		}
		ids[id] = name
	}

	if c.Bus.PipeDepth < 1 {
		return fmt.Errorf("bus pipe_depth must be positive, got %d", c.Bus.PipeDepth)
	}
	if c.Bus.ReceiveTimeout <= 0 {
		return fmt.Errorf("bus receive_timeout must be positive, got %s", c.Bus.ReceiveTimeout)
	}
	return nil
}
