// Copyright 2026 Poiesic Systems
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


// Package config loads the pipeline's TOML configuration file and
// derives the per-component configs from it.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/poiesic/photoflow/gateway"
	"github.com/poiesic/photoflow/inference"
	"github.com/poiesic/photoflow/resolve"
)

// duration lets TOML carry durations as strings like "90s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the full pipeline configuration.
type Config struct {
	OriginDir  string `toml:"origin_dir"`
	PublishDir string `toml:"publish_dir"`
	SchemaPath string `toml:"schema_path"`
	LedgerPath string `toml:"ledger_path"`

	FilenameMask       string `toml:"filename_mask"`
	PoolSize           int    `toml:"pool_size"`
	DeleteAfterPublish bool   `toml:"delete_after_publish"`
	StrictChoices      bool   `toml:"strict_choices"`

	Inference InferenceSection    `toml:"inference"`
	Gateway   GatewaySection      `toml:"gateway"`
	Geocoder  GeocoderSection     `toml:"geocoder"`
	Priority  map[string][]string `toml:"priority"`
}

// InferenceSection configures the model backend.
type InferenceSection struct {
	Host        string  `toml:"host"`
	Token       string  `toml:"token"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	ImageDetail string  `toml:"image_detail"`
}

// GatewaySection configures throttling and retries.
type GatewaySection struct {
	RequestsPerMinute  int      `toml:"requests_per_minute"`
	CostUnitsPerMinute int      `toml:"cost_units_per_minute"`
	CostBurst          int      `toml:"cost_burst"`
	MaxInflight        int      `toml:"max_inflight"`
	MaxAttempts        int      `toml:"max_attempts"`
	BaseDelay          duration `toml:"base_delay"`
	MaxDelay           duration `toml:"max_delay"`
	AdmissionTimeout   duration `toml:"admission_timeout"`
	AttemptTimeout     duration `toml:"attempt_timeout"`
	CacheSize          int      `toml:"cache_size"`
	IncludeAttributes  bool     `toml:"include_attributes"`
	MetricsPath        string   `toml:"metrics_path"`
}

// GeocoderSection configures reverse geocoding.
type GeocoderSection struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
	Language  string `toml:"language"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LedgerPath:   "photoflow-ledger.jsonl",
		FilenameMask: resolve.DefaultFilenameMask,
		Inference: InferenceSection{
			Host:        "http://localhost:11434/v1",
			Token:       "none",
			Model:       "qwen2.5-vl:7b",
			Temperature: 0.5,
			MaxTokens:   1500,
			ImageDetail: "high",
		},
		Gateway: GatewaySection{
			IncludeAttributes: true,
		},
		Geocoder: GeocoderSection{
			Enabled:  true,
			Language: "de,en",
		},
	}
}

// Load reads a TOML config file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the pipeline cannot default.
func (c *Config) Validate() error {
	if c.OriginDir == "" {
		return errors.New("config: origin_dir is required")
	}
	if c.PublishDir == "" {
		return errors.New("config: publish_dir is required")
	}
	if c.SchemaPath == "" {
		return errors.New("config: schema_path is required")
	}
	if _, err := resolve.TargetName(c.FilenameMask, 1, "probe.jpg"); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// InferenceConfig derives the backend configuration.
func (c *Config) InferenceConfig() *inference.Config {
	return inference.NewConfig(
		inference.WithHost(c.Inference.Host),
		inference.WithToken(c.Inference.Token),
		inference.WithModel(c.Inference.Model),
		inference.WithTemperature(c.Inference.Temperature),
		inference.WithMaxTokens(c.Inference.MaxTokens),
		inference.WithImageDetail(c.Inference.ImageDetail),
	)
}

// GatewayConfig derives the gateway configuration; zero values fall to
// the gateway's own defaults.
func (c *Config) GatewayConfig() gateway.Config {
	return gateway.Config{
		RequestsPerMinute:  c.Gateway.RequestsPerMinute,
		CostUnitsPerMinute: c.Gateway.CostUnitsPerMinute,
		CostBurst:          c.Gateway.CostBurst,
		MaxInflight:        c.Gateway.MaxInflight,
		MaxAttempts:        c.Gateway.MaxAttempts,
		BaseDelay:          c.Gateway.BaseDelay.Duration,
		MaxDelay:           c.Gateway.MaxDelay.Duration,
		AdmissionTimeout:   c.Gateway.AdmissionTimeout.Duration,
		AttemptTimeout:     c.Gateway.AttemptTimeout.Duration,
		CacheSize:          c.Gateway.CacheSize,
		IncludeAttributes:  c.Gateway.IncludeAttributes,
	}
}

// PriorityTable converts the [priority] section, or returns the
// built-in table when the section is absent.
func (c *Config) PriorityTable() (resolve.PriorityTable, error) {
	if len(c.Priority) == 0 {
		return resolve.DefaultPriorities(), nil
	}
	table := make(resolve.PriorityTable, len(c.Priority))
	for title, sources := range c.Priority {
		ordered := make([]resolve.Source, len(sources))
		for i, s := range sources {
			ordered[i] = resolve.Source(s)
		}
		table[title] = ordered
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
