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


package inference

import (
	"errors"
	"strings"
)

// Config holds configuration for inference backends.
type Config struct {
	// Host is the base URL for the OpenAI-compatible API.
	// Example: "https://api.openai.com/v1"
	Host string

	// Token is the API token. Use "none" for local services that don't
	// require authentication.
	Token string

	// Model is the vision model identifier.
	// Example: "gpt-4o", "qwen2.5-vl:7b"
	Model string

	// Temperature controls sampling randomness. Default: 0.5
	Temperature float64

	// MaxTokens bounds the model's output size. Default: 1500
	MaxTokens int

	// ImageDetail is the vision detail level: "auto", "low", or "high".
	// Default: "high"
	ImageDetail string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the API base URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithToken sets the API token.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithModel sets the vision model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ConfigOption {
	return func(c *Config) {
		c.Temperature = t
	}
}

// WithMaxTokens sets the output token bound.
func WithMaxTokens(n int) ConfigOption {
	return func(c *Config) {
		c.MaxTokens = n
	}
}

// WithImageDetail sets the vision detail level.
func WithImageDetail(detail string) ConfigOption {
	return func(c *Config) {
		c.ImageDetail = detail
	}
}

// DefaultConfig returns a Config with sensible defaults for a local
// OpenAI-compatible service.
func DefaultConfig() *Config {
	return &Config{
		Host:        "http://localhost:11434/v1",
		Token:       "none",
		Model:       "qwen2.5-vl:7b",
		Temperature: 0.5,
		MaxTokens:   1500,
		ImageDetail: "high",
	}
}

// NewConfig creates a Config with default values and applies the
// provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks the configuration and normalizes loose values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Host) == "" {
		return errors.New("inference host required")
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("inference model required")
	}
	if c.Token == "" {
		c.Token = "none"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1500
	}
	switch c.ImageDetail {
	case "auto", "low", "high":
	default:
		c.ImageDetail = "high"
	}
	return nil
}

// Params returns the per-call parameters derived from the config.
func (c *Config) Params() Params {
	return Params{
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		ImageDetail: c.ImageDetail,
	}
}
