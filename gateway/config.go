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


package gateway

import "time"

// Config holds the gateway's throttling and retry knobs.
type Config struct {
	// RequestsPerMinute bounds the sustained request rate.
	RequestsPerMinute int

	// CostUnitsPerMinute bounds the sustained cost-unit rate. Cost
	// units approximate what the inference service bills per call,
	// estimated from prompt size and the configured output ceiling.
	CostUnitsPerMinute int

	// CostBurst is the cost-unit bucket ceiling. Must be at least as
	// large as the biggest single-call estimate or that call can never
	// be admitted.
	CostBurst int

	// MaxInflight caps concurrently outstanding backend calls.
	MaxInflight int

	// MaxAttempts is the total attempt limit per call, first try
	// included.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt; it doubles
	// each retry up to MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// AdmissionTimeout bounds how long a call may wait for budget
	// before failing with ErrCapacityExceeded.
	AdmissionTimeout time.Duration

	// AttemptTimeout is the hard deadline on a single backend call.
	AttemptTimeout time.Duration

	// CacheSize bounds the prompt-result cache.
	CacheSize int

	// IncludeAttributes embeds the item's extracted attributes in the
	// prompt. When set, cache keys become per-item.
	IncludeAttributes bool
}

// DefaultConfig returns conservative limits suitable for hosted
// inference APIs.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute:  20,
		CostUnitsPerMinute: 90000,
		CostBurst:          16000,
		MaxInflight:        4,
		MaxAttempts:        3,
		BaseDelay:          time.Second,
		MaxDelay:           30 * time.Second,
		AdmissionTimeout:   2 * time.Minute,
		AttemptTimeout:     90 * time.Second,
		CacheSize:          512,
		IncludeAttributes:  true,
	}
}

// normalize fills zero values with defaults so a partially specified
// config stays usable.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.RequestsPerMinute <= 0 {
		c.RequestsPerMinute = def.RequestsPerMinute
	}
	if c.CostUnitsPerMinute <= 0 {
		c.CostUnitsPerMinute = def.CostUnitsPerMinute
	}
	if c.CostBurst <= 0 {
		c.CostBurst = def.CostBurst
	}
	if c.MaxInflight <= 0 {
		c.MaxInflight = def.MaxInflight
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = def.MaxDelay
	}
	if c.AdmissionTimeout <= 0 {
		c.AdmissionTimeout = def.AdmissionTimeout
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = def.AttemptTimeout
	}
	if c.CacheSize <= 0 {
		c.CacheSize = def.CacheSize
	}
}
