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

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// metricsWindowMinutes is the trailing window retained in the rolling
// per-minute history.
const metricsWindowMinutes = 60

// Bucket aggregates one minute of gateway activity.
type Bucket struct {
	Minute    int64 `json:"minute"`
	Requests  int64 `json:"requests"`
	Errors    int64 `json:"errors"`
	CostUnits int64 `json:"cost_units"`
}

// Snapshot is the persisted metrics state: running totals plus the
// rolling per-minute history.
type Snapshot struct {
	Requests    int64    `json:"requests"`
	InputUnits  int64    `json:"input_units"`
	OutputUnits int64    `json:"output_units"`
	Errors      int64    `json:"errors"`
	CacheHits   int64    `json:"cache_hits"`
	Buckets     []Bucket `json:"buckets"`
}

// Metrics tracks gateway activity under a single coarse mutex; update
// frequency is bounded by the backend's own latency, so contention is
// negligible. Persistence is best-effort and never blocks the hot path.
type Metrics struct {
	mu   sync.Mutex
	data Snapshot

	path       string
	persisting atomic.Bool
	logger     *slog.Logger
	now        func() time.Time
}

// NewMetrics creates a metrics tracker persisting to path ("" keeps it
// in-memory only). An existing snapshot at path is loaded so totals
// survive restarts; an unreadable snapshot starts fresh with a warning.
func NewMetrics(path string) *Metrics {
	m := &Metrics{
		path:   path,
		logger: slog.Default().With("component", "gateway-metrics"),
		now:    time.Now,
	}
	if path == "" {
		return m
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("metrics snapshot unreadable, starting fresh", "path", path, "err", err)
		}
		return m
	}
	if err := json.Unmarshal(raw, &m.data); err != nil {
		m.logger.Warn("metrics snapshot corrupt, starting fresh", "path", path, "err", err)
		m.data = Snapshot{}
	}
	return m
}

// RecordRequest counts one completed backend call and its cost units.
func (m *Metrics) RecordRequest(inputUnits, outputUnits int) {
	m.mu.Lock()
	m.data.Requests++
	m.data.InputUnits += int64(inputUnits)
	m.data.OutputUnits += int64(outputUnits)
	b := m.bucketLocked()
	b.Requests++
	b.CostUnits += int64(inputUnits + outputUnits)
	m.mu.Unlock()

	m.persistAsync()
}

// RecordError counts one failed backend call.
func (m *Metrics) RecordError() {
	m.mu.Lock()
	m.data.Errors++
	m.bucketLocked().Errors++
	m.mu.Unlock()

	m.persistAsync()
}

// RecordCacheHit counts one request served from the prompt cache.
func (m *Metrics) RecordCacheHit() {
	m.mu.Lock()
	m.data.CacheHits++
	m.mu.Unlock()
}

// Snapshot returns a copy of the current state.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.data
	out.Buckets = make([]Bucket, len(m.data.Buckets))
	copy(out.Buckets, m.data.Buckets)
	return out
}

// bucketLocked returns the current minute's bucket, creating it and
// pruning expired ones. Caller holds m.mu.
func (m *Metrics) bucketLocked() *Bucket {
	minute := m.now().Unix() / 60

	cutoff := minute - metricsWindowMinutes
	kept := m.data.Buckets[:0]
	for _, b := range m.data.Buckets {
		if b.Minute > cutoff {
			kept = append(kept, b)
		}
	}
	m.data.Buckets = kept

	if n := len(m.data.Buckets); n > 0 && m.data.Buckets[n-1].Minute == minute {
		return &m.data.Buckets[n-1]
	}
	m.data.Buckets = append(m.data.Buckets, Bucket{Minute: minute})
	return &m.data.Buckets[len(m.data.Buckets)-1]
}

// persistAsync writes the snapshot in the background. At most one write
// is in flight; callers racing past it lose their turn, which is fine
// since the next update persists again.
func (m *Metrics) persistAsync() {
	if m.path == "" {
		return
	}
	if !m.persisting.CompareAndSwap(false, true) {
		return
	}

	m.mu.Lock()
	raw, err := json.Marshal(m.data)
	m.mu.Unlock()
	if err != nil {
		m.persisting.Store(false)
		m.logger.Warn("metrics snapshot marshal failed", "err", err)
		return
	}

	go func() {
		defer m.persisting.Store(false)
		if err := writeAtomic(m.path, raw); err != nil {
			m.logger.Warn("metrics snapshot write failed", "path", m.path, "err", err)
		}
	}()
}

// writeAtomic replaces path via temp file and rename so readers never
// observe a partial snapshot.
func writeAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
