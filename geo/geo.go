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


// Package geo resolves coordinates to place names.
package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound means the lookup succeeded but yielded no usable place
// name for the coordinates.
var ErrNotFound = errors.New("no place found for coordinates")

// ReverseGeocoder resolves a coordinate pair to a human-readable place
// name. Implementations must be safe for concurrent use.
type ReverseGeocoder interface {
	Lookup(ctx context.Context, lat, lon float64) (string, error)
}

// Static is a fixed-table geocoder for tests and offline runs. Keys are
// produced by StaticKey.
type Static struct {
	mu     sync.Mutex
	places map[string]string
	calls  int
}

// NewStatic creates a static geocoder over the given table.
func NewStatic(places map[string]string) *Static {
	return &Static{places: places}
}

// StaticKey renders coordinates the way Static indexes them.
func StaticKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

// Lookup implements ReverseGeocoder.
func (s *Static) Lookup(_ context.Context, lat, lon float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	place, ok := s.places[StaticKey(lat, lon)]
	if !ok {
		return "", ErrNotFound
	}
	return place, nil
}

// Calls returns the number of lookups performed.
func (s *Static) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
