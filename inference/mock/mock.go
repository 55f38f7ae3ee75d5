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


// Package mock provides a scripted inference backend for tests.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/photoflow/inference"
)

// Call records a single Complete invocation.
type Call struct {
	Prompt string
	Image  []byte
	Params inference.Params
}

// step is one scripted outcome.
type step struct {
	response string
	err      error
}

// Backend is a scripted inference.Backend. Outcomes queued with
// QueueResponse and QueueError are consumed in order; once the script
// is exhausted, Default is returned for every further call.
type Backend struct {
	mu       sync.Mutex
	script   []step
	calls    []Call
	inflight int
	peak     int

	// Default is returned after the script is exhausted.
	Default string

	// OnCall, when set, is invoked inside Complete while the in-flight
	// counter is raised. Useful for blocking calls in concurrency tests.
	OnCall func(ctx context.Context)
}

// New returns an empty scripted backend whose default response is resp.
func New(resp string) *Backend {
	return &Backend{Default: resp}
}

// QueueResponse appends a successful outcome to the script.
func (b *Backend) QueueResponse(resp string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.script = append(b.script, step{response: resp})
}

// QueueError appends a failing outcome to the script.
func (b *Backend) QueueError(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.script = append(b.script, step{err: err})
}

// Complete implements inference.Backend.
func (b *Backend) Complete(ctx context.Context, prompt string, image []byte, params inference.Params) (string, error) {
	b.mu.Lock()
	b.calls = append(b.calls, Call{Prompt: prompt, Image: image, Params: params})
	b.inflight++
	if b.inflight > b.peak {
		b.peak = b.inflight
	}
	var next step
	if len(b.script) > 0 {
		next = b.script[0]
		b.script = b.script[1:]
	} else {
		next = step{response: b.Default}
	}
	hook := b.OnCall
	b.mu.Unlock()

	if hook != nil {
		hook(ctx)
	}

	b.mu.Lock()
	b.inflight--
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return next.response, next.err
}

// Calls returns a copy of every recorded invocation.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// CallCount returns the number of Complete invocations so far.
func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

// PeakInflight returns the highest number of concurrent Complete calls
// observed.
func (b *Backend) PeakInflight() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peak
}
