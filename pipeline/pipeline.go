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


package pipeline

import (
	"errors"
	"log/slog"
	"runtime"

	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/gateway"
	"github.com/poiesic/photoflow/ledger"
	"github.com/poiesic/photoflow/resolve"
	"github.com/poiesic/photoflow/store"
)

// recordAttr is the ledger attribute carrying the resolved record
// between the resolve and publish stages, so the stages can run in
// separate processes.
const recordAttr = "record"

// Pipeline drives items through fetch, resolve, and publish. All
// collaborators are injected; the pipeline owns no global state.
type Pipeline struct {
	origin    store.Origin
	publisher store.Publisher
	ledger    *ledger.Ledger
	gateway   *gateway.Gateway
	resolver  *resolve.Resolver
	schema    *core.TargetSchema

	poolSize           int
	mask               string
	deleteAfterPublish bool
	logger             *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPoolSize sets the analysis worker pool size. Defaults to half
// the CPUs, minimum one.
func WithPoolSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.poolSize = n
		}
	}
}

// WithFilenameMask sets the target naming mask. It must contain the
// number placeholder.
func WithFilenameMask(mask string) Option {
	return func(p *Pipeline) {
		p.mask = mask
	}
}

// WithDeleteAfterPublish removes items from the origin once published.
func WithDeleteAfterPublish(del bool) Option {
	return func(p *Pipeline) {
		p.deleteAfterPublish = del
	}
}

// WithLogger sets the pipeline's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger.With("component", "pipeline")
	}
}

// New creates a pipeline. The schema and filename mask are validated
// here: both are fatal if wrong, and failing at startup beats failing
// mid-batch.
func New(origin store.Origin, publisher store.Publisher, led *ledger.Ledger, gw *gateway.Gateway, res *resolve.Resolver, schema *core.TargetSchema, opts ...Option) (*Pipeline, error) {
	if origin == nil || publisher == nil || led == nil || gw == nil || res == nil {
		return nil, errors.New("pipeline: all collaborators are required")
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	p := &Pipeline{
		origin:    origin,
		publisher: publisher,
		ledger:    led,
		gateway:   gw,
		resolver:  res,
		schema:    schema,
		poolSize:  poolSize,
		mask:      resolve.DefaultFilenameMask,
		logger:    slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if _, err := resolve.TargetName(p.mask, 1, "probe.jpg"); err != nil {
		return nil, err
	}
	return p, nil
}
