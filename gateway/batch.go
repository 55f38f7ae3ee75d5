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
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/photoflow/core"
)

// BatchResult holds per-item outcomes of an AnalyzeBatch call, keyed by
// source name. Every input item appears in exactly one of the two maps.
type BatchResult struct {
	Analyses map[string]core.Analysis
	Failures map[string]error
}

// AnalyzeBatch analyzes items on a bounded worker pool, each worker
// owning one in-flight call at a time. After the concurrent pass, items
// that failed on unparsable output get one more sequential pass.
//
// A malformed schema aborts the batch before any call is made.
func (g *Gateway) AnalyzeBatch(ctx context.Context, items []*core.SourceItem, schema *core.TargetSchema, poolSize int) (*BatchResult, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	result := &BatchResult{
		Analyses: make(map[string]core.Analysis, len(items)),
		Failures: make(map[string]error),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, item := range items {
		item := item
		wg.Add(1)
		run := func() {
			defer wg.Done()
			analysis, aerr := g.Analyze(ctx, item, schema)

			mu.Lock()
			defer mu.Unlock()
			if aerr != nil {
				result.Failures[item.Name] = aerr
				return
			}
			result.Analyses[item.Name] = analysis
		}
		if serr := pool.Submit(run); serr != nil {
			// Pool rejected the task (released or overloaded); run
			// inline rather than dropping the item.
			run()
		}
	}
	wg.Wait()

	g.retryMalformed(ctx, items, schema, result)
	return result, nil
}

// retryMalformed is the sequential second pass over malformed-output
// failures only. Transport and rate-limit failures already had their
// in-call retries and are left as-is.
func (g *Gateway) retryMalformed(ctx context.Context, items []*core.SourceItem, schema *core.TargetSchema, result *BatchResult) {
	for _, item := range items {
		ferr, ok := result.Failures[item.Name]
		if !ok || core.KindOf(ferr) != core.FailureMalformedOutput {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		g.logger.Info("sequential retry for unparsable output", "item", item.Name)
		analysis, aerr := g.Analyze(ctx, item, schema)
		if aerr != nil {
			result.Failures[item.Name] = aerr
			continue
		}
		delete(result.Failures, item.Name)
		result.Analyses[item.Name] = analysis
	}
}
