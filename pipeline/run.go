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
	"context"

	"github.com/google/uuid"

	"github.com/poiesic/photoflow/core"
)

// Summary is the outcome of a full run. No failure is swallowed: every
// per-item error appears in its stage report and in the kind counts.
type Summary struct {
	RunID string

	Fetch   *StageReport
	Resolve *StageReport
	Publish *StageReport

	FailureKinds map[core.FailureKind]int
}

// addReport folds a stage report into the kind counts.
func (s *Summary) addReport(r *StageReport) {
	if r == nil {
		return
	}
	for _, err := range r.Failures {
		s.FailureKinds[core.KindOf(err)]++
	}
	s.FailureKinds[core.FailureMalformedOutput] += r.Flagged
}

// Failed returns the total number of item failures across stages.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range []*StageReport{s.Fetch, s.Resolve, s.Publish} {
		if r != nil {
			n += len(r.Failures)
		}
	}
	return n
}

// Run executes fetch, resolve, and publish in order, stopping at the
// first stage-level error. Per-item failures never stop the run; they
// are reported in the summary.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:        uuid.NewString(),
		FailureKinds: make(map[core.FailureKind]int),
	}
	logger := p.logger.With("run", summary.RunID)
	logger.Info("run starting")

	var err error
	summary.Fetch, err = p.Fetch(ctx)
	summary.addReport(summary.Fetch)
	if err != nil {
		logger.Error("run aborted in fetch stage", "err", err)
		return summary, err
	}

	summary.Resolve, err = p.Resolve(ctx)
	summary.addReport(summary.Resolve)
	if err != nil {
		logger.Error("run aborted in resolve stage", "err", err)
		return summary, err
	}

	summary.Publish, err = p.Publish(ctx)
	summary.addReport(summary.Publish)
	if err != nil {
		logger.Error("run aborted in publish stage", "err", err)
		return summary, err
	}

	logger.Info("run complete",
		"fetched", summary.Fetch.Processed,
		"resolved", summary.Resolve.Processed,
		"published", summary.Publish.Processed,
		"failed", summary.Failed(),
		"flagged", summary.Resolve.Flagged)
	return summary, nil
}
