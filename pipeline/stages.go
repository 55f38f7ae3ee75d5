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
	"encoding/json"
	"fmt"

	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/resolve"
)

// StageReport summarizes one stage over one batch. Failures holds
// per-item errors that stopped the item; Flagged counts items that
// continued in degraded form.
type StageReport struct {
	Processed int
	Skipped   int
	Flagged   int
	Failures  map[string]error
}

func newStageReport() *StageReport {
	return &StageReport{Failures: make(map[string]error)}
}

func (r *StageReport) fail(name string, err error) {
	r.Failures[name] = err
}

// Fetch records every new origin item in the ledger. Items already
// fetched (by name or by content) are skipped; identical content under
// a new name joins the existing entry rather than becoming a new item.
func (p *Pipeline) Fetch(ctx context.Context) (*StageReport, error) {
	names, err := p.origin.ListCandidateItems(ctx)
	if err != nil {
		return nil, core.NewFailure(core.FailureFatal, err)
	}

	report := newStageReport()
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if p.ledger.HasReachedStage(name, core.StageFetched) {
			report.Skipped++
			continue
		}

		item, ferr := p.origin.Fetch(ctx, name)
		if ferr != nil {
			p.logger.Warn("fetch failed", "item", name, "err", ferr)
			report.fail(name, core.NewFailure(core.FailureTransient, ferr))
			continue
		}

		fp := core.FingerprintBytes(item.Payload)
		if p.ledger.HasReachedStage(fp.String(), core.StageFetched) {
			p.logger.Info("duplicate content, joining existing entry",
				"item", name, "fingerprint", fp)
		}

		// A ledger write failure must surface: forgetting a fetched
		// item risks duplicate inference spend later.
		if werr := p.ledger.RecordStage(name, fp, core.StageFetched, nil); werr != nil {
			return report, core.NewFailure(core.FailureFatal, werr)
		}
		report.Processed++
	}

	p.logger.Info("fetch stage done",
		"processed", report.Processed, "skipped", report.Skipped, "failed", len(report.Failures))
	return report, nil
}

// Resolve analyzes every fetched-but-unresolved item and stores its
// validated record in the ledger. Items whose model output stayed
// unparsable after all retries are degraded to a sentinel-only flagged
// record instead of being dropped.
func (p *Pipeline) Resolve(ctx context.Context) (*StageReport, error) {
	names, err := p.origin.ListCandidateItems(ctx)
	if err != nil {
		return nil, core.NewFailure(core.FailureFatal, err)
	}

	report := newStageReport()

	// Collect eligible items, deduplicating identical content so each
	// fingerprint is analyzed once per batch.
	var items []*core.SourceItem
	seen := make(map[string]bool)
	for _, name := range names {
		if !p.ledger.HasReachedStage(name, core.StageFetched) ||
			p.ledger.HasReachedStage(name, core.StageResolved) {
			report.Skipped++
			continue
		}

		item, ferr := p.origin.Fetch(ctx, name)
		if ferr != nil {
			report.fail(name, core.NewFailure(core.FailureTransient, ferr))
			continue
		}
		fp := core.FingerprintBytes(item.Payload).String()
		if seen[fp] {
			report.Skipped++
			continue
		}
		seen[fp] = true
		items = append(items, item)
	}

	if len(items) == 0 {
		return report, nil
	}

	batch, err := p.gateway.AnalyzeBatch(ctx, items, p.schema, p.poolSize)
	if err != nil {
		return report, err
	}
	defer p.gateway.ResetCache()

	for _, item := range items {
		analysis := batch.Analyses[item.Name]
		if ferr, failed := batch.Failures[item.Name]; failed {
			if core.KindOf(ferr) != core.FailureMalformedOutput {
				report.fail(item.Name, ferr)
				continue
			}
			// Complete-but-imprecise beats silently dropped: resolve
			// with no analysis so the record carries sentinels.
			p.logger.Warn("unparsable analysis, flagging record",
				"item", item.Name, "err", ferr)
			report.Flagged++
			analysis = nil
		}

		record, rerr := p.resolver.Resolve(ctx, item, analysis, p.schema)
		if rerr != nil {
			report.fail(item.Name, rerr)
			continue
		}

		raw, merr := json.Marshal(record.Fields)
		if merr != nil {
			report.fail(item.Name, core.NewFailure(core.FailureValidation, merr))
			continue
		}
		attrs := map[string]string{recordAttr: string(raw)}
		if werr := p.ledger.RecordStage(item.Name, record.Fingerprint, core.StageResolved, attrs); werr != nil {
			return report, core.NewFailure(core.FailureFatal, werr)
		}
		report.Processed++
	}

	p.logger.Info("resolve stage done",
		"processed", report.Processed, "skipped", report.Skipped,
		"flagged", report.Flagged, "failed", len(report.Failures))
	return report, nil
}

// Publish uploads every resolved-but-unpublished item under its
// generated target name, attaches the record, and maps the alias so
// both names answer ledger queries.
func (p *Pipeline) Publish(ctx context.Context) (*StageReport, error) {
	names, err := p.origin.ListCandidateItems(ctx)
	if err != nil {
		return nil, core.NewFailure(core.FailureFatal, err)
	}

	report := newStageReport()
	seq := nextSequence(p.ledger.TargetNames(), p.mask)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !p.ledger.HasReachedStage(name, core.StageResolved) ||
			p.ledger.HasReachedStage(name, core.StagePublished) {
			report.Skipped++
			continue
		}

		entry, ok := p.ledger.Entry(name)
		if !ok || entry.Attributes[recordAttr] == "" {
			report.fail(name, core.NewFailure(core.FailureValidation,
				fmt.Errorf("resolved item %q has no stored record", name)))
			continue
		}

		var fields map[string]any
		if uerr := json.Unmarshal([]byte(entry.Attributes[recordAttr]), &fields); uerr != nil {
			report.fail(name, core.NewFailure(core.FailureValidation, uerr))
			continue
		}

		item, ferr := p.origin.Fetch(ctx, name)
		if ferr != nil {
			report.fail(name, core.NewFailure(core.FailureTransient, ferr))
			continue
		}

		fp, perr := core.ParseFingerprint(entry.Fingerprint)
		if perr != nil {
			report.fail(name, core.NewFailure(core.FailureFatal, perr))
			continue
		}

		target, terr := resolve.TargetName(p.mask, seq, name)
		if terr != nil {
			return report, core.NewFailure(core.FailureFatal, terr)
		}
		fields[core.FileRefFieldName] = target

		ref, uerr := p.publisher.Upload(ctx, target, item.Payload)
		if uerr != nil {
			report.fail(name, core.NewFailure(core.FailureTransient, uerr))
			continue
		}
		seq++

		record := &core.ResolvedRecord{SourceName: name, Fingerprint: fp, Fields: fields}
		if serr := p.publisher.SetFields(ctx, ref, record); serr != nil {
			// The upload exists; losing the fields is recoverable by a
			// re-run, so fail the item rather than the stage.
			report.fail(name, core.NewFailure(core.FailureTransient, serr))
			continue
		}

		if aerr := p.ledger.MapAlias(name, target); aerr != nil {
			return report, core.NewFailure(core.FailureFatal, aerr)
		}
		if werr := p.ledger.RecordStage(name, fp, core.StagePublished,
			map[string]string{"target": target}); werr != nil {
			return report, core.NewFailure(core.FailureFatal, werr)
		}

		if p.deleteAfterPublish {
			if derr := p.origin.Delete(ctx, name); derr != nil {
				p.logger.Warn("origin cleanup failed", "item", name, "err", derr)
			}
		}
		report.Processed++
		p.logger.Info("published", "item", name, "target", target)
	}

	p.logger.Info("publish stage done",
		"processed", report.Processed, "skipped", report.Skipped, "failed", len(report.Failures))
	return report, nil
}
