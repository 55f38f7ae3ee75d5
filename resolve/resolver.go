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


package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/geo"
)

// Resolver merges embedded attributes, inference output, and derived
// geolocation into exactly one validated record per item.
type Resolver struct {
	geocoder   geo.ReverseGeocoder
	priorities PriorityTable
	aliases    map[string]string
	strict     bool
	logger     *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithGeocoder sets the reverse geocoder for coordinate fields. Without
// one, coordinate fields fall back to the raw "lat, lon" text.
func WithGeocoder(g geo.ReverseGeocoder) Option {
	return func(r *Resolver) {
		r.geocoder = g
	}
}

// WithPriorities replaces the built-in priority table.
func WithPriorities(t PriorityTable) Option {
	return func(r *Resolver) {
		r.priorities = t
	}
}

// WithAliases replaces the built-in title-to-attribute alias table.
func WithAliases(a map[string]string) Option {
	return func(r *Resolver) {
		r.aliases = a
	}
}

// WithStrictChoices disables fuzzy matching against controlled
// vocabularies; only exact values validate.
func WithStrictChoices(strict bool) Option {
	return func(r *Resolver) {
		r.strict = strict
	}
}

// WithLogger sets the resolver's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger.With("component", "resolver")
	}
}

// New creates a resolver. The priority table is validated here so a
// bad table fails at startup, not mid-batch.
func New(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		priorities: DefaultPriorities(),
		aliases:    DefaultAliases(),
		logger:     slog.Default().With("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.priorities.Validate(); err != nil {
		return nil, core.NewFailure(core.FailureFatal, err)
	}
	return r, nil
}

// Resolve produces the record for one item. Every non-skip-listed
// schema field appears in the result: validated when some source
// supplied a usable value, the sentinel otherwise. The workflow status
// and original-name fields are always set.
//
// Geocoding failures degrade to raw coordinates; they never fail the
// item. A malformed schema is fatal.
func (r *Resolver) Resolve(ctx context.Context, item *core.SourceItem, analysis core.Analysis, schema *core.TargetSchema) (*core.ResolvedRecord, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(schema.Fields))

	for i := range schema.Fields {
		f := &schema.Fields[i]
		if schema.Skipped(f.InternalName) ||
			f.InternalName == core.StatusFieldName ||
			f.InternalName == core.OriginalNameFieldName {
			continue
		}

		candidate, found := r.candidate(ctx, item, analysis, f)
		if found {
			if value, ok := r.validateField(candidate, f); ok {
				fields[f.InternalName] = value
				continue
			}
			r.logger.Debug("candidate failed validation, using sentinel",
				"item", item.Name, "field", f.InternalName, "candidate", candidate)
		}
		fields[f.InternalName] = core.SentinelNone
	}

	fields[core.StatusFieldName] = core.StatusDraftMachine
	fields[core.OriginalNameFieldName] = item.Name

	return &core.ResolvedRecord{
		SourceName:  item.Name,
		Fingerprint: core.FingerprintBytes(item.Payload),
		Fields:      fields,
	}, nil
}

// candidate walks the field's source priority list and returns the
// first value any source supplies.
func (r *Resolver) candidate(ctx context.Context, item *core.SourceItem, analysis core.Analysis, f *core.FieldSpec) (any, bool) {
	sources, ok := r.priorities[f.Title]
	if !ok {
		// No configured priority: embedded by name match, then
		// inference by name match.
		sources = []Source{SourceEmbedded, SourceInference}
	}

	for _, source := range sources {
		switch source {
		case SourceInference:
			if analysis == nil {
				continue
			}
			if v, present := analysis[f.Title]; present && v != nil {
				return v, true
			}
		case SourceEmbedded:
			if attr, present := r.embeddedAttribute(item, f.Title); present {
				return attributeValue(attr), true
			}
		case SourceEmbeddedGPS:
			if place, present := r.locate(ctx, item); present {
				return place, true
			}
		}
	}
	return nil, false
}

// embeddedAttribute looks up the attribute backing a field title, via
// the alias table first, then the title itself.
func (r *Resolver) embeddedAttribute(item *core.SourceItem, title string) (core.Attribute, bool) {
	if alias, ok := r.aliases[title]; ok {
		if attr, present := item.Attributes[alias]; present {
			return attr, true
		}
	}
	attr, present := item.Attributes[title]
	return attr, present
}

// locate turns the item's first coordinate attribute into a place
// name, falling back to the raw pair when geocoding yields nothing.
func (r *Resolver) locate(ctx context.Context, item *core.SourceItem) (string, bool) {
	attr, ok := firstCoordinate(item.Attributes)
	if !ok {
		return "", false
	}

	raw := fmt.Sprintf("%.6f, %.6f", attr.Lat, attr.Lon)
	if r.geocoder == nil {
		return raw, true
	}

	place, err := r.geocoder.Lookup(ctx, attr.Lat, attr.Lon)
	if err != nil {
		r.logger.Warn("reverse geocoding failed, using raw coordinates",
			"item", item.Name, "coords", raw, "err", err)
		return raw, true
	}
	return place, true
}

// attributeValue unwraps an attribute into a plain candidate value.
// Coordinates render as the raw "lat, lon" pair; SourceEmbeddedGPS is
// the route for geocoded lookups.
func attributeValue(a core.Attribute) any {
	switch a.Kind {
	case core.AttributeText:
		return a.Text
	case core.AttributeNumber:
		return a.Number
	case core.AttributeTimestamp:
		return a.Time
	case core.AttributeCoordinate:
		return fmt.Sprintf("%.6f, %.6f", a.Lat, a.Lon)
	default:
		return nil
	}
}

// firstCoordinate returns the item's coordinate attribute; names are
// sorted so the pick is deterministic when several exist.
func firstCoordinate(attrs map[string]core.Attribute) (core.Attribute, bool) {
	names := make([]string, 0, len(attrs))
	for name, attr := range attrs {
		if attr.Kind == core.AttributeCoordinate {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return core.Attribute{}, false
	}
	sort.Strings(names)
	return attrs[names[0]], true
}

// validateField coerces a candidate per the field kind. A false return
// means the candidate is unusable and the field falls to the sentinel.
func (r *Resolver) validateField(candidate any, f *core.FieldSpec) (any, bool) {
	switch f.Kind {
	case core.KindText:
		return coerceText(candidate), true

	case core.KindSingleChoice:
		value := coerceText(candidate)
		matched, ok := MatchChoice(value, f.Choices, r.strict)
		if !ok {
			return nil, false
		}
		if matched != value {
			r.logger.Debug("fuzzy choice match", "field", f.InternalName,
				"candidate", value, "choice", matched)
		}
		return matched, true

	case core.KindMultiChoice:
		values := toList(candidate)
		if values == nil {
			return nil, false
		}
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if matched, ok := MatchChoice(coerceText(v), f.Choices, r.strict); ok {
				kept = append(kept, matched)
			}
		}
		return kept, true

	case core.KindDateTime, core.KindPassthrough:
		return candidate, true

	default:
		return nil, false
	}
}

// coerceText renders any candidate as a string; nil becomes empty.
func coerceText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case float64:
		return trimFloat(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// toList normalizes a multi-choice candidate: a bare value becomes a
// one-element list; non-sequence types are unusable.
func toList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		return []any{t}
	default:
		return nil
	}
}
