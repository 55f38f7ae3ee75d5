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
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/poiesic/photoflow/core"
)

// BuildPrompt renders the system prompt for one item: a description of
// every fillable schema field, plus the item's embedded attributes when
// includeAttributes is set. Choice fields enumerate their exact allowed
// values so the model cannot invent variants.
func BuildPrompt(schema *core.TargetSchema, item *core.SourceItem, includeAttributes bool) string {
	var b strings.Builder

	b.WriteString("You are an archival assistant filling in metadata for a photo library")
	if schema.Title != "" {
		fmt.Fprintf(&b, " named %q", schema.Title)
	}
	b.WriteString(".\nAnalyze the attached image and produce a value for each of the following fields.\n\nFields:\n")

	for i := range schema.Fields {
		f := &schema.Fields[i]
		if schema.Skipped(f.InternalName) {
			continue
		}
		writeFieldLine(&b, f)
	}

	b.WriteString("\nRespond with a single JSON object. Use the field names above as keys, exactly as written. Omit fields you cannot determine from the image. Do not add keys that are not listed.\n")

	if includeAttributes && len(item.Attributes) > 0 {
		b.WriteString("\nTechnical metadata embedded in the file (use it when a field asks for dates, locations, or camera details):\n")
		for _, name := range sortedAttributeNames(item.Attributes) {
			fmt.Fprintf(&b, "- %s: %s\n", name, formatAttribute(item.Attributes[name]))
		}
	}

	return b.String()
}

func writeFieldLine(b *strings.Builder, f *core.FieldSpec) {
	name := f.Title
	if name == "" {
		name = f.InternalName
	}
	fmt.Fprintf(b, "- %s", name)

	switch f.Kind {
	case core.KindSingleChoice:
		fmt.Fprintf(b, " (choose exactly one of: %s)", strings.Join(f.Choices, "; "))
	case core.KindMultiChoice:
		fmt.Fprintf(b, " (choose any that apply, as a JSON array, from: %s)", strings.Join(f.Choices, "; "))
	case core.KindDateTime:
		b.WriteString(" (ISO 8601 date-time)")
	}
	if f.Required {
		b.WriteString(" [required]")
	}
	if f.Description != "" {
		fmt.Fprintf(b, ": %s", f.Description)
	}
	b.WriteByte('\n')
}

// sortedAttributeNames keeps the attribute block deterministic, which
// keeps prompts for identical content byte-identical for the cache.
func sortedAttributeNames(attrs map[string]core.Attribute) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatAttribute(a core.Attribute) string {
	switch a.Kind {
	case core.AttributeText:
		return a.Text
	case core.AttributeNumber:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", a.Number), "0"), ".")
	case core.AttributeTimestamp:
		return a.Time.Format(time.RFC3339)
	case core.AttributeCoordinate:
		return fmt.Sprintf("%.6f, %.6f", a.Lat, a.Lon)
	default:
		return ""
	}
}
