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


package core

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// FieldKind identifies how a schema field is validated and coerced.
type FieldKind int

const (
	// KindText coerces any candidate value to a string.
	KindText FieldKind = iota + 1
	// KindSingleChoice matches a candidate against a controlled vocabulary.
	KindSingleChoice
	// KindMultiChoice validates each element of a sequence as a single choice.
	KindMultiChoice
	// KindDateTime passes timestamps through unchanged.
	KindDateTime
	// KindPassthrough passes any value through unchanged.
	KindPassthrough
)

// String returns the kind name used in schema files.
func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSingleChoice:
		return "single_choice"
	case KindMultiChoice:
		return "multi_choice"
	case KindDateTime:
		return "datetime"
	case KindPassthrough:
		return "passthrough"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseFieldKind maps schema file type names to a FieldKind. Both the
// native names and the type names exported by common document library
// platforms are accepted; unrecognized types degrade to passthrough.
func ParseFieldKind(s string) FieldKind {
	switch s {
	case "text", "Text", "Note":
		return KindText
	case "single_choice", "Choice":
		return KindSingleChoice
	case "multi_choice", "MultiChoice":
		return KindMultiChoice
	case "datetime", "DateTime":
		return KindDateTime
	default:
		return KindPassthrough
	}
}

// FieldSpec describes one field of the target schema.
type FieldSpec struct {
	InternalName string
	Title        string
	Kind         FieldKind
	Required     bool
	Description  string
	Choices      []string
}

// TargetSchema is the ordered set of fields a resolved record must
// satisfy. Version participates in inference cache keys, so bumping it
// invalidates cached prompts.
type TargetSchema struct {
	Title      string
	Version    string
	Fields     []FieldSpec
	SkipFields []string
}

// DefaultSkipFields are system-managed fields excluded from prompting
// and resolution; the platform populates them itself.
var DefaultSkipFields = []string{
	"ID", "Created", "Modified", "Author", "Editor",
	"ContentType", "DocIcon", "ComplianceAssetId",
}

// Skipped reports whether a field is on the schema's skip list.
func (s *TargetSchema) Skipped(internalName string) bool {
	return slices.Contains(s.SkipFields, internalName)
}

// Field returns the spec with the given internal name, or nil.
func (s *TargetSchema) Field(internalName string) *FieldSpec {
	for i := range s.Fields {
		if s.Fields[i].InternalName == internalName {
			return &s.Fields[i]
		}
	}
	return nil
}

// FieldByTitle returns the spec with the given display title, or nil.
func (s *TargetSchema) FieldByTitle(title string) *FieldSpec {
	for i := range s.Fields {
		if s.Fields[i].Title == title {
			return &s.Fields[i]
		}
	}
	return nil
}

// Validate checks the schema for structural defects. A malformed
// schema is fatal: the batch must not start against it.
func (s *TargetSchema) Validate() error {
	if len(s.Fields) == 0 {
		return NewFailure(FailureFatal, fmt.Errorf("%w: no fields", ErrInvalidSchema))
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.InternalName == "" {
			return NewFailure(FailureFatal, fmt.Errorf("%w: field %d (%q)", ErrMissingInternalName, i, f.Title))
		}
		if (f.Kind == KindSingleChoice || f.Kind == KindMultiChoice) && len(f.Choices) == 0 {
			return NewFailure(FailureFatal, fmt.Errorf("%w: field %q", ErrNoChoices, f.InternalName))
		}
	}
	return nil
}

// schemaFile mirrors the JSON layout exported from the target library.
type schemaFile struct {
	LibraryTitle string            `json:"library_title"`
	Version      string            `json:"version"`
	SkipFields   []string          `json:"skip_fields"`
	Fields       []schemaFileField `json:"fields"`
}

type schemaFileField struct {
	InternalName string   `json:"internal_name"`
	Title        string   `json:"title"`
	Type         string   `json:"type"`
	Required     bool     `json:"required"`
	Description  string   `json:"description"`
	Choices      []string `json:"choices"`
}

// LoadSchema reads and validates a target schema from a JSON file.
func LoadSchema(path string) (*TargetSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, NewFailure(FailureFatal, fmt.Errorf("reading schema: %w", err))
	}
	return ParseSchema(raw)
}

// ParseSchema decodes and validates a target schema from JSON bytes.
func ParseSchema(raw []byte) (*TargetSchema, error) {
	var file schemaFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, NewFailure(FailureFatal, fmt.Errorf("%w: %v", ErrInvalidSchema, err))
	}

	schema := &TargetSchema{
		Title:      file.LibraryTitle,
		Version:    file.Version,
		SkipFields: file.SkipFields,
	}
	if schema.Version == "" {
		schema.Version = "1"
	}
	if len(schema.SkipFields) == 0 {
		schema.SkipFields = slices.Clone(DefaultSkipFields)
	}

	schema.Fields = make([]FieldSpec, 0, len(file.Fields))
	for _, f := range file.Fields {
		schema.Fields = append(schema.Fields, FieldSpec{
			InternalName: f.InternalName,
			Title:        f.Title,
			Kind:         ParseFieldKind(f.Type),
			Required:     f.Required,
			Description:  f.Description,
			Choices:      f.Choices,
		})
	}

	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return schema, nil
}
