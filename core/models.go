package core

import (
	"fmt"
	"time"
)

// Stage identifies a lifecycle stage of a source item.
// Stages are strictly ordered: an item is fetched, then resolved,
// then published. The ledger never regresses an item's stage.
type Stage int

const (
	// StageFetched means the item was retrieved from the origin store.
	StageFetched Stage = iota + 1
	// StageResolved means a validated record was produced for the item.
	StageResolved
	// StagePublished means the item and its record reached the publish store.
	StagePublished
)

// String returns the stage name used in persisted ledger entries.
func (s Stage) String() string {
	switch s {
	case StageFetched:
		return "fetched"
	case StageResolved:
		return "resolved"
	case StagePublished:
		return "published"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ParseStage converts a persisted stage name back to a Stage.
func ParseStage(s string) (Stage, error) {
	switch s {
	case "fetched":
		return StageFetched, nil
	case "resolved":
		return StageResolved, nil
	case "published":
		return StagePublished, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStage, s)
	}
}

// Valid reports whether the stage is one of the defined lifecycle stages.
func (s Stage) Valid() bool {
	return s >= StageFetched && s <= StagePublished
}

// AttributeKind identifies the value type of an embedded attribute.
type AttributeKind int

const (
	// AttributeText is a plain string value.
	AttributeText AttributeKind = iota + 1
	// AttributeNumber is a numeric value.
	AttributeNumber
	// AttributeTimestamp is a point in time.
	AttributeTimestamp
	// AttributeCoordinate is a latitude/longitude pair.
	AttributeCoordinate
)

// Attribute is a single embedded metadata value extracted from a source
// item, such as an EXIF tag. Exactly one of the value fields is
// meaningful, selected by Kind.
type Attribute struct {
	Kind   AttributeKind
	Text   string
	Number float64
	Time   time.Time
	Lat    float64
	Lon    float64
}

// TextAttribute creates a text attribute.
func TextAttribute(s string) Attribute {
	return Attribute{Kind: AttributeText, Text: s}
}

// NumberAttribute creates a numeric attribute.
func NumberAttribute(n float64) Attribute {
	return Attribute{Kind: AttributeNumber, Number: n}
}

// TimestampAttribute creates a timestamp attribute.
func TimestampAttribute(t time.Time) Attribute {
	return Attribute{Kind: AttributeTimestamp, Time: t}
}

// CoordinateAttribute creates a coordinate attribute.
func CoordinateAttribute(lat, lon float64) Attribute {
	return Attribute{Kind: AttributeCoordinate, Lat: lat, Lon: lon}
}

// SourceItem is one unit of work: an opaque payload discovered at the
// origin store, its source-assigned name, and the embedded attributes
// extracted from it. Read-only after creation.
type SourceItem struct {
	Name       string
	Payload    []byte
	Attributes map[string]Attribute
}

// Analysis is the structured output of a successful inference call:
// a mapping from schema field titles to raw candidate values, before
// validation by the resolution engine.
type Analysis map[string]any

// ResolvedRecord is the validated record produced for one item.
// Created exactly once per item by the resolution engine, consumed
// exactly once by publish, then archived by the ledger.
type ResolvedRecord struct {
	SourceName  string
	Fingerprint ContentFingerprint
	Fields      map[string]any
}

const (
	// SentinelNone is substituted for required fields no source supplied.
	SentinelNone = "none"

	// StatusFieldName is the workflow-status field set on every record.
	StatusFieldName = "Status"

	// StatusDraftMachine marks a record as a machine-generated draft
	// pending human review.
	StatusDraftMachine = "Draft (AI)"

	// OriginalNameFieldName carries the source name forward so records
	// remain cross-referencable after the publish stage renames items.
	OriginalNameFieldName = "OriginalName"

	// FileRefFieldName is the publish-store field holding the uploaded
	// item's leaf name.
	FileRefFieldName = "FileLeafRef"
)
