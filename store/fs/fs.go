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


// Package fs provides directory-backed origin and publish stores for
// local runs and tests. Embedded attributes ride in optional sidecar
// files next to the image ("name.attrs.json"); published records land
// in sidecars next to the upload ("name.fields.json").
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/poiesic/photoflow/core"
	"github.com/poiesic/photoflow/store"
)

const (
	attrsSuffix  = ".attrs.json"
	fieldsSuffix = ".fields.json"
)

// Origin serves items from a local directory.
type Origin struct {
	dir    string
	logger *slog.Logger
}

// NewOrigin creates a directory-backed origin store.
func NewOrigin(dir string) *Origin {
	return &Origin{
		dir:    dir,
		logger: slog.Default().With("component", "fs-origin", "dir", dir),
	}
}

// ListCandidateItems implements store.Origin. Names come back sorted
// for deterministic batch order.
func (o *Origin) ListCandidateItems(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(o.dir)
	if err != nil {
		return nil, fmt.Errorf("listing origin dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !store.IsImage(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Fetch implements store.Origin.
func (o *Origin) Fetch(_ context.Context, name string) (*core.SourceItem, error) {
	payload, err := os.ReadFile(filepath.Join(o.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	attrs, err := o.loadAttributes(name)
	if err != nil {
		// A broken sidecar costs the attributes, not the item.
		o.logger.Warn("attribute sidecar unreadable", "item", name, "err", err)
		attrs = nil
	}

	return &core.SourceItem{Name: name, Payload: payload, Attributes: attrs}, nil
}

// Delete implements store.Origin. The attribute sidecar goes with the
// item.
func (o *Origin) Delete(_ context.Context, name string) error {
	if err := os.Remove(filepath.Join(o.dir, name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", store.ErrNotFound, name)
		}
		return err
	}
	if err := os.Remove(filepath.Join(o.dir, name+attrsSuffix)); err != nil && !os.IsNotExist(err) {
		o.logger.Warn("removing attribute sidecar", "item", name, "err", err)
	}
	return nil
}

// attrEntry is one attribute in a sidecar file. Exactly one value form
// should be set.
type attrEntry struct {
	Text   *string    `json:"text,omitempty"`
	Number *float64   `json:"number,omitempty"`
	Time   *time.Time `json:"time,omitempty"`
	Lat    *float64   `json:"lat,omitempty"`
	Lon    *float64   `json:"lon,omitempty"`
}

func (o *Origin) loadAttributes(name string) (map[string]core.Attribute, error) {
	raw, err := os.ReadFile(filepath.Join(o.dir, name+attrsSuffix))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries map[string]attrEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}

	attrs := make(map[string]core.Attribute, len(entries))
	for key, e := range entries {
		switch {
		case e.Lat != nil && e.Lon != nil:
			attrs[key] = core.CoordinateAttribute(*e.Lat, *e.Lon)
		case e.Time != nil:
			attrs[key] = core.TimestampAttribute(*e.Time)
		case e.Number != nil:
			attrs[key] = core.NumberAttribute(*e.Number)
		case e.Text != nil:
			attrs[key] = core.TextAttribute(*e.Text)
		}
	}
	return attrs, nil
}

// Publisher writes uploads and their field records into a local
// directory.
type Publisher struct {
	dir    string
	logger *slog.Logger
}

// NewPublisher creates a directory-backed publish store. The directory
// is created on first upload if missing.
func NewPublisher(dir string) *Publisher {
	return &Publisher{
		dir:    dir,
		logger: slog.Default().With("component", "fs-publisher", "dir", dir),
	}
}

// Upload implements store.Publisher.
func (p *Publisher) Upload(_ context.Context, name string, payload []byte) (store.RemoteRef, error) {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return store.RemoteRef{}, err
	}
	path := filepath.Join(p.dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return store.RemoteRef{}, fmt.Errorf("uploading %s: %w", name, err)
	}
	return store.RemoteRef{ID: name, Path: path}, nil
}

// SetFields implements store.Publisher by writing the record sidecar.
func (p *Publisher) SetFields(_ context.Context, ref store.RemoteRef, record *core.ResolvedRecord) error {
	raw, err := json.MarshalIndent(record.Fields, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ref.Path+fieldsSuffix, raw, 0o644)
}
