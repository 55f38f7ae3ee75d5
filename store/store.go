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


// Package store defines the origin and publish store abstractions the
// pipeline moves items between. Concrete backends live in subpackages.
package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/poiesic/photoflow/core"
)

// ErrNotFound means the named item does not exist in the store.
var ErrNotFound = errors.New("item not found in store")

// Origin is where unprocessed items live.
type Origin interface {
	// ListCandidateItems returns the names of items eligible for
	// processing, already filtered to supported image types.
	ListCandidateItems(ctx context.Context) ([]string, error)

	// Fetch retrieves one item with its payload and embedded
	// attributes.
	Fetch(ctx context.Context, name string) (*core.SourceItem, error)

	// Delete removes a processed item from the origin.
	Delete(ctx context.Context, name string) error
}

// RemoteRef identifies an uploaded item in the publish store.
type RemoteRef struct {
	// ID is the store-assigned identifier, when the store assigns one.
	ID string
	// Path locates the item within the store.
	Path string
}

// Publisher is where processed items and their records go.
type Publisher interface {
	// Upload stores the payload under the given target name.
	Upload(ctx context.Context, name string, payload []byte) (RemoteRef, error)

	// SetFields attaches the resolved record to an uploaded item.
	SetFields(ctx context.Context, ref RemoteRef, record *core.ResolvedRecord) error
}

// imageExtensions are the payload types the pipeline processes.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".heic": true,
	".webp": true,
}

// IsImage reports whether the name carries a supported image
// extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}
