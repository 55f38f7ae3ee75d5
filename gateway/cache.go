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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/poiesic/photoflow/core"
)

// cacheKey identifies a prompt result. The schema version invalidates
// everything on schema change; when attributes are embedded the prompt
// is per-item, so the content fingerprint joins the key.
func cacheKey(schemaVersion string, includeAttributes bool, fp core.ContentFingerprint) string {
	if includeAttributes {
		return fmt.Sprintf("%s|attrs|%s", schemaVersion, fp)
	}
	return schemaVersion + "|plain"
}

// newAnalysisCache builds the bounded prompt-result cache. lru.New only
// fails on a non-positive size, which normalize rules out.
func newAnalysisCache(size int) (*lru.Cache[string, core.Analysis], error) {
	return lru.New[string, core.Analysis](size)
}
