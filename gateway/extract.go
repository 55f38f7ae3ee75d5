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
	"encoding/json"
	"strings"

	"github.com/poiesic/photoflow/core"
)

// extractAnalysis pulls a structured record out of raw model output.
// Models wrap JSON in prose and markdown fences; this locates the
// outermost object, repairs common damage, and unmarshals it.
func extractAnalysis(raw string) (core.Analysis, error) {
	text := stripFences(raw)

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, &MalformedOutputError{Raw: raw, Err: ErrNoStructuredBlock}
	}
	block := repairJSON(text[start : end+1])

	var analysis core.Analysis
	if err := json.Unmarshal([]byte(block), &analysis); err != nil {
		return nil, &MalformedOutputError{Raw: raw, Err: err}
	}
	return analysis, nil
}

// stripFences removes surrounding markdown code fences.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
