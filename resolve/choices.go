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

import "strings"

// MatchChoice maps a candidate value onto a controlled vocabulary.
// Exact matches win; otherwise a case-insensitive substring match in
// either direction substitutes the canonical choice ("residential
// building" matches "Residential"). Strict mode disables the fuzzy
// pass.
func MatchChoice(value string, choices []string, strict bool) (string, bool) {
	for _, choice := range choices {
		if choice == value {
			return choice, true
		}
	}
	if strict || value == "" {
		return "", false
	}

	lower := strings.ToLower(value)
	for _, choice := range choices {
		lc := strings.ToLower(choice)
		if strings.Contains(lower, lc) || strings.Contains(lc, lower) {
			return choice, true
		}
	}
	return "", false
}
