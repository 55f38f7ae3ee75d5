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

import "unicode"

// repairJSON fixes the most common structural damage in model output:
// object keys missing their opening quote, e.g. `{Title": "x"}` or
// `, Category": "y"`.
func repairJSON(s string) string {
	in := []rune(s)
	out := make([]rune, 0, len(in)+16)

	for i := 0; i < len(in); {
		ch := in[i]
		out = append(out, ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}

		// Key position. Copy whitespace, then look for a bare word
		// terminated by `":` which marks a lost opening quote.
		for i < len(in) && unicode.IsSpace(in[i]) {
			out = append(out, in[i])
			i++
		}
		if i >= len(in) || in[i] == '"' || !isKeyRune(in[i]) {
			continue
		}

		start := i
		for i < len(in) && (isKeyRune(in[i]) || in[i] == ' ') {
			i++
		}
		if i+1 < len(in) && in[i] == '"' && in[i+1] == ':' {
			out = append(out, '"')
		}
		out = append(out, in[start:i]...)
	}

	return string(out)
}

func isKeyRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
