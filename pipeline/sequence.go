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


package pipeline

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/poiesic/photoflow/resolve"
)

// nextSequence returns one past the highest number already used by the
// mask among assigned target names, starting at 1.
func nextSequence(targetNames []string, mask string) int {
	pattern := regexp.MustCompile(
		"^" + strings.ReplaceAll(regexp.QuoteMeta(mask), regexp.QuoteMeta(resolve.NumberPlaceholder), `(\d+)`) + "$")

	max := 0
	for _, name := range targetNames {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		m := pattern.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}
