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

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NumberPlaceholder marks where the sequence number goes in a target
// filename mask.
const NumberPlaceholder = "{number}"

// DefaultFilenameMask is the built-in target naming scheme.
const DefaultFilenameMask = "Referenz_" + NumberPlaceholder

// TargetName renders the published filename for an item: the mask with
// the zero-padded sequence number substituted, keeping the original
// extension.
func TargetName(mask string, number int, originalName string) (string, error) {
	if !strings.Contains(mask, NumberPlaceholder) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMask, mask)
	}
	name := strings.ReplaceAll(mask, NumberPlaceholder, fmt.Sprintf("%04d", number))
	return name + filepath.Ext(originalName), nil
}
