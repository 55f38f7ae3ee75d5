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
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded means admission did not grant budget within
	// the admission timeout. Treated as fatal for the item rather than
	// blocking the worker indefinitely.
	ErrCapacityExceeded = errors.New("gateway capacity exceeded")

	// ErrNoStructuredBlock means the model output contained no JSON
	// object at all.
	ErrNoStructuredBlock = errors.New("no structured block in model output")
)

// MalformedOutputError carries the raw model text after all parse
// attempts failed, so the caller can flag the item instead of dropping
// it.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}
