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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidStage indicates an unknown lifecycle stage name or value.
	ErrInvalidStage = errors.New("invalid stage")

	// ErrInvalidFingerprint indicates a fingerprint string failed to decode.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")

	// ErrInvalidSchema indicates a target schema failed validation.
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrMissingInternalName indicates a schema field has no internal identifier.
	ErrMissingInternalName = errors.New("schema field missing internal name")

	// ErrNoChoices indicates a choice field declares no allowed values.
	ErrNoChoices = errors.New("choice field has no allowed values")
)
