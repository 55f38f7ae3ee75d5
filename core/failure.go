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

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies an item failure for retry and reporting
// decisions. Component boundaries translate low-level errors into this
// taxonomy; the driver decides per kind whether to skip-and-continue
// or abort.
type FailureKind int

const (
	// FailureTransient covers timeouts, transport errors, and rate
	// limits. Retryable with backoff.
	FailureTransient FailureKind = iota + 1
	// FailureMalformedOutput means the model produced unparsable
	// structure. Retryable up to a limit, then degraded to a flagged
	// record rather than dropped.
	FailureMalformedOutput
	// FailureValidation is a schema mismatch on a single field,
	// recovered locally via default substitution.
	FailureValidation
	// FailureFatal aborts the item (bad schema, exhausted retries on a
	// required stage). Only schema-load failures abort the whole run.
	FailureFatal
)

// String returns the kind name used in logs and run summaries.
func (k FailureKind) String() string {
	switch k {
	case FailureTransient:
		return "transient"
	case FailureMalformedOutput:
		return "malformed_output"
	case FailureValidation:
		return "validation"
	case FailureFatal:
		return "fatal"
	default:
		return fmt.Sprintf("failure(%d)", int(k))
	}
}

// Failure wraps an underlying error with its taxonomy kind.
type Failure struct {
	Kind FailureKind
	Err  error
}

// NewFailure wraps err with the given kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf extracts the failure kind from an error chain. Deadline and
// cancellation errors classify as transient; errors nothing has
// classified are treated as fatal for the item.
func KindOf(err error) FailureKind {
	if err == nil {
		return 0
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return FailureTransient
	}
	return FailureFatal
}
