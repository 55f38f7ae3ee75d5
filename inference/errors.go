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


package inference

import (
	"errors"
	"fmt"
	"time"
)

// Category classifies a backend failure for retry decisions.
type Category int

const (
	// CategoryRateLimit means the service signalled too many requests.
	// Retryable; the error may carry a suggested wait.
	CategoryRateLimit Category = iota + 1
	// CategoryTimeout means the call exceeded its deadline. Retryable.
	CategoryTimeout
	// CategoryTransport covers network and server-side errors. Retryable.
	CategoryTransport
	// CategoryMalformedRequest means the request itself was rejected.
	// Not retryable; retrying the same request cannot succeed.
	CategoryMalformedRequest
)

// String returns the category name used in logs.
func (c Category) String() string {
	switch c {
	case CategoryRateLimit:
		return "rate_limit"
	case CategoryTimeout:
		return "timeout"
	case CategoryTransport:
		return "transport"
	case CategoryMalformedRequest:
		return "malformed_request"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// BackendError is a categorized inference backend failure.
type BackendError struct {
	Category Category
	// RetryAfter is the service-suggested wait before the next attempt,
	// zero when the service suggested none. Only meaningful for
	// CategoryRateLimit.
	RetryAfter time.Duration
	Err        error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Category, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt at the same call can succeed.
func (e *BackendError) Retryable() bool {
	return e.Category != CategoryMalformedRequest
}

// AsBackendError extracts a *BackendError from an error chain.
func AsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	ok := errors.As(err, &be)
	return be, ok
}

var (
	// ErrEmptyResponse indicates the model returned no choices.
	ErrEmptyResponse = errors.New("model returned empty response")

	// ErrImageRequired is returned when Complete is called without a payload.
	ErrImageRequired = errors.New("image payload required")
)
