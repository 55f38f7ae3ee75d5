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


package openai

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/photoflow/inference"
)

// suggestedWaitPattern matches the "Please try again in 1.234s" hint
// that OpenAI-compatible services embed in 429 bodies. Also matches
// millisecond variants ("in 250ms").
var suggestedWaitPattern = regexp.MustCompile(`try again in ([0-9.]+)\s*(ms|s|m)\b`)

// categorize maps a raw client error onto the backend error taxonomy.
func categorize(err error) *inference.BackendError {
	if be, ok := inference.AsBackendError(err); ok {
		return be
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &inference.BackendError{Category: inference.CategoryTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &inference.BackendError{Category: inference.CategoryTimeout, Err: err}
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "too many requests"):
		return &inference.BackendError{
			Category:   inference.CategoryRateLimit,
			RetryAfter: suggestedWait(msg),
			Err:        err,
		}
	case strings.Contains(msg, "status code: 400") ||
		strings.Contains(msg, "status code: 401") ||
		strings.Contains(msg, "status code: 403") ||
		strings.Contains(msg, "status code: 404") ||
		strings.Contains(msg, "invalid request"):
		return &inference.BackendError{Category: inference.CategoryMalformedRequest, Err: err}
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return &inference.BackendError{Category: inference.CategoryTimeout, Err: err}
	default:
		return &inference.BackendError{Category: inference.CategoryTransport, Err: err}
	}
}

// suggestedWait extracts the service-suggested pause from a rate-limit
// message, returning zero when there is none.
func suggestedWait(msg string) time.Duration {
	m := suggestedWaitPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil || value < 0 {
		return 0
	}
	switch m[2] {
	case "ms":
		return time.Duration(value * float64(time.Millisecond))
	case "m":
		return time.Duration(value * float64(time.Minute))
	default:
		return time.Duration(value * float64(time.Second))
	}
}
