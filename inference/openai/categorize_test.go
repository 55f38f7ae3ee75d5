package openai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/photoflow/inference"
)

func TestCategorizeRateLimit(t *testing.T) {
	err := errors.New("API returned unexpected status code: 429 Too Many Requests. Please try again in 1.5s.")
	be := categorize(err)

	assert.Equal(t, inference.CategoryRateLimit, be.Category)
	assert.Equal(t, 1500*time.Millisecond, be.RetryAfter)
	assert.True(t, be.Retryable())
}

func TestCategorizeRateLimitWithoutHint(t *testing.T) {
	be := categorize(errors.New("rate limit exceeded"))

	assert.Equal(t, inference.CategoryRateLimit, be.Category)
	assert.Zero(t, be.RetryAfter)
}

func TestCategorizeTimeout(t *testing.T) {
	be := categorize(context.DeadlineExceeded)
	assert.Equal(t, inference.CategoryTimeout, be.Category)
	assert.True(t, be.Retryable())
}

func TestCategorizeMalformedRequest(t *testing.T) {
	be := categorize(errors.New("API returned unexpected status code: 400 Bad Request"))

	assert.Equal(t, inference.CategoryMalformedRequest, be.Category)
	assert.False(t, be.Retryable())
}

func TestCategorizeTransportFallback(t *testing.T) {
	be := categorize(errors.New("connection refused"))
	assert.Equal(t, inference.CategoryTransport, be.Category)
	assert.True(t, be.Retryable())
}

func TestCategorizePreservesExistingBackendError(t *testing.T) {
	original := &inference.BackendError{Category: inference.CategoryRateLimit, RetryAfter: time.Second, Err: errors.New("x")}
	be := categorize(original)
	require.Same(t, original, be)
}

func TestSuggestedWaitUnits(t *testing.T) {
	tests := []struct {
		msg  string
		want time.Duration
	}{
		{"please try again in 250ms", 250 * time.Millisecond},
		{"please try again in 2s", 2 * time.Second},
		{"please try again in 1m", time.Minute},
		{"no hint here", 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, suggestedWait(tc.msg), tc.msg)
	}
}
