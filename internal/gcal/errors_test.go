package gcal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, ErrAuth},
		{"forbidden", &googleapi.Error{Code: 403}, ErrAuth},
		{"gone maps to cursor expiry", &googleapi.Error{Code: 410}, ErrCursorExpired},
		{"too many requests", &googleapi.Error{Code: 429}, ErrRateLimited},
		{"server error", &googleapi.Error{Code: 500}, ErrTransient},
		{"bad gateway", &googleapi.Error{Code: 502}, ErrTransient},
		{"network failure", errors.New("connection reset by peer"), ErrTransient},
		{"wrapped api error", fmt.Errorf("call failed: %w", &googleapi.Error{Code: 410}), ErrCursorExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			assert.True(t, errors.Is(got, tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.NoError(t, mapError(nil))
}

func TestMapError_ClientErrorPassesThrough(t *testing.T) {
	// 4xx codes outside the taxonomy (e.g. 400 bad request) are neither
	// retryable nor recoverable; they surface as-is.
	in := &googleapi.Error{Code: 400}
	got := mapError(in)
	assert.False(t, errors.Is(got, ErrTransient))
	assert.False(t, errors.Is(got, ErrAuth))
	var apiErr *googleapi.Error
	assert.True(t, errors.As(got, &apiErr))
}
