package gcal

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrAuth means the service-account credentials were rejected.
	ErrAuth = errors.New("calendar auth failed")
	// ErrCursorExpired means the remote rejected the sync token as stale
	// (HTTP 410). Callers recover by clearing the stored token.
	ErrCursorExpired = errors.New("sync token expired")
	// ErrRateLimited means the remote throttled us; retry on a later run.
	ErrRateLimited = errors.New("calendar rate limited")
	// ErrTransient covers retryable network/server failures.
	ErrTransient = errors.New("transient calendar error")
	// ErrValidation means a local record cannot be turned into an event.
	ErrValidation = errors.New("invalid event input")
)

// mapError translates googleapi failures into the package taxonomy so
// callers branch with errors.Is instead of inspecting HTTP codes.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrAuth, err)
		case apiErr.Code == http.StatusGone:
			return fmt.Errorf("%w: %v", ErrCursorExpired, err)
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return err
	}
	// Anything below the API layer (timeouts, resets) is retryable.
	return fmt.Errorf("%w: %v", ErrTransient, err)
}
