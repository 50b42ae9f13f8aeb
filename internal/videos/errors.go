package videos

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthentication indicates a missing or invalid webhook signature or bearer token.
	ErrAuthentication = errors.New("authentication failed")
	// ErrValidation indicates a malformed request or event payload.
	ErrValidation = errors.New("invalid payload")
	// ErrAuthorization indicates the caller may not manage videos.
	ErrAuthorization = errors.New("caller not authorized")
	// ErrNotFound indicates the referenced video does not exist.
	ErrNotFound = errors.New("video not found")
	// ErrUnavailable indicates the provider or storage could not be reached. Safe to retry.
	ErrUnavailable = errors.New("service unavailable")
	// ErrUpstream indicates the provider rejected a request.
	ErrUpstream = errors.New("provider error")
)

// UpstreamError carries the provider's own error report.
type UpstreamError struct {
	StatusCode int
	Type       string
	Messages   []string
}

func (e *UpstreamError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("provider returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, strings.Join(e.Messages, "; "))
}

// Is makes errors.Is(err, ErrUpstream) match any UpstreamError.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
