package fetcher

import (
	"errors"
	"fmt"
	"strings"
)

// NetworkError wraps transport-level failures. Retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamError covers non-2xx responses and GraphQL payload error lists. Retryable.
type UpstreamError struct {
	Status   int
	Messages []string
}

func (e *UpstreamError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("upstream error (%d): %s", e.Status, strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("upstream error (%d)", e.Status)
}

// DecodeError indicates a malformed payload. Not retried; callers treat it as
// an empty result.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func retryable(err error) bool {
	var de *DecodeError
	return !errors.As(err, &de)
}
